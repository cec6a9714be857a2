package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"

	"animatronic/recorder"
	"animatronic/servo"
)

// ErrInterrupted 操作员按下 Ctrl-C 退出控制台
var ErrInterrupted = errors.New("控制台被中断")

// NudgeStep 每次按键微调的位置增量
const NudgeStep = 0.05

// Controller 控制台驱动的录制会话
type Controller interface {
	RecorderInput(ctx context.Context, input recorder.Input) (recorder.State, error)
	Nudge(ctx context.Context, name string, delta float64) (servo.Reading, error)
}

var (
	styleTitle    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleText     = tcell.StyleDefault
	styleHint     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor   = tcell.StyleDefault.Reverse(true)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Console 终端录制面板。录制器通过 recorder.Panel 接口推送页面，
// 键盘输入被翻译成录制输入和舵机微调。
type Console struct {
	screen tcell.Screen
	title  string
	servos []string

	mutex    sync.Mutex
	page     recorder.Page
	info     *recorder.PageInfo
	selected int
	message  string
}

// New 创建控制台，screen 需要已经 Init
func New(screen tcell.Screen, title string, servos []string) *Console {
	return &Console{
		screen: screen,
		title:  title,
		servos: servos,
		page:   recorder.PageClosed,
	}
}

func (c *Console) StartPage()  { c.show(recorder.PageStart, nil) }
func (c *Console) SavePage()   { c.show(recorder.PageSave, nil) }
func (c *Console) CancelPage() { c.show(recorder.PageCancel, nil) }
func (c *Console) Close()      { c.show(recorder.PageClosed, nil) }

func (c *Console) RecordingPage(info recorder.PageInfo) {
	// 读数切片与其它面板共享，本地微调前先复制
	info.Servos = append([]servo.Reading(nil), info.Servos...)
	c.show(recorder.PageRecording, &info)
}

func (c *Console) show(page recorder.Page, info *recorder.PageInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.page = page
	if info != nil || page != recorder.PageRecording {
		c.info = info
	}
	c.draw()
}

// Page 当前显示的页面
func (c *Console) Page() recorder.Page {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.page
}

// Selected 当前选中的舵机
func (c *Console) Selected() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.servos) == 0 {
		return ""
	}
	return c.servos[c.selected]
}

// Run 处理键盘输入直到录制结束、ctx 被取消或按下 Ctrl-C
func (c *Console) Run(ctx context.Context, ctrl Controller) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go c.screen.ChannelEvents(events, quit)

	c.mutex.Lock()
	c.draw()
	c.mutex.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				c.mutex.Lock()
				c.screen.Sync()
				c.draw()
				c.mutex.Unlock()
			case *tcell.EventKey:
				done, err := c.handleKey(ctx, ctrl, ev)
				if err != nil || done {
					return err
				}
			}
		}
	}
}

func (c *Console) handleKey(ctx context.Context, ctrl Controller, ev *tcell.EventKey) (bool, error) {
	if ev.Key() == tcell.KeyCtrlC {
		return true, ErrInterrupted
	}

	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case '[':
			c.selectServo(-1)
			return false, nil
		case ']':
			c.selectServo(1)
			return false, nil
		case ',':
			return false, c.nudge(ctx, ctrl, -NudgeStep)
		case '.':
			return false, c.nudge(ctx, ctrl, NudgeStep)
		}
	}

	input, ok := inputForKey(ev)
	if !ok {
		return false, nil
	}
	state, err := ctrl.RecorderInput(ctx, input)
	if err != nil {
		return true, fmt.Errorf("发送录制输入失败：%w", err)
	}
	return state == recorder.StateDone, nil
}

// inputForKey 按键到录制输入的映射
func inputForKey(ev *tcell.EventKey) (recorder.Input, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return recorder.Up, true
	case tcell.KeyDown:
		return recorder.Down, true
	case tcell.KeyLeft:
		return recorder.Left, true
	case tcell.KeyRight:
		return recorder.Right, true
	case tcell.KeyTab:
		return recorder.Next, true
	case tcell.KeyBacktab:
		return recorder.Prev, true
	case tcell.KeyDelete:
		return recorder.Delete, true
	case tcell.KeyEnter:
		return recorder.Done, true
	case tcell.KeyEscape:
		return recorder.Cancel, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'n':
			return recorder.Next, true
		case 'p':
			return recorder.Prev, true
		case 'x':
			return recorder.Delete, true
		}
	}
	return 0, false
}

func (c *Console) selectServo(step int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if n := len(c.servos); n > 0 {
		c.selected = (c.selected + step + n) % n
	}
	c.draw()
}

func (c *Console) nudge(ctx context.Context, ctrl Controller, delta float64) error {
	name := c.Selected()
	if name == "" {
		return nil
	}
	reading, err := ctrl.Nudge(ctx, name, delta)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		slog.Warn("⚠️ 微调舵机失败", "servo", name, "error", err)
		c.message = err.Error()
	} else {
		c.message = ""
		c.updateReading(reading)
	}
	c.draw()
	return nil
}

// updateReading 微调不会触发录制器推送，直接刷新本地读数
func (c *Console) updateReading(reading servo.Reading) {
	if c.info == nil {
		return
	}
	for i := range c.info.Servos {
		if c.info.Servos[i].Name == reading.Name {
			c.info.Servos[i] = reading
		}
	}
}
