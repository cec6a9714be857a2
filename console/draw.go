package console

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"animatronic/recorder"
)

const helpRecording = "←→ 选择位  ↑↓ 调整时长  n/Tab 下一帧  p 上一帧  x 删除  [ ] 选舵机  , . 微调  Enter 保存  Esc 取消"

// draw 重绘整个屏幕，调用方持有 mutex
func (c *Console) draw() {
	c.screen.Clear()
	c.put(0, 0, styleTitle, "🎬 录制 "+c.title)

	switch c.page {
	case recorder.PageStart:
		c.put(0, 2, styleText, "按方向键开始录制第一个关键帧")
		c.put(0, 4, styleHint, "Esc 放弃录制")
	case recorder.PageRecording:
		c.drawRecording()
	case recorder.PageSave:
		c.put(0, 2, styleText, "保存动画？")
		c.put(0, 4, styleHint, "Enter 保存  其它键返回录制")
	case recorder.PageCancel:
		c.put(0, 2, styleText, "放弃本次录制？")
		c.put(0, 4, styleHint, "Esc 放弃  其它键返回录制")
	case recorder.PageClosed:
		c.put(0, 2, styleHint, "录制已结束")
	}

	if c.message != "" {
		_, h := c.screen.Size()
		c.put(0, h-1, styleError, c.message)
	}
	c.screen.Show()
}

func (c *Console) drawRecording() {
	info := c.info
	if info == nil {
		return
	}

	c.put(0, 2, styleText, fmt.Sprintf("关键帧 %d/%d", info.Keyframe+1, info.Keyframes))

	x := c.put(0, 3, styleText, "时长 ")
	digits := FormatDuration(info.DurationMs)
	at := CursorColumn(info.Cursor)
	for i, r := range digits {
		style := styleText
		if i == at {
			style = styleCursor
		}
		c.screen.SetContent(x+i, 3, r, nil, style)
	}
	c.put(x+len(digits), 3, styleText, " 秒")

	selected := ""
	if len(c.servos) > 0 {
		selected = c.servos[c.selected]
	}
	for i, r := range info.Servos {
		style, mark := styleText, "  "
		if r.Name == selected {
			style, mark = styleSelected, "> "
		}
		line := fmt.Sprintf("%s%-12s %+6.3f %5dus", mark, r.Name, r.Position, r.PulseUs)
		if r.Error != "" {
			line += "  ⚠️ " + r.Error
		}
		c.put(0, 5+i, style, line)
	}

	c.put(0, 6+len(info.Servos), styleHint, helpRecording)
}

// put 从 (x, y) 开始写一行文本，返回结束列
func (c *Console) put(x, y int, style tcell.Style, text string) int {
	for _, r := range text {
		c.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}

// FormatDuration 关键帧时长以 %7.3f 秒显示
func FormatDuration(ms int64) string {
	return fmt.Sprintf("%7.3f", float64(ms)/1000)
}

// CursorColumn 编辑位在 FormatDuration 结果中的下标，0 为毫秒个位，跳过小数点
func CursorColumn(cursor int) int {
	if cursor < 3 {
		return 6 - cursor
	}
	return 5 - cursor
}
