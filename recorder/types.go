package recorder

import (
	"fmt"
	"strings"

	"animatronic/define"
	"animatronic/ramp"
	"animatronic/servo"
)

// Input 操作员输入
type Input int

const (
	Up Input = iota
	Down
	Left
	Right
	Next
	Prev
	Delete
	Done
	Cancel
)

var inputNames = []string{"up", "down", "left", "right", "next", "prev", "delete", "done", "cancel"}

func (i Input) String() string {
	if i < 0 || int(i) >= len(inputNames) {
		return fmt.Sprintf("input(%d)", int(i))
	}
	return inputNames[i]
}

// ParseInput 按名称解析输入，不区分大小写
func ParseInput(s string) (Input, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range inputNames {
		if name == s {
			return Input(i), nil
		}
	}
	return 0, fmt.Errorf("未知的录制输入: %q", s)
}

// State 录制器状态
type State int

const (
	StateEntry State = iota
	StateRecording
	StateSave
	StateCancel
	StateDone
)

var stateNames = []string{"entry", "recording", "save", "cancel", "done"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText 状态在 JSON 中以名称输出
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// PageInfo 录制页面显示的内容
type PageInfo struct {
	Keyframe   int             `json:"keyframe"`   // 当前关键帧序号，从 0 开始
	Keyframes  int             `json:"keyframes"`  // 链中关键帧总数
	DurationMs int64           `json:"durationMs"` // 当前关键帧时长
	Cursor     int             `json:"cursor"`     // 正在编辑的位，0 为毫秒个位
	Digits     int             `json:"digits"`
	Servos     []servo.Reading `json:"servos"`
}

// Panel 录制器推送状态的显示面板
type Panel interface {
	StartPage()
	RecordingPage(info PageInfo)
	SavePage()
	CancelPage()
	Close()
}

// Options 录制参数
type Options struct {
	DefaultKeyframeMs int64
	PreviewMs         int64
	MinKeyframeMs     int64
	MaxKeyframeMs     int64
	DefaultCursor     int
	Mode              ramp.Mode
}

// DefaultOptions 默认参数：新关键帧 1.5 秒，预览 100 毫秒，时长上限 999 秒
func DefaultOptions() Options {
	return Options{
		DefaultKeyframeMs: 1500,
		PreviewMs:         100,
		MinKeyframeMs:     0,
		MaxKeyframeMs:     999_000,
		DefaultCursor:     3,
		Mode:              ramp.Default,
	}
}

// OptionsFromConfig 校验并转换配置
func OptionsFromConfig(cfg define.RecorderConfig) (Options, error) {
	opts := Options{
		DefaultKeyframeMs: cfg.DefaultKeyframeMs,
		PreviewMs:         cfg.PreviewMs,
		MinKeyframeMs:     cfg.MinKeyframeMs,
		MaxKeyframeMs:     cfg.MaxKeyframeMs,
		DefaultCursor:     cfg.DefaultCursor,
		Mode:              ramp.Default,
	}
	if cfg.RampMode != "" {
		mode, err := ramp.ParseMode(cfg.RampMode)
		if err != nil {
			return Options{}, err
		}
		opts.Mode = mode
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) Validate() error {
	if o.MinKeyframeMs < 0 || o.MaxKeyframeMs <= 0 || o.MinKeyframeMs > o.MaxKeyframeMs {
		return fmt.Errorf("关键帧时长范围无效: [%d, %d]", o.MinKeyframeMs, o.MaxKeyframeMs)
	}
	if o.DefaultKeyframeMs < o.MinKeyframeMs || o.DefaultKeyframeMs > o.MaxKeyframeMs {
		return fmt.Errorf("默认关键帧时长 %d 超出范围", o.DefaultKeyframeMs)
	}
	if o.PreviewMs < 0 {
		return fmt.Errorf("预览时长不能为负: %d", o.PreviewMs)
	}
	if o.DefaultCursor < 0 || o.DefaultCursor >= o.Digits() {
		return fmt.Errorf("默认编辑位 %d 超出范围 [0, %d)", o.DefaultCursor, o.Digits())
	}
	return nil
}

// Digits 时长可编辑的位数，即最大时长的十进制位数
func (o Options) Digits() int {
	digits := 0
	for v := o.MaxKeyframeMs; v > 0; v /= 10 {
		digits++
	}
	return max(digits, 1)
}
