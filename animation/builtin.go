package animation

import (
	"log/slog"
	"sort"

	"animatronic/clock"
	"animatronic/ramp"
)

// FramePreset 预设关键帧，Targets 为空表示暂停
type FramePreset struct {
	DurationMs int64
	Targets    map[string]float64
}

// Preset 内置动画定义
type Preset struct {
	Name        string
	Description string
	Frames      []FramePreset
}

// BuiltinPresets 头部内置动画
func BuiltinPresets() []Preset {
	return []Preset{
		{
			Name:        "cock_left",
			Description: "歪头：双眼错开后停留，再回到中位",
			Frames: []FramePreset{
				{1000, map[string]float64{"eye_left": 1.0, "eye_right": 0.75}},
				{4000, nil},
				{1000, map[string]float64{"eye_left": 0, "eye_right": 0}},
			},
		},
		{
			Name:        "cock_right",
			Description: "歪头（右）",
			Frames: []FramePreset{
				{1000, map[string]float64{"eye_left": 1.0, "eye_right": 0.75}},
				{4000, nil},
				{1000, map[string]float64{"eye_left": 0, "eye_right": 0}},
			},
		},
		{
			Name:        "sad",
			Description: "难过：眼睛下垂，低头，停留后复位",
			Frames: []FramePreset{
				{2000, map[string]float64{"eye_left": -1.0, "eye_right": 1.0}},
				{2000, map[string]float64{"neck_pitch": -0.8}},
				{4000, nil},
				{2000, map[string]float64{"eye_left": 0, "eye_right": 0, "neck_pitch": 0}},
			},
		},
		{
			Name:        "curious_track",
			Description: "好奇：低头看向左下，从左向右追踪",
			Frames: []FramePreset{
				{2000, map[string]float64{"neck_pitch": -0.6, "neck_yaw": -0.5}},
				{1000, map[string]float64{"eye_left": 0.7, "eye_right": 0.5}},
				{6000, map[string]float64{"neck_yaw": 0.5, "eye_left": 0, "eye_right": 0}},
				{1000, nil},
				{1000, map[string]float64{"neck_pitch": 0, "neck_yaw": 0, "eye_left": 0, "eye_right": 0}},
			},
		},
		{
			Name:        "wiggle_eyes",
			Description: "兴奋地来回摆动双眼",
			Frames: []FramePreset{
				{500, map[string]float64{"eye_left": 0.5, "eye_right": -0.5}},
				{500, map[string]float64{"eye_left": -0.5, "eye_right": 0.5}},
				{500, map[string]float64{"eye_left": 0.5, "eye_right": -0.5}},
				{500, map[string]float64{"eye_left": -0.5, "eye_right": 0.5}},
				{250, map[string]float64{"eye_left": 0, "eye_right": 0}},
			},
		},
	}
}

// Build 按解析器生成动画，找不到的执行器被跳过
func (p Preset) Build(resolve Resolver, clk clock.Clock) *Animation {
	anim := New(p.Name, clk)
	for _, frame := range p.Frames {
		kf := NewKeyframe(frame.DurationMs)

		names := make([]string, 0, len(frame.Targets))
		for name := range frame.Targets {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			a, ok := resolve(name)
			if !ok {
				slog.Debug("ℹ️ 内置动画引用的舵机不存在，跳过", "animation", p.Name, "servo", name)
				continue
			}
			kf.SetTarget(a, frame.Targets[name], ramp.Default)
		}
		anim.Add(kf)
	}
	return anim
}

// RegisterBuiltins 注册全部内置动画，返回注册数量
func RegisterBuiltins(lib *Library, resolve Resolver, clk clock.Clock) int {
	presets := BuiltinPresets()
	for _, p := range presets {
		lib.Register(p.Build(resolve, clk), SourceBuiltin)
	}
	slog.Info("✅ 内置动画已注册", "count", len(presets))
	return len(presets)
}
