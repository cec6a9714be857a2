package script

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.starlark.net/starlark"

	"animatronic/animation"
	"animatronic/clock"
	"animatronic/ramp"
)

// Options 脚本执行环境
type Options struct {
	Clock   clock.Clock
	Resolve animation.Resolver
	// Servos 作为 servos 全局变量暴露给脚本
	Servos []string
	// Cue 把音轨编号转换为副作用，为 nil 时绑定不带播放器的 TrackCue
	Cue func(track int) animation.Effect
}

// LoadFile 执行脚本文件，返回其中定义的全部动画
func LoadFile(path string, opts Options) ([]*animation.Animation, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取脚本失败：%w", err)
	}
	return Load(path, src, opts)
}

// Load 执行脚本源码。脚本出错时整个文件作废，不返回任何动画。
func Load(filename string, src []byte, opts Options) ([]*animation.Animation, error) {
	if opts.Resolve == nil {
		opts.Resolve = func(string) (animation.Actuator, bool) { return nil, false }
	}
	b := &builder{opts: opts, file: filename, index: make(map[string]int)}

	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			slog.Info("📜 "+msg, "script", filename)
		},
	}
	if _, err := starlark.ExecFile(thread, filename, src, b.predeclared()); err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("执行脚本 %s 失败：%s", filename, evalErr.Backtrace())
		}
		return nil, fmt.Errorf("执行脚本 %s 失败：%w", filename, err)
	}

	slog.Info("📜 脚本已加载", "script", filename, "animations", len(b.anims))
	return b.anims, nil
}

type builder struct {
	opts  Options
	file  string
	anims []*animation.Animation
	index map[string]int
}

func (b *builder) predeclared() starlark.StringDict {
	names := make(starlark.Tuple, len(b.opts.Servos))
	for i, name := range b.opts.Servos {
		names[i] = starlark.String(name)
	}
	return starlark.StringDict{
		"keyframe":  starlark.NewBuiltin("keyframe", b.keyframe),
		"pause":     starlark.NewBuiltin("pause", b.pause),
		"target":    starlark.NewBuiltin("target", b.target),
		"animation": starlark.NewBuiltin("animation", b.animation),
		"servos":    names,
	}
}

// keyframe(duration_ms, track=None, ramp=None, **servos)
func (b *builder) keyframe(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		duration  starlark.Value
		servoArgs []starlark.Tuple
	)
	if len(args) > 1 {
		return nil, fmt.Errorf("%s: 舵机目标必须以关键字参数给出", fn.Name())
	}
	if len(args) == 1 {
		duration = args[0]
	}

	kf := animation.NewKeyframe(0)
	mode := ramp.Default

	for _, kw := range kwargs {
		key := string(kw[0].(starlark.String))
		switch key {
		case "duration_ms":
			if duration != nil {
				return nil, fmt.Errorf("%s: duration_ms 重复", fn.Name())
			}
			duration = kw[1]
		case "track":
			if kw[1] == starlark.None {
				continue
			}
			var track int
			if err := starlark.AsInt(kw[1], &track); err != nil || track < 0 {
				return nil, fmt.Errorf("%s: 无效的 track: %s", fn.Name(), kw[1])
			}
			kf.BindEffect(b.cue(track))
		case "ramp":
			if kw[1] == starlark.None {
				continue
			}
			m, err := toMode(kw[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			mode = m
		default:
			servoArgs = append(servoArgs, kw)
		}
	}

	if duration == nil {
		return nil, fmt.Errorf("%s: 缺少 duration_ms", fn.Name())
	}
	var durationMs int64
	if err := starlark.AsInt(duration, &durationMs); err != nil || durationMs < 0 {
		return nil, fmt.Errorf("%s: 无效的 duration_ms: %s", fn.Name(), duration)
	}
	kf.SetDuration(durationMs)

	for _, kw := range servoArgs {
		name := string(kw[0].(starlark.String))
		position, m, err := toTarget(kw[1], mode)
		if err != nil {
			return nil, fmt.Errorf("%s: 舵机 %s: %w", fn.Name(), name, err)
		}
		actuator, ok := b.opts.Resolve(name)
		if !ok {
			slog.Warn("⚠️ 脚本引用的舵机不存在，跳过", "script", b.file, "servo", name)
			continue
		}
		kf.SetTarget(actuator, position, m)
	}

	return &keyframeValue{kf: kf}, nil
}

// pause(duration_ms) 不改变任何舵机的关键帧
func (b *builder) pause(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var durationMs int64
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "duration_ms", &durationMs); err != nil {
		return nil, err
	}
	if durationMs < 0 {
		return nil, fmt.Errorf("%s: duration_ms 不能为负: %d", fn.Name(), durationMs)
	}
	return &keyframeValue{kf: animation.NewKeyframe(durationMs)}, nil
}

// target(position, ramp) 为单个舵机指定缓动方式
func (b *builder) target(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var position, mode starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "position", &position, "ramp", &mode); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(position)
	if !ok {
		return nil, fmt.Errorf("%s: position 必须是数字，得到 %s", fn.Name(), position.Type())
	}
	m, err := toMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return &targetValue{position: f, mode: m}, nil
}

// animation(name, *keyframes) 定义动画，同名时后定义的覆盖先定义的
func (b *builder) animation(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: 不接受关键字参数", fn.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: 缺少动画名称", fn.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok || name == "" {
		return nil, fmt.Errorf("%s: 动画名称必须是非空字符串", fn.Name())
	}

	anim := animation.New(name, b.opts.Clock)
	for i, arg := range args[1:] {
		kv, ok := arg.(*keyframeValue)
		if !ok {
			return nil, fmt.Errorf("%s: 第 %d 个关键帧类型错误: %s", fn.Name(), i+1, arg.Type())
		}
		// 同一个关键帧值可以出现在多处，每处使用独立副本
		anim.Add(kv.kf.Clone())
	}

	if i, exists := b.index[name]; exists {
		slog.Warn("⚠️ 脚本中动画重复定义，使用后者", "script", b.file, "animation", name)
		b.anims[i] = anim
	} else {
		b.index[name] = len(b.anims)
		b.anims = append(b.anims, anim)
	}
	return starlark.String(name), nil
}

func (b *builder) cue(track int) animation.Effect {
	if b.opts.Cue != nil {
		return b.opts.Cue(track)
	}
	return animation.TrackCue{Track: track}
}

// toMode 接受缓动名称或编号
func toMode(v starlark.Value) (ramp.Mode, error) {
	switch v := v.(type) {
	case starlark.String:
		return ramp.ParseMode(string(v))
	case starlark.Int:
		n, ok := v.Int64()
		if !ok || !ramp.Mode(n).Valid() {
			return 0, fmt.Errorf("未知的缓动编号: %s", v)
		}
		return ramp.Mode(n), nil
	}
	return 0, fmt.Errorf("ramp 必须是字符串或整数，得到 %s", v.Type())
}

func toTarget(v starlark.Value, mode ramp.Mode) (float64, ramp.Mode, error) {
	if t, ok := v.(*targetValue); ok {
		return t.position, t.mode, nil
	}
	f, ok := starlark.AsFloat(v)
	if !ok {
		return 0, 0, fmt.Errorf("目标位置必须是数字或 target()，得到 %s", v.Type())
	}
	return f, mode, nil
}

type keyframeValue struct {
	kf *animation.Keyframe
}

var _ starlark.Value = (*keyframeValue)(nil)

func (k *keyframeValue) String() string {
	names := make([]string, 0, k.kf.Len())
	for _, t := range k.kf.Targets() {
		names = append(names, fmt.Sprintf("%s=%g", t.Actuator.Name(), t.Position))
	}
	return fmt.Sprintf("keyframe(%d, %s)", k.kf.Duration(), strings.Join(names, ", "))
}

func (k *keyframeValue) Type() string          { return "keyframe" }
func (k *keyframeValue) Freeze()               {}
func (k *keyframeValue) Truth() starlark.Bool  { return starlark.True }
func (k *keyframeValue) Hash() (uint32, error) { return 0, fmt.Errorf("keyframe 不可哈希") }

type targetValue struct {
	position float64
	mode     ramp.Mode
}

var _ starlark.Value = (*targetValue)(nil)

func (t *targetValue) String() string {
	return fmt.Sprintf("target(%g, %q)", t.position, t.mode.String())
}

func (t *targetValue) Type() string          { return "target" }
func (t *targetValue) Freeze()               {}
func (t *targetValue) Truth() starlark.Bool  { return starlark.True }
func (t *targetValue) Hash() (uint32, error) { return 0, fmt.Errorf("target 不可哈希") }
