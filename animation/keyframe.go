package animation

import (
	"log/slog"
	"math"
	"sort"

	"animatronic/audio"
	"animatronic/ramp"
)

// Actuator 关键帧驱动的单个自由度
type Actuator interface {
	Name() string
	SetTarget(position float64, durationMs int64, mode ramp.Mode)
	Update() float64
	Position() float64
}

// Resolver 按名称解析执行器
type Resolver func(name string) (Actuator, bool)

// Effect 关键帧开始后触发一次的副作用
type Effect interface {
	Fire()
}

// EffectFunc 将普通函数作为副作用，不会被持久化
type EffectFunc func()

func (f EffectFunc) Fire() { f() }

// TrackCue 播放一段音轨，是唯一会写入动画文件的副作用
type TrackCue struct {
	Track  int
	Player audio.TrackPlayer
}

func (c TrackCue) Fire() {
	if c.Player == nil {
		return
	}
	if err := c.Player.PlayTrack(c.Track); err != nil {
		slog.Warn("⚠️ 音轨播放失败", "track", c.Track, "error", err)
	}
}

// Target 单个执行器在关键帧中的目标
type Target struct {
	Actuator Actuator
	Position float64
	Mode     ramp.Mode
}

// Keyframe 一段时长内各执行器的目标位置。同一执行器只保留一条目标。
type Keyframe struct {
	durationMs int64
	targets    map[string]Target
	effect     Effect
	fired      bool

	// 所属序列与槽位，未链接时 seq 为 nil
	seq    *Sequence
	handle Handle
}

func NewKeyframe(durationMs int64) *Keyframe {
	return &Keyframe{
		durationMs: max(durationMs, 0),
		targets:    make(map[string]Target),
		handle:     NoFrame,
	}
}

// SetTarget 设置执行器目标，已存在时覆盖
func (k *Keyframe) SetTarget(a Actuator, position float64, mode ramp.Mode) {
	if a == nil {
		return
	}
	if math.IsNaN(position) {
		position = 0
	}
	k.targets[a.Name()] = Target{
		Actuator: a,
		Position: max(-1, min(1, position)),
		Mode:     mode,
	}
}

func (k *Keyframe) RemoveTarget(name string) bool {
	if _, ok := k.targets[name]; !ok {
		return false
	}
	delete(k.targets, name)
	return true
}

func (k *Keyframe) Target(name string) (Target, bool) {
	t, ok := k.targets[name]
	return t, ok
}

// Targets 按执行器名称排序返回全部目标
func (k *Keyframe) Targets() []Target {
	targets := make([]Target, 0, len(k.targets))
	for _, t := range k.targets {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Actuator.Name() < targets[j].Actuator.Name()
	})
	return targets
}

// Len 目标数量，0 表示暂停帧
func (k *Keyframe) Len() int { return len(k.targets) }

func (k *Keyframe) BindEffect(e Effect) { k.effect = e }
func (k *Keyframe) Effect() Effect      { return k.effect }
func (k *Keyframe) Fired() bool         { return k.fired }

func (k *Keyframe) Duration() int64 { return k.durationMs }

func (k *Keyframe) SetDuration(ms int64) { k.durationMs = max(ms, 0) }

// Linked 是否已属于某个序列
func (k *Keyframe) Linked() bool { return k.seq != nil }

// Begin 把所有目标提交给执行器，并重置副作用
func (k *Keyframe) Begin() {
	for _, t := range k.targets {
		t.Actuator.SetTarget(t.Position, k.durationMs, t.Mode)
	}
	k.fired = false
}

// Tick 推进所有执行器。副作用在 Begin 之后的第一次 Tick 触发，且只触发一次。
func (k *Keyframe) Tick() {
	for _, t := range k.targets {
		t.Actuator.Update()
	}
	if k.effect != nil && !k.fired {
		k.fired = true
		k.effect.Fire()
	}
}

// Clone 深拷贝目标和副作用，副本不属于任何序列
func (k *Keyframe) Clone() *Keyframe {
	c := NewKeyframe(k.durationMs)
	for name, t := range k.targets {
		c.targets[name] = t
	}
	c.effect = k.effect
	return c
}
