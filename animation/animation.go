package animation

import (
	"animatronic/clock"
)

// Animation 拥有一条关键帧链和播放游标，每个 tick 调用一次 Update 推进播放
type Animation struct {
	name  string
	seq   *Sequence
	clock clock.Clock

	cursor  Handle
	playing bool
	started bool
	startMs int64
}

func New(name string, clk clock.Clock) *Animation {
	return &Animation{name: name, seq: NewSequence(), clock: clk, cursor: NoFrame}
}

func (a *Animation) Name() string           { return a.name }
func (a *Animation) SetName(name string)    { a.name = name }
func (a *Animation) Sequence() *Sequence    { return a.seq }
func (a *Animation) Clock() clock.Clock     { return a.clock }
func (a *Animation) Len() int               { return a.seq.Len() }
func (a *Animation) Keyframes() []*Keyframe { return a.seq.Keyframes() }

// Add 在链尾追加一个关键帧
func (a *Animation) Add(kf *Keyframe) Handle {
	return a.seq.PushBack(kf)
}

// Append 从 from 回溯到其所在链的链头，把整条链移到本动画的链尾。
// 返回移动的关键帧数量。
func (a *Animation) Append(src *Sequence, from Handle) int {
	if src == nil || src == a.seq {
		return 0
	}
	h := src.ChainFront(from)
	moved := 0
	for h != NoFrame {
		next := src.Next(h)
		a.seq.PushBack(src.Remove(h))
		moved++
		h = next
	}
	return moved
}

// Play 从链头开始播放
func (a *Animation) Play() {
	a.cursor = a.seq.Front()
	a.started = false
	a.playing = true
}

// Stop 停止播放并把游标复位到链头
func (a *Animation) Stop() {
	a.playing = false
	a.started = false
	a.cursor = a.seq.Front()
}

func (a *Animation) IsPlaying() bool { return a.playing }

func (a *Animation) Cursor() Handle { return a.cursor }

// CurrentKeyframe 正在播放的关键帧，未播放或已越过链尾时为 nil
func (a *Animation) CurrentKeyframe() *Keyframe {
	if !a.playing {
		return nil
	}
	return a.seq.Keyframe(a.cursor)
}

// Update 播放状态机：
//  1. 未播放时不做任何事
//  2. 游标越过链尾时停止
//  3. 当前关键帧未开始时调用 Begin 并记录开始时间
//  4. 已超过时长时再 Tick 一次，然后前进到下一帧
//  5. 否则 Tick
func (a *Animation) Update() {
	if !a.playing {
		return
	}

	kf := a.seq.Keyframe(a.cursor)
	if kf == nil {
		a.Stop()
		return
	}

	now := a.clock.NowMs()
	switch {
	case !a.started:
		kf.Begin()
		a.startMs = now
		a.started = true
	case now-a.startMs > kf.Duration():
		kf.Tick()
		a.cursor = a.seq.Next(a.cursor)
		a.started = false
	default:
		kf.Tick()
	}
}

// DurationMs 所有关键帧时长之和
func (a *Animation) DurationMs() int64 {
	var total int64
	for _, kf := range a.seq.Keyframes() {
		total += kf.Duration()
	}
	return total
}

// Clone 深拷贝关键帧（含副作用），副本处于停止状态
func (a *Animation) Clone() *Animation {
	c := New(a.name, a.clock)
	c.seq = a.seq.Clone()
	c.cursor = c.seq.Front()
	return c
}
