package animation

import "log/slog"

// Player 决定当前由哪一个动画驱动执行器。开始新动画前总是先停止旧的。
// 不加锁，由主循环独占。
type Player struct {
	current *Animation
}

func NewPlayer() *Player { return &Player{} }

// Play 停止当前动画后开始播放 anim
func (p *Player) Play(anim *Animation) {
	if anim == nil {
		return
	}
	if p.current != nil {
		if p.current != anim {
			slog.Debug("ℹ️ 停止当前动画以切换", "current", p.current.Name(), "next", anim.Name())
		}
		p.current.Stop()
	}
	p.current = anim
	anim.Play()
}

func (p *Player) Stop() {
	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}
}

func (p *Player) IsPlaying() bool {
	return p.current != nil && p.current.IsPlaying()
}

// Current 当前持有的动画，可能为 nil
func (p *Player) Current() *Animation { return p.current }

// Update 转发给当前动画，动画自行停止后清空引用。返回本次是否有动画结束。
func (p *Player) Update() (finished *Animation) {
	if p.current == nil {
		return nil
	}
	if p.current.IsPlaying() {
		p.current.Update()
	}
	if !p.current.IsPlaying() {
		finished = p.current
		p.current = nil
	}
	return finished
}
