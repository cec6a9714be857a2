package recorder

import (
	"log/slog"

	"animatronic/animation"
	"animatronic/clock"
	"animatronic/servo"
)

// Recorder 根据操作员输入逐帧构建或编辑动画。切换关键帧时通过 Player
// 播放一个单帧预览动画，让舵机平滑移动到该帧记录的姿态。
type Recorder struct {
	name   string
	opts   Options
	rig    *servo.Rig
	player *animation.Player
	panel  Panel
	clock  clock.Clock

	state   State
	draft   *animation.Sequence
	current animation.Handle
	index   int
	cursor  int
	editing bool

	result *animation.Animation
	taken  bool
}

// New 创建录制空白动画的录制器，立即显示开始页
func New(name string, rig *servo.Rig, player *animation.Player, panel Panel, clk clock.Clock, opts Options) *Recorder {
	r := &Recorder{
		name:    name,
		opts:    opts,
		rig:     rig,
		player:  player,
		panel:   panel,
		clock:   clk,
		state:   StateEntry,
		draft:   animation.NewSequence(),
		current: animation.NoFrame,
		cursor:  opts.DefaultCursor,
		result:  animation.New(name, clk),
	}
	r.panel.StartPage()
	slog.Info("🎬 开始录制", "animation", name)
	return r
}

// NewEditor 在已有动画的副本上编辑，原动画不受影响
func NewEditor(base *animation.Animation, rig *servo.Rig, player *animation.Player, panel Panel, opts Options) *Recorder {
	r := New(base.Name(), rig, player, panel, base.Clock(), opts)
	r.draft = base.Sequence().Clone()
	r.editing = r.draft.Len() > 0
	return r
}

func (r *Recorder) State() State  { return r.state }
func (r *Recorder) Name() string  { return r.name }
func (r *Recorder) Editing() bool { return r.editing }

// CurrentKeyframe 正在编辑的关键帧，进入录制前为 nil
func (r *Recorder) CurrentKeyframe() *animation.Keyframe {
	if r.draft == nil {
		return nil
	}
	return r.draft.Keyframe(r.current)
}

// InputEvent 处理一次输入并返回新状态
func (r *Recorder) InputEvent(input Input) State {
	switch r.state {
	case StateEntry:
		switch input {
		case Up, Down, Left, Right:
			r.setupRecording()
			r.state = StateRecording
		case Cancel:
			r.panel.CancelPage()
			r.state = StateCancel
		}

	case StateRecording:
		switch input {
		case Done:
			r.panel.SavePage()
			r.state = StateSave
		case Cancel:
			r.panel.CancelPage()
			r.state = StateCancel
		default:
			r.handleRecordingInput(input)
		}

	case StateSave:
		if input == Done {
			r.saveCurrentKeyframeServos()
			// Append 会从当前帧回溯到链头，整条链一起移交
			r.result.Append(r.draft, r.current)
			r.current = animation.NoFrame
			r.finish()
			slog.Info("💾 录制完成", "animation", r.name, "keyframes", r.result.Len(), "durationMs", r.result.DurationMs())
		} else {
			r.resume()
		}

	case StateCancel:
		if input == Cancel {
			r.result = nil
			r.draft = nil
			r.current = animation.NoFrame
			r.finish()
			slog.Info("🗑️ 录制已取消", "animation", r.name)
		} else {
			r.resume()
		}
	}
	return r.state
}

// TakeAnimation 在 Done 状态下取走结果，只能取一次。取消的录制返回 nil。
func (r *Recorder) TakeAnimation() *animation.Animation {
	if r.state != StateDone || r.taken {
		return nil
	}
	r.taken = true
	result := r.result
	r.result = nil
	return result
}

// BindEffect 给当前关键帧绑定副作用
func (r *Recorder) BindEffect(effect animation.Effect) bool {
	kf := r.CurrentKeyframe()
	if kf == nil || r.state != StateRecording {
		return false
	}
	kf.BindEffect(effect)
	r.refresh()
	return true
}

// PageInfo 当前录制页面内容
func (r *Recorder) PageInfo() PageInfo {
	info := PageInfo{
		Keyframe: r.index,
		Cursor:   r.cursor,
		Digits:   r.opts.Digits(),
		Servos:   r.rig.Readings(),
	}
	if r.draft != nil {
		info.Keyframes = r.draft.Len()
	}
	if kf := r.CurrentKeyframe(); kf != nil {
		info.DurationMs = kf.Duration()
	}
	return info
}

func (r *Recorder) finish() {
	r.panel.Close()
	r.state = StateDone
}

// resume 放弃保存或取消提示，回到录制页
func (r *Recorder) resume() {
	if r.CurrentKeyframe() == nil {
		// 尚未进入录制就选择了取消
		r.panel.StartPage()
		r.state = StateEntry
		return
	}
	r.refresh()
	r.state = StateRecording
}

func (r *Recorder) refresh() {
	r.panel.RecordingPage(r.PageInfo())
}

func (r *Recorder) setupRecording() {
	r.index = 0
	if r.editing {
		r.current = r.draft.Front()
		r.moveServosToCurrentKeyframe()
	} else {
		r.current = r.draft.PushBack(animation.NewKeyframe(r.opts.DefaultKeyframeMs))
	}
	r.refresh()
}

func (r *Recorder) handleRecordingInput(input Input) {
	switch input {
	case Up, Down, Left, Right:
		r.updateKeyframeDuration(input)
	case Next:
		r.goToNextKeyframe()
	case Prev:
		r.goToPrevKeyframe()
	case Delete:
		r.deleteCurrentKeyframe()
	default:
		return
	}
	r.refresh()
}

func (r *Recorder) goToNextKeyframe() {
	r.saveCurrentKeyframeServos()
	if next := r.draft.Next(r.current); next != animation.NoFrame {
		r.current = next
		r.moveServosToCurrentKeyframe()
	} else {
		// 已在链尾，新建一帧，不需要预览
		r.current = r.draft.InsertAfter(r.current, animation.NewKeyframe(r.opts.DefaultKeyframeMs))
	}
	r.index++
}

func (r *Recorder) goToPrevKeyframe() {
	r.saveCurrentKeyframeServos()
	if prev := r.draft.Prev(r.current); prev != animation.NoFrame {
		r.current = prev
		r.index--
		r.moveServosToCurrentKeyframe()
	}
}

// deleteCurrentKeyframe 唯一的关键帧不能删除
func (r *Recorder) deleteCurrentKeyframe() {
	next := r.draft.Next(r.current)
	prev := r.draft.Prev(r.current)
	if next == animation.NoFrame && prev == animation.NoFrame {
		return
	}

	r.draft.Remove(r.current)
	if next != animation.NoFrame {
		r.current = next
	} else {
		r.current = prev
		r.index--
	}
	r.moveServosToCurrentKeyframe()
}

// moveServosToCurrentKeyframe 用单帧预览动画把舵机移到当前帧的姿态，不修改正在编辑的链
func (r *Recorder) moveServosToCurrentKeyframe() {
	kf := r.CurrentKeyframe()
	if kf == nil {
		return
	}
	if r.player.IsPlaying() {
		r.player.Stop()
	}

	isolated := kf.Clone()
	isolated.SetDuration(r.opts.PreviewMs)
	isolated.BindEffect(nil)

	preview := animation.New(r.name+"#preview", r.clock)
	preview.Add(isolated)
	r.player.Play(preview)
}

func (r *Recorder) updateKeyframeDuration(input Input) {
	kf := r.CurrentKeyframe()
	step := int64(1)
	for i := 0; i < r.cursor; i++ {
		step *= 10
	}

	d := kf.Duration()
	switch input {
	case Up:
		d += step
	case Down:
		d -= step
	case Left:
		r.cursor = (r.cursor + 1) % r.opts.Digits()
	case Right:
		if r.cursor > 0 {
			r.cursor--
		} else {
			r.cursor = r.opts.Digits() - 1
		}
	}
	kf.SetDuration(min(max(d, r.opts.MinKeyframeMs), r.opts.MaxKeyframeMs))
}

// saveCurrentKeyframeServos 把所有舵机的当前位置写入当前关键帧
func (r *Recorder) saveCurrentKeyframeServos() {
	kf := r.CurrentKeyframe()
	if kf == nil {
		return
	}
	r.rig.ApplyToAll(func(s *servo.Servo) {
		kf.SetTarget(s, s.Position(), r.opts.Mode)
	})
}
