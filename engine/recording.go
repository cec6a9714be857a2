package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"animatronic/animation"
	"animatronic/recorder"
	"animatronic/store"
)

// ErrCueRejected 当前状态不能给关键帧绑定音轨
var ErrCueRejected = errors.New("只能在录制页给当前关键帧绑定音轨")

type session struct {
	rec   *recorder.Recorder
	panel recorder.Panel
}

// BeginRecording 开始录制新动画，edit 为 true 时编辑同名动画的副本。
// panel 可以为 nil，录制页面总会同步到 RecorderSnapshot。
func (e *Engine) BeginRecording(ctx context.Context, name string, edit bool, panel recorder.Panel) (recorder.State, error) {
	if !store.ValidName(name) {
		return recorder.StateDone, fmt.Errorf("%w: %q", store.ErrInvalidName, name)
	}

	var state recorder.State
	err := e.call(ctx, func() error {
		if e.session != nil {
			return ErrBusy
		}

		var base *animation.Animation
		if edit {
			var err error
			if base, err = e.library.Get(name); err != nil {
				return err
			}
		}

		e.player.Stop()
		combined := recorder.Fanout(e.snapshot, panel)
		var rec *recorder.Recorder
		if base != nil {
			rec = recorder.NewEditor(base, e.rig, e.player, combined, e.recOpts)
		} else {
			rec = recorder.New(name, e.rig, e.player, combined, e.clock, e.recOpts)
		}
		e.session = &session{rec: rec, panel: combined}
		state = rec.State()
		return nil
	})
	return state, err
}

// RecorderInput 把一次操作员输入交给录制器。录制完成时动画被注册到动画库并写入存储目录。
func (e *Engine) RecorderInput(ctx context.Context, input recorder.Input) (recorder.State, error) {
	var (
		state  recorder.State
		result *animation.Animation
	)
	err := e.call(ctx, func() error {
		if e.session == nil {
			return ErrNoSession
		}
		state = e.session.rec.InputEvent(input)
		if state != recorder.StateDone {
			return nil
		}

		anim := e.session.rec.TakeAnimation()
		e.session = nil
		if anim == nil {
			return nil
		}
		e.library.Register(anim, animation.SourceRecorded)
		// 写文件使用副本，主循环可以继续播放原动画
		result = anim.Clone()
		return nil
	})
	if err != nil {
		return state, err
	}

	if result != nil && e.store != nil {
		if err := e.store.Save(result); err != nil {
			return state, fmt.Errorf("保存录制的动画失败：%w", err)
		}
	}
	return state, nil
}

// RecorderCue 给当前关键帧绑定音轨
func (e *Engine) RecorderCue(ctx context.Context, track int) error {
	return e.call(ctx, func() error {
		if e.session == nil {
			return ErrNoSession
		}
		if !e.session.rec.BindEffect(e.Cue(track)) {
			return ErrCueRejected
		}
		slog.Info("🎵 关键帧已绑定音轨", "animation", e.session.rec.Name(), "track", track)
		return nil
	})
}

// AbortRecording 放弃录制，不保存任何内容
func (e *Engine) AbortRecording(ctx context.Context) error {
	return e.call(ctx, func() error {
		if e.session == nil {
			return ErrNoSession
		}
		slog.Info("🗑️ 录制已中止", "animation", e.session.rec.Name())
		e.endSession()
		return nil
	})
}

func (e *Engine) endSession() {
	e.player.Stop()
	e.session.panel.Close()
	e.session = nil
}

// RecorderSnapshot 录制面板的当前内容，不经过主循环
func (e *Engine) RecorderSnapshot() recorder.Snapshot {
	return e.snapshot.Snapshot()
}
