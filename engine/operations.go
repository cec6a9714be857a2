package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"animatronic/animation"
	"animatronic/servo"
	"animatronic/store"
)

// call 在主循环中执行 fn 并返回其错误
func (e *Engine) call(ctx context.Context, fn func() error) error {
	var err error
	if doErr := e.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// Play 播放动画库中的动画，正在播放的动画会先被停止
func (e *Engine) Play(ctx context.Context, name string) error {
	return e.call(ctx, func() error {
		if e.session != nil {
			return ErrBusy
		}
		anim, err := e.library.Get(name)
		if err != nil {
			return err
		}
		e.player.Play(anim)
		slog.Info("▶️ 开始播放动画", "animation", name, "keyframes", anim.Len(), "durationMs", anim.DurationMs())
		return nil
	})
}

// Stop 停止当前动画，舵机停在当前位置
func (e *Engine) Stop(ctx context.Context) error {
	return e.Do(ctx, func() {
		if current := e.player.Current(); current != nil {
			slog.Info("⏹️ 停止动画", "animation", current.Name())
		}
		e.player.Stop()
	})
}

// Animations 按名称排序的动画摘要
func (e *Engine) Animations(ctx context.Context) ([]animation.Info, error) {
	var infos []animation.Info
	err := e.Do(ctx, func() { infos = e.library.List() })
	return infos, err
}

// Jog 停止播放并把舵机直接移到 position
func (e *Engine) Jog(ctx context.Context, name string, position float64) (servo.Reading, error) {
	return e.moveServo(ctx, name, func(s *servo.Servo) { s.Hold(position) })
}

// Nudge 停止播放并把舵机相对移动 delta
func (e *Engine) Nudge(ctx context.Context, name string, delta float64) (servo.Reading, error) {
	return e.moveServo(ctx, name, func(s *servo.Servo) { s.Nudge(delta) })
}

func (e *Engine) moveServo(ctx context.Context, name string, move func(*servo.Servo)) (servo.Reading, error) {
	var reading servo.Reading
	err := e.call(ctx, func() error {
		s, err := e.rig.Get(name)
		if err != nil {
			return err
		}
		e.player.Stop()
		move(s)
		reading = s.Reading()
		return nil
	})
	return reading, err
}

// Neutral 停止播放并让所有舵机回到中位
func (e *Engine) Neutral(ctx context.Context) error {
	return e.Do(ctx, func() {
		e.player.Stop()
		e.rig.ApplyToAll(func(s *servo.Servo) { s.Hold(0) })
		slog.Info("🔄 所有舵机回到中位")
	})
}

// PlayTrack 立即播放音轨
func (e *Engine) PlayTrack(ctx context.Context, track int) error {
	return e.call(ctx, func() error {
		if err := e.audio.PlayTrack(track); err != nil {
			return fmt.Errorf("播放音轨 %d 失败：%w", track, err)
		}
		return nil
	})
}

// AnimationRecord 以持久化格式导出动画
func (e *Engine) AnimationRecord(ctx context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	err := e.call(ctx, func() error {
		anim, err := e.library.Get(name)
		if err != nil {
			return err
		}
		return animation.Encode(&buf, anim)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PutAnimation 解析持久化格式的动画，保存到存储目录并注册，同名动画被替换。
// 无法解析的条目被跳过并作为诊断信息返回。
func (e *Engine) PutAnimation(ctx context.Context, name string, r io.Reader) (animation.Info, []animation.Diagnostic, error) {
	if !store.ValidName(name) {
		return animation.Info{}, nil, fmt.Errorf("%w: %q", store.ErrInvalidName, name)
	}

	// 新动画在注册前不被主循环引用，解析和写文件都不需要进入主循环
	anim, diags, err := animation.Decode(r, e.decodeOptions(name))
	if err != nil {
		return animation.Info{}, diags, err
	}
	if e.store != nil {
		if err := e.store.Save(anim); err != nil {
			return animation.Info{}, diags, err
		}
	}

	var info animation.Info
	err = e.call(ctx, func() error {
		e.library.Register(anim, animation.SourceAPI)
		var err error
		info, err = e.library.Describe(name)
		return err
	})
	return info, diags, err
}

// DeleteAnimation 从动画库和存储目录中删除动画，正在播放时先停止
func (e *Engine) DeleteAnimation(ctx context.Context, name string) error {
	libErr := e.call(ctx, func() error {
		if current := e.player.Current(); current != nil && current.Name() == name {
			e.player.Stop()
		}
		return e.library.Remove(name)
	})
	if libErr != nil && !errors.Is(libErr, animation.ErrNotFound) {
		return libErr
	}

	removed := libErr == nil
	if e.store != nil && e.store.Exists(name) {
		if err := e.store.Delete(name); err != nil {
			return err
		}
		removed = true
	}
	if !removed {
		return libErr
	}
	slog.Info("🗑️ 动画已删除", "animation", name)
	return nil
}
