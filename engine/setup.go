package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"animatronic/audio"
	"animatronic/define"
	"animatronic/driver"
	"animatronic/store"
)

// Resources 引擎持有的外部资源，退出时统一关闭
type Resources struct {
	closers []io.Closer
}

func (r *Resources) add(c io.Closer) { r.closers = append(r.closers, c) }

// Close 按创建的逆序关闭资源
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// FromConfig 按配置创建驱动、音频播放器和动画存储，再创建引擎。
// 音频设备不可用时退回静音播放器，引擎仍可运行。
func FromConfig(cfg *define.Config) (*Engine, *Resources, error) {
	res := &Resources{}

	drv, err := driver.CreateDriver(cfg.Driver)
	if err != nil {
		return nil, nil, fmt.Errorf("创建舵机驱动失败：%w", err)
	}
	res.add(drv)
	slog.Info("🔌 舵机驱动已就绪", "driver", drv.Name())

	var player audio.TrackPlayer
	if cfg.Audio.Enabled {
		oto, err := audio.NewOtoPlayer(cfg.Audio)
		if err != nil {
			slog.Warn("⚠️ 音频不可用，使用静音播放器", "error", err)
		} else {
			res.add(oto)
			player = oto
		}
	}

	st, err := store.Open(cfg.Storage.Dir)
	if err != nil {
		res.Close()
		return nil, nil, err
	}

	e, err := New(Options{
		Config:     cfg,
		Driver:     drv,
		DriverName: drv.Name(),
		Audio:      player,
		Store:      st,
	})
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	return e, res, nil
}
