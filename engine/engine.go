package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"animatronic/animation"
	"animatronic/audio"
	"animatronic/clock"
	"animatronic/define"
	"animatronic/recorder"
	"animatronic/script"
	"animatronic/servo"
	"animatronic/store"
)

var (
	// ErrBusy 录制进行中，不能播放或开始新的录制
	ErrBusy = errors.New("录制进行中")
	// ErrNoSession 没有进行中的录制
	ErrNoSession = errors.New("没有进行中的录制")
	// ErrStopped 主循环未运行
	ErrStopped = errors.New("主循环未运行")
)

// Options 创建引擎所需的外部依赖
type Options struct {
	Config *define.Config
	Driver servo.Driver
	// DriverName 仅用于状态展示
	DriverName string
	Clock      clock.Clock
	// Audio 为 nil 时使用不发声的播放器
	Audio audio.TrackPlayer
	// Store 为 nil 时动画只保存在内存中
	Store *store.Store
	// Tick 覆盖配置中的主循环周期
	Tick time.Duration
}

type task struct {
	fn   func()
	done chan struct{}
}

// Engine 单个协程独占舵机、播放器、动画库和录制会话。其他协程通过 Do
// 提交闭包，闭包在两次 Step 之间执行。
type Engine struct {
	cfg        *define.Config
	clock      clock.Clock
	driverName string
	rig        *servo.Rig
	player     *animation.Player
	library    *animation.Library
	store      *store.Store
	audio      audio.TrackPlayer
	recOpts    recorder.Options
	tick       time.Duration

	session  *session
	snapshot *recorder.SnapshotPanel
	ticks    uint64
	started  int64

	tasks   chan task
	stopped chan struct{}
	running atomic.Bool
	ran     atomic.Bool
	status  atomic.Pointer[Status]
}

// New 创建舵机组并加载内置动画、脚本和已保存的动画
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("缺少配置")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	player := opts.Audio
	if player == nil {
		player = audio.NewNull()
	}

	recOpts, err := recorder.OptionsFromConfig(cfg.Recorder)
	if err != nil {
		return nil, fmt.Errorf("录制器配置无效：%w", err)
	}
	rig, err := servo.BuildRig(cfg.Servos, opts.Driver, clk)
	if err != nil {
		return nil, fmt.Errorf("创建舵机组失败：%w", err)
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = time.Duration(cfg.TickMs) * time.Millisecond
	}
	if tick <= 0 {
		tick = 20 * time.Millisecond
	}

	e := &Engine{
		cfg:        cfg,
		clock:      clk,
		driverName: opts.DriverName,
		rig:        rig,
		player:     animation.NewPlayer(),
		library:    animation.NewLibrary(),
		store:      opts.Store,
		audio:      player,
		recOpts:    recOpts,
		tick:       tick,
		snapshot:   recorder.NewSnapshotPanel(),
		started:    clk.NowMs(),
		tasks:      make(chan task),
		stopped:    make(chan struct{}),
	}

	e.loadLibrary()
	e.publish()
	slog.Info("✅ 动画引擎已创建", "servos", rig.Len(), "animations", len(e.library.Names()), "tick", tick)
	return e, nil
}

// Rig 舵机组，只读访问是并发安全的
func (e *Engine) Rig() *servo.Rig { return e.rig }

// Resolver 按名称解析舵机
func (e *Engine) Resolver() animation.Resolver { return animation.RigResolver(e.rig) }

// Cue 绑定到本引擎音频输出的音轨副作用
func (e *Engine) Cue(track int) animation.Effect {
	return animation.TrackCue{Track: track, Player: e.audio}
}

func (e *Engine) decodeOptions(name string) animation.DecodeOptions {
	return animation.DecodeOptions{Name: name, Clock: e.clock, Resolve: e.Resolver(), Cue: e.Cue}
}

// loadLibrary 依次加载内置动画、脚本和存储目录，后加载的同名动画覆盖先加载的
func (e *Engine) loadLibrary() {
	animation.RegisterBuiltins(e.library, e.Resolver(), e.clock)

	for _, path := range e.cfg.Scripts {
		anims, err := script.LoadFile(path, script.Options{
			Clock:   e.clock,
			Resolve: e.Resolver(),
			Servos:  e.rig.Names(),
			Cue:     e.Cue,
		})
		if err != nil {
			slog.Error("❌ 加载动画脚本失败", "script", path, "error", err)
			continue
		}
		for _, anim := range anims {
			e.library.Register(anim, animation.SourceScript)
		}
	}

	if e.store == nil {
		return
	}
	names, err := e.store.List()
	if err != nil {
		slog.Error("❌ 读取动画目录失败", "error", err)
		return
	}
	for _, name := range names {
		anim, _, err := e.store.Load(name, e.decodeOptions(name))
		if err != nil {
			slog.Error("❌ 加载动画失败", "animation", name, "error", err)
			continue
		}
		e.library.Register(anim, animation.SourceStore)
	}
}

// Run 运行主循环直到 ctx 结束，只能调用一次。启动时播放配置的开机音轨和开机动画。
func (e *Engine) Run(ctx context.Context) error {
	if !e.ran.CompareAndSwap(false, true) {
		return errors.New("主循环只能运行一次")
	}
	e.running.Store(true)
	defer close(e.stopped)

	e.startup()
	e.publish()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	slog.Info("🚀 主循环已启动", "tick", e.tick)
	for {
		select {
		case <-ctx.Done():
			e.player.Stop()
			if e.session != nil {
				e.endSession()
			}
			e.running.Store(false)
			e.publish()
			slog.Info("🛑 主循环已停止")
			return nil
		case t := <-e.tasks:
			t.fn()
			e.publish()
			close(t.done)
		case <-ticker.C:
			e.Step()
		}
	}
}

func (e *Engine) startup() {
	if track := e.cfg.Audio.StartupTrack; track > 0 {
		if err := e.audio.PlayTrack(track); err != nil {
			slog.Warn("⚠️ 开机音轨播放失败", "track", track, "error", err)
		}
	}
	if name := e.cfg.Startup; name != "" {
		anim, err := e.library.Get(name)
		if err != nil {
			slog.Warn("⚠️ 开机动画不存在", "animation", name)
			return
		}
		e.player.Play(anim)
		slog.Info("▶️ 播放开机动画", "animation", name)
	}
}

// Step 推进一个周期，只能在主循环中调用
func (e *Engine) Step() {
	if finished := e.player.Update(); finished != nil {
		slog.Debug("✅ 动画播放完成", "animation", finished.Name())
	}
	e.ticks++
	e.publish()
}

// Stopped 主循环退出后关闭
func (e *Engine) Stopped() <-chan struct{} { return e.stopped }

// Do 在主循环中执行 fn 并等待其完成。主循环尚未启动时阻塞到启动为止。
func (e *Engine) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case e.tasks <- t:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// 已提交的闭包总会执行完
	<-t.done
	return nil
}
