package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"animatronic/animation"
	"animatronic/audio"
	"animatronic/clock"
	"animatronic/config"
	"animatronic/define"
	"animatronic/driver"
	"animatronic/recorder"
	"animatronic/servo"
	"animatronic/store"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	engine *Engine
	clock  *clock.Mock
	driver *driver.Null
	audio  *audio.Null
	store  *store.Store
}

// newFixture 创建使用模拟时钟的引擎并启动主循环。周期设为一小时，
// 测试通过 advance 手动推进。
func newFixture(t *testing.T, setup func(cfg *define.Config, dir string)) *fixture {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "animations")
	cfg := config.GetDefaultConfig()
	cfg.Audio.StartupTrack = 0
	cfg.Storage.Dir = dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if setup != nil {
		setup(cfg, dir)
	}

	st, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		t:      t,
		clock:  clock.NewMock(0),
		driver: driver.NewNull(),
		audio:  audio.NewNull(),
		store:  st,
	}
	f.engine, err = New(Options{
		Config:     cfg,
		Driver:     f.driver,
		DriverName: "null",
		Clock:      f.clock,
		Audio:      f.audio,
		Store:      st,
		Tick:       time.Hour,
	})
	if err != nil {
		t.Fatalf("New 失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.ctx = ctx
	go f.engine.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-f.engine.Stopped()
	})
	return f
}

// advance 推进模拟时钟并执行一个周期
func (f *fixture) advance(ms int64) {
	f.t.Helper()
	f.clock.Advance(time.Duration(ms) * time.Millisecond)
	if err := f.engine.Do(f.ctx, f.engine.Step); err != nil {
		f.t.Fatalf("Step 失败: %v", err)
	}
}

func (f *fixture) position(name string) float64 {
	f.t.Helper()
	for _, r := range f.engine.Status().Servos {
		if r.Name == name {
			return r.Position
		}
	}
	f.t.Fatalf("舵机 %s 不存在", name)
	return 0
}

func (f *fixture) input(in recorder.Input, want recorder.State) {
	f.t.Helper()
	got, err := f.engine.RecorderInput(f.ctx, in)
	if err != nil {
		f.t.Fatalf("RecorderInput(%s) 失败: %v", in, err)
	}
	if got != want {
		f.t.Fatalf("RecorderInput(%s) 状态 = %s, 期望 %s", in, got, want)
	}
}

func TestNewLoadsLibrary(t *testing.T) {
	f := newFixture(t, func(cfg *define.Config, dir string) {
		os.WriteFile(filepath.Join(dir, "blink.anim"), []byte("# blink\nduration_ms: 200\nservo: eye_left\ntarget_scalar: 1\nramp_mode: 0\n"), 0o644)

		scriptPath := filepath.Join(filepath.Dir(dir), "extra.star")
		os.WriteFile(scriptPath, []byte(`animation("shrug", keyframe(500, shoulder_left=0.5, shoulder_right=0.5), pause(200))`), 0o644)
		cfg.Scripts = []string{scriptPath, filepath.Join(dir, "missing.star")}
	})

	infos, err := f.engine.Animations(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	sources := make(map[string]animation.Source)
	for _, info := range infos {
		sources[info.Name] = info.Source
	}
	want := map[string]animation.Source{
		"cock_left":     animation.SourceBuiltin,
		"cock_right":    animation.SourceBuiltin,
		"sad":           animation.SourceBuiltin,
		"curious_track": animation.SourceBuiltin,
		"wiggle_eyes":   animation.SourceBuiltin,
		"blink":         animation.SourceStore,
		"shrug":         animation.SourceScript,
	}
	for name, source := range want {
		if sources[name] != source {
			t.Errorf("动画 %s 来源 = %q, 期望 %q", name, sources[name], source)
		}
	}

	st := f.engine.Status()
	if st.Playing || st.Recording || len(st.Servos) != 12 || st.Driver != "null" {
		t.Errorf("初始状态 = %+v", st)
	}
}

func TestPlayDrivesServos(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.engine.Play(f.ctx, "wiggle_eyes"); err != nil {
		t.Fatalf("Play 失败: %v", err)
	}
	f.advance(0)
	f.advance(250)

	if pos := f.position("eye_left"); pos <= 0.2 || pos >= 0.3 {
		t.Errorf("250ms 时 eye_left = %v, 期望约 0.25", pos)
	}
	st := f.engine.Status()
	if !st.Playing || st.Animation != "wiggle_eyes" || st.Keyframe != 0 || st.Keyframes != 5 {
		t.Errorf("播放状态 = %+v", st)
	}

	for i := 0; i < 40; i++ {
		f.advance(100)
	}
	if f.engine.Status().Playing {
		t.Error("动画应已播放完毕")
	}
	if pos := f.position("eye_left"); pos != 0 {
		t.Errorf("结束时 eye_left = %v, 期望 0", pos)
	}
	if us, _ := f.driver.Pulse(13); us != 1500 {
		t.Errorf("eye_left 脉宽 = %d, 期望 1500", us)
	}
}

func TestPlayUnknown(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.engine.Play(f.ctx, "moonwalk"); !errors.Is(err, animation.ErrNotFound) {
		t.Errorf("Play 错误 = %v, 期望 ErrNotFound", err)
	}
}

func TestJogStopsPlayback(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.Play(f.ctx, "curious_track")
	f.advance(0)

	reading, err := f.engine.Jog(f.ctx, "neck_yaw", 0.5)
	if err != nil {
		t.Fatalf("Jog 失败: %v", err)
	}
	if reading.Position != 0.5 || reading.PulseUs != 2000 {
		t.Errorf("Jog 结果 = %+v", reading)
	}
	if us, _ := f.driver.Pulse(15); us != 2000 {
		t.Errorf("通道 15 脉宽 = %d", us)
	}
	if f.engine.Status().Playing {
		t.Error("Jog 应停止播放")
	}

	reading, _ = f.engine.Nudge(f.ctx, "neck_yaw", 0.75)
	if reading.Position != 1 {
		t.Errorf("Nudge 应限制在 1, 得到 %v", reading.Position)
	}

	if _, err := f.engine.Jog(f.ctx, "tail", 0); !errors.Is(err, servo.ErrNotFound) {
		t.Errorf("未知舵机错误 = %v", err)
	}

	if err := f.engine.Neutral(f.ctx); err != nil {
		t.Fatal(err)
	}
	if f.position("neck_yaw") != 0 {
		t.Error("Neutral 后应回到中位")
	}
}

func TestRecordingFlow(t *testing.T) {
	f := newFixture(t, nil)
	panel := recorder.NewSnapshotPanel()

	state, err := f.engine.BeginRecording(f.ctx, "wave", false, panel)
	if err != nil || state != recorder.StateEntry {
		t.Fatalf("BeginRecording = %v, %v", state, err)
	}
	if _, err := f.engine.BeginRecording(f.ctx, "other", false, nil); !errors.Is(err, ErrBusy) {
		t.Errorf("重复开始录制错误 = %v, 期望 ErrBusy", err)
	}
	if err := f.engine.Play(f.ctx, "sad"); !errors.Is(err, ErrBusy) {
		t.Errorf("录制中播放错误 = %v, 期望 ErrBusy", err)
	}
	if err := f.engine.RecorderCue(f.ctx, 3); !errors.Is(err, ErrCueRejected) {
		t.Errorf("进入录制前绑定音轨错误 = %v", err)
	}

	f.input(recorder.Up, recorder.StateRecording)
	f.engine.Jog(f.ctx, "neck_yaw", 0.5)
	f.input(recorder.Next, recorder.StateRecording)
	f.engine.Jog(f.ctx, "neck_yaw", -0.5)
	if err := f.engine.RecorderCue(f.ctx, 3); err != nil {
		t.Fatalf("RecorderCue 失败: %v", err)
	}

	snap := f.engine.RecorderSnapshot()
	if snap.Page != recorder.PageRecording || snap.Info.Keyframe != 1 || snap.Info.Keyframes != 2 {
		t.Errorf("录制页 = %+v", snap)
	}
	if panel.Snapshot().Page != recorder.PageRecording {
		t.Error("外部面板应同步收到录制页")
	}
	if st := f.engine.Status(); !st.Recording || st.RecorderState != "recording" {
		t.Errorf("录制状态 = %+v", st)
	}

	f.input(recorder.Done, recorder.StateSave)
	f.input(recorder.Done, recorder.StateDone)

	if f.engine.RecorderSnapshot().Page != recorder.PageClosed {
		t.Error("录制结束后面板应关闭")
	}
	if _, err := f.engine.RecorderInput(f.ctx, recorder.Up); !errors.Is(err, ErrNoSession) {
		t.Errorf("录制结束后输入错误 = %v", err)
	}

	infos, _ := f.engine.Animations(f.ctx)
	var found bool
	for _, info := range infos {
		if info.Name == "wave" {
			found = true
			if info.Keyframes != 2 || info.DurationMs != 3000 || info.Source != animation.SourceRecorded {
				t.Errorf("录制结果 = %+v", info)
			}
		}
	}
	if !found {
		t.Fatal("录制的动画未注册")
	}
	if !f.store.Exists("wave") {
		t.Error("录制的动画未写入存储目录")
	}

	record, err := f.engine.AnimationRecord(f.ctx, "wave")
	if err != nil {
		t.Fatal(err)
	}
	text := string(record)
	if !strings.Contains(text, "servo: neck_yaw\ntarget_scalar: 0.5\n") || !strings.Contains(text, "track_index: 3\n") {
		t.Errorf("导出的记录 =\n%s", text)
	}

	if err := f.engine.Play(f.ctx, "wave"); err != nil {
		t.Errorf("录制结束后应能播放: %v", err)
	}
}

func TestRecordingCancelAndAbort(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.engine.AbortRecording(f.ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("无录制时中止错误 = %v", err)
	}
	if _, err := f.engine.BeginRecording(f.ctx, "bad name", false, nil); !errors.Is(err, store.ErrInvalidName) {
		t.Errorf("非法名称错误 = %v", err)
	}
	if _, err := f.engine.BeginRecording(f.ctx, "nothing", true, nil); !errors.Is(err, animation.ErrNotFound) {
		t.Errorf("编辑不存在的动画错误 = %v", err)
	}

	f.engine.BeginRecording(f.ctx, "scratch", false, nil)
	f.input(recorder.Down, recorder.StateRecording)
	f.input(recorder.Cancel, recorder.StateCancel)
	f.input(recorder.Cancel, recorder.StateDone)
	if f.store.Exists("scratch") {
		t.Error("取消的录制不应保存")
	}
	if err := f.engine.Play(f.ctx, "scratch"); !errors.Is(err, animation.ErrNotFound) {
		t.Errorf("取消的录制不应注册: %v", err)
	}

	f.engine.BeginRecording(f.ctx, "scratch", false, nil)
	if err := f.engine.AbortRecording(f.ctx); err != nil {
		t.Fatal(err)
	}
	if f.engine.Status().Recording || f.engine.RecorderSnapshot().Page != recorder.PageClosed {
		t.Error("中止后应结束录制")
	}
}

func TestEditRecordingPreviews(t *testing.T) {
	f := newFixture(t, nil)

	before, _ := f.engine.AnimationRecord(f.ctx, "sad")

	f.engine.BeginRecording(f.ctx, "sad", true, nil)
	f.input(recorder.Left, recorder.StateRecording)

	st := f.engine.Status()
	if !st.Playing || st.Animation != "sad#preview" || st.Keyframes != 1 {
		t.Errorf("编辑时应预览第一帧: %+v", st)
	}

	f.input(recorder.Up, recorder.StateRecording)
	f.input(recorder.Cancel, recorder.StateCancel)
	f.input(recorder.Cancel, recorder.StateDone)

	after, _ := f.engine.AnimationRecord(f.ctx, "sad")
	if string(before) != string(after) {
		t.Error("取消编辑后原动画不应改变")
	}
}

func TestPutAndDeleteAnimation(t *testing.T) {
	f := newFixture(t, nil)

	record := "# nod\nduration_ms: 400\nservo: neck_pitch\ntarget_scalar: 0.25\nramp_mode: 1\n\nduration_ms: 600\nservo: tail\ntarget_scalar: 1\nramp_mode: 1\n"
	info, diags, err := f.engine.PutAnimation(f.ctx, "nod", strings.NewReader(record))
	if err != nil {
		t.Fatalf("PutAnimation 失败: %v", err)
	}
	if info.Keyframes != 2 || info.DurationMs != 1000 || info.Source != animation.SourceAPI {
		t.Errorf("info = %+v", info)
	}
	if len(diags) == 0 {
		t.Error("未知舵机应产生诊断信息")
	}
	if !f.store.Exists("nod") {
		t.Error("上传的动画未写入存储目录")
	}

	if _, _, err := f.engine.PutAnimation(f.ctx, "../nod", strings.NewReader(record)); !errors.Is(err, store.ErrInvalidName) {
		t.Errorf("非法名称错误 = %v", err)
	}

	f.engine.Play(f.ctx, "nod")
	if err := f.engine.DeleteAnimation(f.ctx, "nod"); err != nil {
		t.Fatalf("DeleteAnimation 失败: %v", err)
	}
	if f.engine.Status().Playing {
		t.Error("删除正在播放的动画应停止播放")
	}
	if f.store.Exists("nod") {
		t.Error("存储目录中的文件应被删除")
	}
	if err := f.engine.DeleteAnimation(f.ctx, "nod"); !errors.Is(err, animation.ErrNotFound) {
		t.Errorf("重复删除错误 = %v", err)
	}
}

func TestPlayTrack(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.engine.PlayTrack(f.ctx, 4); err != nil {
		t.Fatal(err)
	}
	if played := f.audio.Played(); len(played) != 1 || played[0] != 4 {
		t.Errorf("播放的音轨 = %v", played)
	}
}

func TestStartup(t *testing.T) {
	f := newFixture(t, func(cfg *define.Config, dir string) {
		cfg.Audio.StartupTrack = 2
		cfg.Startup = "wiggle_eyes"
	})

	// 第一次 Do 返回时启动流程已经完成
	if err := f.engine.Do(f.ctx, func() {}); err != nil {
		t.Fatal(err)
	}
	if played := f.audio.Played(); len(played) != 1 || played[0] != 2 {
		t.Errorf("开机音轨 = %v", played)
	}
	if st := f.engine.Status(); !st.Playing || st.Animation != "wiggle_eyes" {
		t.Errorf("开机动画未播放: %+v", st)
	}
}

func TestDoAfterStop(t *testing.T) {
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	e, err := New(Options{Config: config.GetDefaultConfig(), Clock: f.clock, Tick: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error)
	go func() { done <- e.Run(ctx) }()
	if err := e.Do(context.Background(), func() {}); err != nil {
		t.Fatal(err)
	}
	cancel()
	<-done

	if err := e.Play(context.Background(), "sad"); !errors.Is(err, ErrStopped) {
		t.Errorf("主循环停止后错误 = %v, 期望 ErrStopped", err)
	}
	if err := e.Run(context.Background()); err == nil {
		t.Error("Run 不能重复调用")
	}
	if e.Status().Running {
		t.Error("停止后状态应为未运行")
	}
}
