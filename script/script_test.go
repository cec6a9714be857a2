package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animatronic/animation"
	"animatronic/audio"
	"animatronic/clock"
	"animatronic/ramp"
	"animatronic/servo"
)

func newOptions(t *testing.T) (Options, *audio.Null) {
	t.Helper()
	clk := clock.NewMock(0)
	rig := servo.NewRig()
	for i, name := range []string{"neck_yaw", "eye_left", "eye_right"} {
		s := servo.New(name, i, servo.Calibration{MinUs: 1000, NeutralUs: 1500, MaxUs: 2000}, nil, clk)
		if err := rig.Register(s); err != nil {
			t.Fatal(err)
		}
	}
	player := audio.NewNull()
	return Options{
		Clock:   clk,
		Resolve: animation.RigResolver(rig),
		Servos:  rig.Names(),
		Cue: func(track int) animation.Effect {
			return animation.TrackCue{Track: track, Player: player}
		},
	}, player
}

func TestLoadDefinesAnimations(t *testing.T) {
	opts, player := newOptions(t)
	src := `
look = keyframe(800, neck_yaw=-0.5, eye_left=target(0.3, "linear"), ramp="sinusoidal_inout")
center = keyframe(duration_ms=400, neck_yaw=0, eye_left=0, track=7)

animation("glance", look, pause(250), center)
animation("double_glance", look, center, look, center)

print("servos:", len(servos))
`
	anims, err := Load("glance.star", []byte(src), opts)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if len(anims) != 2 {
		t.Fatalf("动画数量 = %d, 期望 2", len(anims))
	}

	glance := anims[0]
	if glance.Name() != "glance" || glance.Len() != 3 || glance.DurationMs() != 1450 {
		t.Errorf("glance = %s %d 帧 %d ms", glance.Name(), glance.Len(), glance.DurationMs())
	}

	first := glance.Keyframes()[0]
	yaw, ok := first.Target("neck_yaw")
	if !ok || yaw.Position != -0.5 || yaw.Mode != ramp.SinusoidalInOut {
		t.Errorf("neck_yaw 目标 = %+v", yaw)
	}
	eye, _ := first.Target("eye_left")
	if eye.Position != 0.3 || eye.Mode != ramp.Linear {
		t.Errorf("target() 应覆盖关键帧的缓动: %+v", eye)
	}
	if glance.Keyframes()[1].Len() != 0 {
		t.Error("pause 不应包含目标")
	}

	last := glance.Keyframes()[2]
	if last.Effect() == nil {
		t.Fatal("track 未绑定副作用")
	}
	last.Effect().Fire()
	if played := player.Played(); len(played) != 1 || played[0] != 7 {
		t.Errorf("播放的音轨 = %v", played)
	}

	// 同一关键帧值在多个位置使用，各自独立
	double := anims[1]
	if double.Len() != 4 || double.Keyframes()[0] == double.Keyframes()[2] {
		t.Error("重复使用的关键帧应被复制")
	}
}

func TestLoadSkipsUnknownServo(t *testing.T) {
	opts, _ := newOptions(t)
	anims, err := Load("t.star", []byte(`animation("x", keyframe(100, tail=0.5, neck_yaw=1))`), opts)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	kf := anims[0].Keyframes()[0]
	if kf.Len() != 1 {
		t.Errorf("目标数量 = %d, 期望 1", kf.Len())
	}
}

func TestLoadRedefinitionReplaces(t *testing.T) {
	opts, _ := newOptions(t)
	anims, err := Load("t.star", []byte(`
animation("x", pause(100))
animation("y", pause(100))
animation("x", pause(100), pause(200))
`), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(anims) != 2 || anims[0].Name() != "x" || anims[0].Len() != 2 {
		t.Errorf("重复定义结果不正确: %d", len(anims))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"语法错误", `animation("x"`, "执行脚本"},
		{"负时长", `keyframe(-1)`, "duration_ms"},
		{"缺少时长", `keyframe(neck_yaw=1)`, "缺少 duration_ms"},
		{"未知缓动", `keyframe(100, ramp="wobble")`, "缓动"},
		{"缓动编号越界", `keyframe(100, ramp=99)`, "缓动编号"},
		{"目标类型", `keyframe(100, neck_yaw="left")`, "neck_yaw"},
		{"关键帧类型", `animation("x", 5)`, "类型错误"},
		{"空名称", `animation("")`, "非空"},
		{"多余位置参数", `keyframe(100, 0.5)`, "关键字参数"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, _ := newOptions(t)
			anims, err := Load("bad.star", []byte(tt.src), opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() 错误 = %v, 期望包含 %q", err, tt.want)
			}
			if anims != nil {
				t.Error("脚本出错时不应返回动画")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	opts, _ := newOptions(t)
	path := filepath.Join(t.TempDir(), "nod.star")
	os.WriteFile(path, []byte(`animation("nod", keyframe(300, neck_yaw=0.2, ramp=0))`), 0o644)

	anims, err := LoadFile(path, opts)
	if err != nil || len(anims) != 1 {
		t.Fatalf("LoadFile = %v, %v", anims, err)
	}
	yaw, _ := anims[0].Keyframes()[0].Target("neck_yaw")
	if yaw.Mode != ramp.None {
		t.Errorf("缓动编号 0 应解析为 None, 得到 %v", yaw.Mode)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.star"), opts); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}
