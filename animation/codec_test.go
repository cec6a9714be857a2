package animation

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"animatronic/audio"
	"animatronic/clock"
	"animatronic/ramp"
)

// TestCodecRoundTrip 编码后再解码，关键帧数量、时长与目标保持一致
func TestCodecRoundTrip(t *testing.T) {
	clk := clock.NewMock(0)
	rig := newTestRig(t, clk, "neck_yaw", "eye_left", "eye_right")

	orig := New("wave", clk)
	kf1 := NewKeyframe(1500)
	kf1.SetTarget(mustServo(t, rig, "neck_yaw"), -0.123456789012345, ramp.QuadraticInOut)
	kf1.SetTarget(mustServo(t, rig, "eye_left"), 1, ramp.BounceOut)
	kf1.BindEffect(TrackCue{Track: 12})
	orig.Add(kf1)
	orig.Add(NewKeyframe(0))
	kf3 := NewKeyframe(999000)
	kf3.SetTarget(mustServo(t, rig, "eye_right"), 0.1+0.2, ramp.None)
	kf3.BindEffect(EffectFunc(func() {}))
	orig.Add(kf3)

	var buf bytes.Buffer
	if err := Encode(&buf, orig); err != nil {
		t.Fatalf("Encode 失败: %v", err)
	}

	player := audio.NewNull()
	decoded, diags, err := Decode(&buf, DecodeOptions{
		Name:    "wave",
		Clock:   clk,
		Resolve: RigResolver(rig),
		Cue:     func(track int) Effect { return TrackCue{Track: track, Player: player} },
	})
	if err != nil || len(diags) != 0 {
		t.Fatalf("Decode 失败: %v, %v", err, diags)
	}

	origKfs, gotKfs := orig.Keyframes(), decoded.Keyframes()
	if len(gotKfs) != len(origKfs) {
		t.Fatalf("关键帧数量 = %d, 期望 %d", len(gotKfs), len(origKfs))
	}
	for i := range origKfs {
		if gotKfs[i].Duration() != origKfs[i].Duration() {
			t.Errorf("第 %d 帧时长 = %d, 期望 %d", i, gotKfs[i].Duration(), origKfs[i].Duration())
		}
		want := origKfs[i].Targets()
		got := gotKfs[i].Targets()
		if len(got) != len(want) {
			t.Fatalf("第 %d 帧目标数量 = %d, 期望 %d", i, len(got), len(want))
		}
		for j := range want {
			if got[j].Actuator.Name() != want[j].Actuator.Name() || got[j].Position != want[j].Position || got[j].Mode != want[j].Mode {
				t.Errorf("第 %d 帧目标 %d = %+v, 期望 %+v", i, j, got[j], want[j])
			}
		}
	}

	cue, ok := gotKfs[0].Effect().(TrackCue)
	if !ok || cue.Track != 12 || cue.Player != player {
		t.Errorf("音轨副作用 = %#v", gotKfs[0].Effect())
	}
	// 非音轨副作用不持久化
	if gotKfs[2].Effect() != nil {
		t.Errorf("第 3 帧不应有副作用, 得到 %#v", gotKfs[2].Effect())
	}
}

func TestEncodeFormat(t *testing.T) {
	clk := clock.NewMock(0)
	rig := newTestRig(t, clk, "eye_left")

	anim := New("nod", clk)
	kf := NewKeyframe(1000)
	kf.SetTarget(mustServo(t, rig, "eye_left"), 0.5, ramp.Linear)
	kf.BindEffect(TrackCue{Track: 3})
	anim.Add(kf)

	var buf bytes.Buffer
	Encode(&buf, anim)
	want := "# nod\nduration_ms: 1000\ntrack_index: 3\nservo: eye_left\ntarget_scalar: 0.5\nramp_mode: 1\n"
	if buf.String() != want {
		t.Errorf("编码结果 =\n%s\n期望\n%s", buf.String(), want)
	}
}

// TestDecodeDiagnostics 无效条目被跳过，其余内容继续解析
func TestDecodeDiagnostics(t *testing.T) {
	clk := clock.NewMock(0)
	rig := newTestRig(t, clk, "eye_left", "eye_right")

	record := strings.Join([]string{
		"target_scalar: 0.3", // 2: 孤立行
		"duration_ms: 800",
		"servo: tail", // 4: 未知舵机
		"target_scalar: 0.9",
		"ramp_mode: 1",
		"servo: eye_left",
		"target_scalar: abc", // 8: 无效数字
		"ramp_mode: 1",
		"servo: eye_right",
		"target_scalar: -0.25",
		"ramp_mode: 99", // 12: 未知缓动
		"bogus: 1",      // 13: 未知字段
		"no colon here", // 14: 无法识别
		"",
		"# comment",
		"duration_ms: 400",
		"track_index: 2",
		"servo: eye_right",
		"target_scalar: -0.25",
		"ramp_mode: 7",
		"duration_ms: soon", // 22: 无效时长
		"servo: eye_left",
		"target_scalar: 1",
		"ramp_mode: 1",
	}, "\n")
	record = "# test\n" + record

	anim, diags, err := Decode(strings.NewReader(record), DecodeOptions{Name: "diag", Clock: clk, Resolve: RigResolver(rig)})
	if err != nil {
		t.Fatalf("Decode 返回错误: %v", err)
	}

	wantLines := []int{2, 4, 8, 12, 13, 14, 22}
	if len(diags) != len(wantLines) {
		t.Fatalf("诊断数量 = %d, 期望 %d: %v", len(diags), len(wantLines), diags)
	}
	for i, line := range wantLines {
		if diags[i].Line != line {
			t.Errorf("诊断 %d 行号 = %d, 期望 %d (%s)", i, diags[i].Line, line, diags[i])
		}
	}

	kfs := anim.Keyframes()
	if len(kfs) != 3 {
		t.Fatalf("关键帧数量 = %d, 期望 3", len(kfs))
	}
	if kfs[0].Duration() != 800 || kfs[0].Len() != 0 {
		t.Errorf("第一帧 = %d ms, %d 个目标", kfs[0].Duration(), kfs[0].Len())
	}
	if kfs[1].Duration() != 400 || kfs[1].Len() != 1 {
		t.Fatalf("第二帧 = %d ms, %d 个目标", kfs[1].Duration(), kfs[1].Len())
	}
	if tgt, _ := kfs[1].Target("eye_right"); tgt.Position != -0.25 || tgt.Mode != ramp.CubicInOut {
		t.Errorf("第二帧目标 = %+v", tgt)
	}
	if cue, ok := kfs[1].Effect().(TrackCue); !ok || cue.Track != 2 {
		t.Errorf("第二帧副作用 = %#v", kfs[1].Effect())
	}
	// 时长无效的关键帧保留，时长为 0
	if kfs[2].Duration() != 0 || kfs[2].Len() != 1 {
		t.Fatalf("第三帧 = %d ms, %d 个目标", kfs[2].Duration(), kfs[2].Len())
	}
	if tgt, ok := kfs[2].Target("eye_left"); !ok || tgt.Position != 1 {
		t.Errorf("第三帧目标 = %+v", tgt)
	}
}

// TestDecodeInvalidDuration 两种写法下时长无效的关键帧都保留其条目
func TestDecodeInvalidDuration(t *testing.T) {
	clk := clock.NewMock(0)
	rig := newTestRig(t, clk, "eye_left", "eye_right")

	tests := []struct {
		name   string
		record string
	}{
		{
			name: "duration_ms 开始关键帧",
			record: `duration_ms: 500
servo: eye_left
target_scalar: 0.2
duration_ms: 1o00
servo: eye_right
target_scalar: 0.7
servo: bogus
target_scalar: 0.1
duration_ms: 300
servo: eye_left
target_scalar: -0.5
`,
		},
		{
			name: "显式标记",
			record: `keyframe_start
duration_ms: 500
servo: eye_left
target_scalar: 0.2
keyframe_end
keyframe_start
duration_ms: 1o00
servo: eye_right
target_scalar: 0.7
servo: bogus
target_scalar: 0.1
keyframe_end
keyframe_start
duration_ms: 300
servo: eye_left
target_scalar: -0.5
keyframe_end
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anim, diags, err := Decode(strings.NewReader(tt.record), DecodeOptions{Name: "dur", Clock: clk, Resolve: RigResolver(rig)})
			if err != nil {
				t.Fatalf("Decode 返回错误: %v", err)
			}

			reasons := []string{"无效的时长", "未知的舵机"}
			if len(diags) != len(reasons) {
				t.Fatalf("诊断 = %v, 期望 %d 条", diags, len(reasons))
			}
			for i, reason := range reasons {
				if diags[i].Reason != reason {
					t.Errorf("诊断 %d = %s, 期望原因 %s", i, diags[i], reason)
				}
			}

			kfs := anim.Keyframes()
			durations := []int64{500, 0, 300}
			if len(kfs) != len(durations) {
				t.Fatalf("关键帧数量 = %d, 期望 %d", len(kfs), len(durations))
			}
			for i, d := range durations {
				if kfs[i].Duration() != d {
					t.Errorf("第 %d 帧时长 = %d, 期望 %d", i, kfs[i].Duration(), d)
				}
			}
			if kfs[1].Len() != 1 {
				t.Fatalf("第二帧目标数量 = %d, 期望 1", kfs[1].Len())
			}
			if tgt, ok := kfs[1].Target("eye_right"); !ok || tgt.Position != 0.7 {
				t.Errorf("第二帧目标 = %+v", tgt)
			}
		})
	}
}

// TestDecodeLongLine 超长行被跳过并记录诊断，后续内容继续解析
func TestDecodeLongLine(t *testing.T) {
	clk := clock.NewMock(0)
	rig := newTestRig(t, clk, "eye_left")

	record := "# " + strings.Repeat("x", 200*1024) + "\n" +
		"duration_ms: 250\n" +
		"servo: eye_left\n" +
		"target_scalar: 0.5\n"
	anim, diags, err := Decode(strings.NewReader(record), DecodeOptions{Name: "long", Clock: clk, Resolve: RigResolver(rig)})
	if err != nil {
		t.Fatalf("超长行不应中止解码: %v", err)
	}
	if len(diags) != 1 || diags[0].Line != 1 || diags[0].Reason != "行过长" {
		t.Fatalf("诊断 = %v", diags)
	}
	if len(diags[0].Text) > 128 {
		t.Errorf("诊断文本过长: %d 字节", len(diags[0].Text))
	}

	kfs := anim.Keyframes()
	if len(kfs) != 1 || kfs[0].Duration() != 250 {
		t.Fatalf("关键帧 = %v", kfs)
	}
	if tgt, ok := kfs[0].Target("eye_left"); !ok || tgt.Position != 0.5 {
		t.Errorf("目标 = %+v", tgt)
	}
}

// TestDecodeMarkers 显式标记与 track_index 位置
func TestDecodeMarkers(t *testing.T) {
	clk := clock.NewMock(0)
	rig := newTestRig(t, clk, "eye_left")

	record := `keyframe_start
servo: eye_left
target_scalar: 0.4
ramp_mode: 4
duration_ms: 1200
track_index: 5
keyframe_end
keyframe_start
duration_ms: 300
keyframe_end
duration_ms: 50
duration_ms: 60
servo: eye_left
target_scalar: -1
`
	anim, diags, err := Decode(strings.NewReader(record), DecodeOptions{Name: "markers", Clock: clk, Resolve: RigResolver(rig)})
	if err != nil || len(diags) != 0 {
		t.Fatalf("Decode: %v, %v", err, diags)
	}

	kfs := anim.Keyframes()
	durations := []int64{1200, 300, 50, 60}
	if len(kfs) != len(durations) {
		t.Fatalf("关键帧数量 = %d, 期望 %d", len(kfs), len(durations))
	}
	for i, d := range durations {
		if kfs[i].Duration() != d {
			t.Errorf("第 %d 帧时长 = %d, 期望 %d", i, kfs[i].Duration(), d)
		}
	}
	if tgt, ok := kfs[0].Target("eye_left"); !ok || tgt.Position != 0.4 || tgt.Mode != ramp.QuadraticInOut {
		t.Errorf("第一帧目标 = %+v", tgt)
	}
	if cue, ok := kfs[0].Effect().(TrackCue); !ok || cue.Track != 5 {
		t.Errorf("第一帧副作用 = %#v", kfs[0].Effect())
	}
	// 缺少 ramp_mode 时使用默认缓动
	if tgt, ok := kfs[3].Target("eye_left"); !ok || tgt.Position != -1 || tgt.Mode != ramp.Default {
		t.Errorf("最后一帧目标 = %+v", tgt)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("磁盘错误") }

func TestDecodeReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader("duration_ms: 10\n"), failingReader{})
	anim, _, err := Decode(r, DecodeOptions{Name: "broken", Clock: clock.NewMock(0)})
	if err == nil || anim != nil {
		t.Fatalf("读取错误应中止解码, anim=%v err=%v", anim, err)
	}
}
