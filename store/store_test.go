package store

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"animatronic/animation"
	"animatronic/clock"
	"animatronic/ramp"
	"animatronic/servo"
)

func newTestAnimation(t *testing.T, name string) (*animation.Animation, animation.Resolver) {
	t.Helper()
	clk := clock.NewMock(0)
	rig := servo.NewRig()
	s := servo.New("neck_yaw", 15, servo.Calibration{MinUs: 700, NeutralUs: 1500, MaxUs: 2500}, nil, clk)
	if err := rig.Register(s); err != nil {
		t.Fatal(err)
	}

	anim := animation.New(name, clk)
	kf := animation.NewKeyframe(1200)
	kf.SetTarget(s, -0.5, ramp.SinusoidalInOut)
	anim.Add(kf)
	anim.Add(animation.NewKeyframe(300))
	return anim, animation.RigResolver(rig)
}

func TestSaveLoad(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "animations"))
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}

	anim, resolve := newTestAnimation(t, "look_left")
	if err := st.Save(anim); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if !st.Exists("look_left") || st.Exists("look_right") {
		t.Error("Exists 结果不正确")
	}

	loaded, diags, err := st.Load("look_left", animation.DecodeOptions{Resolve: resolve, Clock: clock.NewMock(0)})
	if err != nil || len(diags) != 0 {
		t.Fatalf("Load 失败: %v, %v", err, diags)
	}
	if loaded.Name() != "look_left" || loaded.Len() != 2 || loaded.DurationMs() != 1500 {
		t.Errorf("加载结果: %s %d 帧 %d ms", loaded.Name(), loaded.Len(), loaded.DurationMs())
	}

	// 不留下临时文件
	entries, _ := os.ReadDir(st.Dir())
	if len(entries) != 1 {
		t.Errorf("目录中文件数量 = %d, 期望 1", len(entries))
	}
}

func TestListAndDelete(t *testing.T) {
	st, _ := Open(t.TempDir())
	for _, name := range []string{"wave", "nod", "a-b_c"} {
		anim, _ := newTestAnimation(t, name)
		if err := st.Save(anim); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(st.Dir(), "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(st.Dir(), "bad name.anim"), []byte("x"), 0o644)

	names, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"a-b_c", "nod", "wave"}) {
		t.Errorf("List() = %v", names)
	}

	if err := st.Delete("nod"); err != nil {
		t.Errorf("Delete 失败: %v", err)
	}
	if err := st.Delete("nod"); !errors.Is(err, ErrNotFound) {
		t.Errorf("重复删除错误 = %v, 期望 ErrNotFound", err)
	}
	if _, _, err := st.Load("nod", animation.DecodeOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("加载不存在的动画错误 = %v", err)
	}
}

func TestInvalidNames(t *testing.T) {
	st, _ := Open(t.TempDir())
	for _, name := range []string{"", "../etc", "with space", "dot.name", string(make([]byte, 65))} {
		anim, _ := newTestAnimation(t, name)
		if err := st.Save(anim); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q) 错误 = %v, 期望 ErrInvalidName", name, err)
		}
	}
	if !ValidName("cock_left") || !ValidName("Take-2") {
		t.Error("合法名称被拒绝")
	}
}

func TestSaveFileFailure(t *testing.T) {
	anim, _ := newTestAnimation(t, "x")
	if err := SaveFile(filepath.Join(t.TempDir(), "missing", "x.anim"), anim); err == nil {
		t.Error("目录不存在时应返回错误")
	}
}

func TestLoadFileDefaultsName(t *testing.T) {
	dir := t.TempDir()
	anim, resolve := newTestAnimation(t, "orig")
	path := filepath.Join(dir, "renamed.anim")
	if err := SaveFile(path, anim); err != nil {
		t.Fatal(err)
	}
	loaded, _, err := LoadFile(path, animation.DecodeOptions{Resolve: resolve})
	if err != nil || loaded.Name() != "renamed" {
		t.Errorf("LoadFile = %v, %v", loaded, err)
	}
}
