package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animatronic/define"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("默认配置校验失败: %v", err)
	}
	if len(cfg.Servos) != 12 {
		t.Errorf("默认舵机数量 = %d, 期望 12", len(cfg.Servos))
	}
	if cfg.Servos[0].Name != "neck_yaw" || cfg.Servos[0].Channel != 15 || cfg.Servos[0].MinUs != 700 {
		t.Errorf("第一个舵机 = %+v", cfg.Servos[0])
	}
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8088
driver:
  kind: ssc32
  serial_port: /dev/ttyACM0
servos:
  - name: jaw
    channel: 0
    min_us: 900
    neutral_us: 1400
    max_us: 2100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig 失败: %v", err)
	}
	if cfg.Server.Port != 8088 || cfg.Server.Host != "0.0.0.0" || !cfg.Server.EnableCORS {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Driver.Kind != "ssc32" || cfg.Driver.SerialPort != "/dev/ttyACM0" || cfg.Driver.Baud != 115200 {
		t.Errorf("driver = %+v", cfg.Driver)
	}
	if len(cfg.Servos) != 1 || cfg.Servos[0].Name != "jaw" {
		t.Errorf("servos = %+v", cfg.Servos)
	}
	if cfg.TickMs != 20 || cfg.Recorder.DefaultKeyframeMs != 1500 {
		t.Errorf("未设置的字段应保留默认值: tick=%d recorder=%+v", cfg.TickMs, cfg.Recorder)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("文件不存在时应返回错误")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("server: [1, 2"), 0o644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("YAML 格式错误时应返回错误")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("tick_ms: 0\n"), 0o644)
	if _, err := LoadConfig(invalid); err == nil {
		t.Error("校验失败时应返回错误")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *define.Config)
		want   string
	}{
		{"端口", func(c *define.Config) { c.Server.Port = 0 }, "端口"},
		{"周期", func(c *define.Config) { c.TickMs = -1 }, "主循环"},
		{"驱动", func(c *define.Config) { c.Driver.Kind = "" }, "驱动"},
		{"重名", func(c *define.Config) { c.Servos[1].Name = c.Servos[0].Name }, "重复"},
		{"通道冲突", func(c *define.Config) { c.Servos[1].Channel = c.Servos[0].Channel }, "相同通道"},
		{"标定", func(c *define.Config) { c.Servos[0].MinUs = 1600 }, "脉宽标定"},
		{"缓动", func(c *define.Config) { c.Recorder.RampMode = "wobble" }, "录制器"},
		{"音量", func(c *define.Config) { c.Audio.Volume = 1.5 }, "音量"},
		{"无舵机", func(c *define.Config) { c.Servos = nil }, "至少"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, 期望包含 %q", err, tt.want)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := GetDefaultConfig()
	cfg.Startup = "wiggle_eyes"
	cfg.Scripts = []string{"scripts/greet.star"}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig 失败: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig 失败: %v", err)
	}
	if loaded.Startup != "wiggle_eyes" || len(loaded.Scripts) != 1 || len(loaded.Servos) != 12 {
		t.Errorf("往返结果不一致: %+v", loaded)
	}
	if loaded.Driver.I2CAddress != 0x40 {
		t.Errorf("I2C 地址 = %#x", loaded.Driver.I2CAddress)
	}
}
