package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"animatronic/define"
	"animatronic/recorder"
	"animatronic/servo"
)

// LoadConfig 从 YAML 文件加载配置，文件中未出现的字段保留默认值
func LoadConfig(configPath string) (*define.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败：%w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败：%w", err)
	}

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig 保存配置到文件
func SaveConfig(config *define.Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("创建配置文件失败：%w", err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("保存配置文件失败：%w", err)
	}
	return encoder.Close()
}

// Validate 检查配置是否可用
func Validate(config *define.Config) error {
	var errs []error

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("无效的端口：%d", config.Server.Port))
	}
	if config.TickMs <= 0 {
		errs = append(errs, fmt.Errorf("主循环周期必须为正：%d", config.TickMs))
	}
	if config.Driver.Kind == "" {
		errs = append(errs, errors.New("未指定舵机驱动"))
	}
	if len(config.Servos) == 0 {
		errs = append(errs, errors.New("至少需要配置一个舵机"))
	}

	names := make(map[string]bool, len(config.Servos))
	channels := make(map[int]string, len(config.Servos))
	for _, s := range config.Servos {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("通道 %d 的舵机缺少名称", s.Channel))
			continue
		}
		if names[s.Name] {
			errs = append(errs, fmt.Errorf("舵机名称重复：%s", s.Name))
		}
		names[s.Name] = true
		if other, ok := channels[s.Channel]; ok {
			errs = append(errs, fmt.Errorf("舵机 %s 与 %s 使用相同通道 %d", s.Name, other, s.Channel))
		}
		channels[s.Channel] = s.Name
		if s.Channel < 0 {
			errs = append(errs, fmt.Errorf("舵机 %s 通道无效：%d", s.Name, s.Channel))
		}
		cal := servo.Calibration{MinUs: s.MinUs, NeutralUs: s.NeutralUs, MaxUs: s.MaxUs}
		if err := cal.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("舵机 %s：%w", s.Name, err))
		}
	}

	if _, err := recorder.OptionsFromConfig(config.Recorder); err != nil {
		errs = append(errs, fmt.Errorf("录制器配置：%w", err))
	}
	if config.Audio.Volume < 0 || config.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("音量必须在 0 到 1 之间：%g", config.Audio.Volume))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置校验失败：%w", errors.Join(errs...))
	}
	return nil
}

// GetDefaultConfig 获取默认配置，舵机表与控制板出厂接线一致
func GetDefaultConfig() *define.Config {
	return &define.Config{
		Server: define.ServerConfig{
			Host:       "0.0.0.0",
			Port:       9099,
			EnableCORS: true,
		},
		Log: define.LogConfig{
			Level: "info",
		},
		Driver: define.DriverConfig{
			Kind:          "null",
			SerialPort:    "/dev/ttyUSB0",
			Baud:          115200,
			I2CBus:        "/dev/i2c-1",
			I2CAddress:    0x40,
			PWMFrequency:  50,
			CanServiceURL: "http://127.0.0.1:5260",
			CanInterface:  "can0",
			CanID:         0x200,
		},
		Servos: DefaultServos(),
		Audio: define.AudioConfig{
			Enabled:      false,
			Dir:          "audio",
			Volume:       0.8,
			StartupTrack: 1,
		},
		Recorder: define.RecorderConfig{
			DefaultKeyframeMs: 1500,
			PreviewMs:         100,
			MinKeyframeMs:     0,
			MaxKeyframeMs:     999_000,
			DefaultCursor:     3,
			RampMode:          "quadratic_inout",
		},
		Storage: define.StorageConfig{
			Dir: "animations",
		},
		TickMs: 20,
	}
}

// DefaultServos 十二路舵机的名称、通道和脉宽范围
func DefaultServos() []define.ServoConfig {
	entry := func(name string, channel, minUs, maxUs int) define.ServoConfig {
		return define.ServoConfig{Name: name, Channel: channel, MinUs: minUs, NeutralUs: 1500, MaxUs: maxUs}
	}
	return []define.ServoConfig{
		entry("neck_yaw", 15, 700, 2500),
		entry("neck_pitch", 14, 1200, 1800),
		entry("eye_left", 13, 1000, 2000),
		entry("eye_right", 12, 1000, 2000),
		entry("shoulder_left", 2, 1000, 2000),
		entry("shoulder_right", 3, 1000, 2000),
		entry("elbow_left", 4, 1000, 2000),
		entry("elbow_right", 5, 1000, 2000),
		entry("wrist_left", 6, 1000, 2000),
		entry("wrist_right", 7, 1000, 2000),
		entry("hand_left", 8, 1000, 2000),
		entry("hand_right", 9, 1000, 2000),
	}
}
