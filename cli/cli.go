package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"animatronic/communication"
	"animatronic/config"
	"animatronic/define"
)

// DefaultConfigPath 未指定 -config 时尝试读取的配置文件
const DefaultConfigPath = "animatronic.yaml"

// ParseConfig 解析命令行与环境变量，失败时退出进程
func ParseConfig() *define.Config {
	cfg, err := Parse(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "❌ 配置错误: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Parse 依次应用配置文件、命令行参数和环境变量，后者覆盖前者
func Parse(program string, args []string, getenv func(string) string, output io.Writer) (*define.Config, error) {
	cfg, rest, err := ParseArgs(program, args, getenv, output)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("多余的参数：%v", rest)
	}
	return cfg, nil
}

// ParseArgs 同 Parse，另外返回参数之后的位置参数
func ParseArgs(program string, args []string, getenv func(string) string, output io.Writer) (*define.Config, []string, error) {
	flags := flag.NewFlagSet(program, flag.ContinueOnError)
	flags.SetOutput(output)

	var (
		configPath   = flags.String("config", DefaultConfigPath, "YAML 配置文件路径")
		host         = flags.String("host", "", "Web 服务监听地址")
		port         = flags.Int("port", 0, "Web 服务的端口")
		driverKind   = flags.String("driver", "", "舵机驱动 (null / ssc32 / pca9685 / canbridge)")
		serialPort   = flags.String("serial", "", "SSC-32 串口设备")
		i2cBus       = flags.String("i2c-bus", "", "PCA9685 所在的 I2C 总线设备")
		canURL       = flags.String("can-url", "", "CAN 服务的 URL")
		canInterface = flags.String("interface", "", "CAN 接口")
		logLevel     = flags.String("log-level", "", "日志级别 (debug / info / warn / error)")
		logFile      = flags.String("log-file", "", "JSON 日志文件")
		storageDir   = flags.String("animations", "", "动画存储目录")
		audioDir     = flags.String("audio-dir", "", "音轨目录，设置后启用音频")
		startup      = flags.String("startup", "", "启动后自动播放的动画")
		scripts      = flags.String("scripts", "", "Starlark 动画脚本，用逗号分隔")
	)
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	explicit := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	path := *configPath
	if env := getenv("ANIMATRONIC_CONFIG"); env != "" {
		path = env
		explicit["config"] = true
	}
	cfg, err := loadFile(path, explicit["config"])
	if err != nil {
		return nil, nil, err
	}

	// 命令行参数
	setString(explicit["host"], &cfg.Server.Host, *host)
	if explicit["port"] {
		cfg.Server.Port = *port
	}
	setString(explicit["driver"], &cfg.Driver.Kind, *driverKind)
	setString(explicit["serial"], &cfg.Driver.SerialPort, *serialPort)
	setString(explicit["i2c-bus"], &cfg.Driver.I2CBus, *i2cBus)
	setString(explicit["can-url"], &cfg.Driver.CanServiceURL, *canURL)
	setString(explicit["interface"], &cfg.Driver.CanInterface, *canInterface)
	setString(explicit["log-level"], &cfg.Log.Level, *logLevel)
	setString(explicit["log-file"], &cfg.Log.File, *logFile)
	setString(explicit["animations"], &cfg.Storage.Dir, *storageDir)
	setString(explicit["startup"], &cfg.Startup, *startup)
	if explicit["audio-dir"] {
		cfg.Audio.Dir = *audioDir
		cfg.Audio.Enabled = *audioDir != ""
	}
	if explicit["scripts"] {
		cfg.Scripts = splitList(*scripts)
	}

	// 环境变量覆盖命令行参数
	if envPort := getenv("WEB_PORT"); envPort != "" {
		p, err := strconv.Atoi(envPort)
		if err != nil {
			return nil, nil, fmt.Errorf("WEB_PORT 无效：%w", err)
		}
		cfg.Server.Port = p
	}
	setString(getenv("SERVO_DRIVER") != "", &cfg.Driver.Kind, getenv("SERVO_DRIVER"))
	setString(getenv("SERIAL_PORT") != "", &cfg.Driver.SerialPort, getenv("SERIAL_PORT"))
	setString(getenv("CAN_SERVICE_URL") != "", &cfg.Driver.CanServiceURL, getenv("CAN_SERVICE_URL"))
	setString(getenv("DEFAULT_INTERFACE") != "", &cfg.Driver.CanInterface, getenv("DEFAULT_INTERFACE"))
	setString(getenv("LOG_LEVEL") != "", &cfg.Log.Level, getenv("LOG_LEVEL"))
	setString(getenv("ANIMATION_DIR") != "", &cfg.Storage.Dir, getenv("ANIMATION_DIR"))

	// 未指定 CAN 接口时从 CAN 服务获取
	if cfg.Driver.Kind == "canbridge" && cfg.Driver.CanInterface == "" {
		slog.Info("🔍 未指定 CAN 接口，将从 CAN 服务获取...")
		cfg.Driver.CanInterface = activeInterfaceFromCanService(cfg.Driver.CanServiceURL)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, flags.Args(), nil
}

// loadFile 默认路径的文件不存在时使用默认配置，显式指定的文件必须存在
func loadFile(path string, required bool) (*define.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return config.GetDefaultConfig(), nil
		}
		return nil, fmt.Errorf("读取配置文件失败：%w", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	slog.Info("📄 已加载配置文件", "path", path)
	return cfg, nil
}

func setString(ok bool, dst *string, value string) {
	if ok {
		*dst = value
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// 从 CAN 服务获取第一个活动接口
func activeInterfaceFromCanService(canServiceURL string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	statuses, err := communication.NewCanBridgeClient(canServiceURL).GetAllInterfaceStatuses(ctx)
	if err != nil {
		slog.Warn("⚠️ 无法从 CAN 服务获取接口列表，使用默认配置", "error", err)
		return "can0"
	}

	var active []string
	for name, up := range statuses {
		if up {
			active = append(active, name)
		}
	}
	if len(active) == 0 {
		slog.Warn("⚠️ 无法从 CAN 服务获取有效接口，使用默认配置")
		return "can0"
	}
	sort.Strings(active)
	slog.Info("✅ 从 CAN 服务获取到接口", "interfaces", active)
	return active[0]
}
