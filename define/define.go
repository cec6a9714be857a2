package define

// 配置结构体
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Driver   DriverConfig   `yaml:"driver"`
	Servos   []ServoConfig  `yaml:"servos"`
	Audio    AudioConfig    `yaml:"audio"`
	Recorder RecorderConfig `yaml:"recorder"`
	Storage  StorageConfig  `yaml:"storage"`
	TickMs   int            `yaml:"tick_ms"` // 主循环周期（毫秒）
	Scripts  []string       `yaml:"scripts"` // Starlark 动画脚本
	Startup  string         `yaml:"startup"` // 启动后自动播放的动画
}

// ServerConfig Web 服务配置
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	EnableCORS bool   `yaml:"enable_cors"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // 非空时额外以 JSON 格式写入该文件
}

// DriverConfig 舵机驱动配置
type DriverConfig struct {
	Kind string `yaml:"kind"` // null / ssc32 / pca9685 / canbridge

	SerialPort string `yaml:"serial_port"`
	Baud       int    `yaml:"baud"`

	I2CBus       string `yaml:"i2c_bus"`
	I2CAddress   uint8  `yaml:"i2c_address"`
	PWMFrequency int    `yaml:"pwm_frequency"`

	CanServiceURL string `yaml:"can_service_url"`
	CanInterface  string `yaml:"can_interface"`
	CanID         uint32 `yaml:"can_id"`
}

// ServoConfig 单个舵机的通道与脉宽标定
type ServoConfig struct {
	Name      string `yaml:"name"`
	Channel   int    `yaml:"channel"`
	MinUs     int    `yaml:"min_us"`
	NeutralUs int    `yaml:"neutral_us"`
	MaxUs     int    `yaml:"max_us"`
}

// AudioConfig 音轨播放配置
type AudioConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Dir          string  `yaml:"dir"`
	Volume       float64 `yaml:"volume"`
	StartupTrack int     `yaml:"startup_track"` // 0 表示不播放
}

// RecorderConfig 录制器参数
type RecorderConfig struct {
	DefaultKeyframeMs int64  `yaml:"default_keyframe_ms"`
	PreviewMs         int64  `yaml:"preview_ms"`
	MinKeyframeMs     int64  `yaml:"min_keyframe_ms"`
	MaxKeyframeMs     int64  `yaml:"max_keyframe_ms"`
	DefaultCursor     int    `yaml:"default_cursor"`
	RampMode          string `yaml:"ramp_mode"`
}

// StorageConfig 动画存储配置
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// API 响应结构体
type ApiResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
