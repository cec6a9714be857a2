package driver

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tarm/serial"

	"animatronic/define"
)

func init() {
	RegisterDriver("ssc32", func(cfg define.DriverConfig) (Driver, error) {
		return OpenSSC32(cfg.SerialPort, cfg.Baud)
	})
}

// SSC32 通过串口向 SSC-32 兼容舵机控制板发送 "#<ch> P<us>" 指令
type SSC32 struct {
	port io.WriteCloser
	last map[int]int
}

// OpenSSC32 打开串口
func OpenSSC32(device string, baud int) (*SSC32, error) {
	if device == "" {
		return nil, fmt.Errorf("未配置串口设备")
	}
	if baud <= 0 {
		baud = 115200
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("打开串口 %s 失败：%w", device, err)
	}

	slog.Info("🔌 SSC-32 串口已连接", "device", device, "baud", baud)
	return NewSSC32(port), nil
}

// NewSSC32 在已打开的端口上创建驱动
func NewSSC32(port io.WriteCloser) *SSC32 {
	return &SSC32{port: port, last: make(map[int]int)}
}

func (d *SSC32) Name() string { return "ssc32" }

// WritePulse 脉宽未变化时不重复发送
func (d *SSC32) WritePulse(channel int, pulseUs int) error {
	if channel < 0 || channel > 31 {
		return fmt.Errorf("SSC-32 通道超出范围: %d", channel)
	}
	if last, ok := d.last[channel]; ok && last == pulseUs {
		return nil
	}

	if _, err := fmt.Fprintf(d.port, "#%d P%d\r", channel, pulseUs); err != nil {
		delete(d.last, channel)
		return fmt.Errorf("写入串口失败：%w", err)
	}
	d.last[channel] = pulseUs
	return nil
}

func (d *SSC32) Close() error {
	return d.port.Close()
}
