package driver

import (
	"fmt"
	"log/slog"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/pca9685"

	"animatronic/define"
)

const (
	defaultI2CBus       = "/dev/i2c-1"
	defaultPCA9685Addr  = 0x40
	defaultPWMFrequency = 50
)

func init() {
	RegisterDriver("pca9685", func(cfg define.DriverConfig) (Driver, error) {
		busPath := cfg.I2CBus
		if busPath == "" {
			busPath = defaultI2CBus
		}
		bus, err := openI2C(busPath)
		if err != nil {
			return nil, err
		}
		d, err := NewPCA9685(bus, cfg.I2CAddress, cfg.PWMFrequency)
		if err != nil {
			bus.Close()
			return nil, err
		}
		slog.Info("🔌 PCA9685 已连接", "bus", busPath, "address", fmt.Sprintf("0x%02x", d.addr), "hz", d.freq)
		return d, nil
	})
}

// I2CBus 可关闭的 I²C 总线
type I2CBus interface {
	drivers.I2C
	Close() error
}

// trackingBus 记录最近一次总线错误，pca9685.Dev.Set 本身不返回错误
type trackingBus struct {
	I2CBus
	err error
}

func (b *trackingBus) Tx(addr uint16, w, r []byte) error {
	err := b.I2CBus.Tx(addr, w, r)
	if err != nil {
		b.err = err
	}
	return err
}

func (b *trackingBus) takeError() error {
	err := b.err
	b.err = nil
	return err
}

// PCA9685 16 通道 PWM 舵机板
type PCA9685 struct {
	dev      pca9685.Dev
	bus      *trackingBus
	addr     uint8
	freq     int
	periodUs int
}

// NewPCA9685 配置 PWM 周期。addr 为 0 时使用 0x40，freq 为 0 时使用 50Hz。
func NewPCA9685(bus I2CBus, addr uint8, freq int) (*PCA9685, error) {
	if addr == 0 {
		addr = defaultPCA9685Addr
	}
	if freq <= 0 {
		freq = defaultPWMFrequency
	}

	tb := &trackingBus{I2CBus: bus}
	dev := pca9685.New(tb, addr)
	if err := dev.Configure(pca9685.PWMConfig{Period: uint64(1e9 / freq)}); err != nil {
		return nil, fmt.Errorf("配置 PCA9685 失败：%w", err)
	}
	tb.takeError()

	return &PCA9685{dev: dev, bus: tb, addr: addr, freq: freq, periodUs: 1_000_000 / freq}, nil
}

func (d *PCA9685) Name() string { return "pca9685" }

// Count 将脉宽换算为 12 位计数值
func (d *PCA9685) Count(pulseUs int) uint32 {
	if pulseUs <= 0 {
		return 0
	}
	top := d.dev.Top()
	count := uint32(pulseUs * int(top+1) / d.periodUs)
	return min(count, top)
}

func (d *PCA9685) WritePulse(channel int, pulseUs int) error {
	if channel < 0 || channel > 15 {
		return fmt.Errorf("PCA9685 通道超出范围: %d", channel)
	}
	// 高电平从计数 0 开始，到 count 结束
	d.dev.SetPhased(uint8(channel), 0, d.Count(pulseUs))
	if err := d.bus.takeError(); err != nil {
		return fmt.Errorf("写入 PCA9685 通道 %d 失败：%w", channel, err)
	}
	return nil
}

func (d *PCA9685) Close() error {
	return d.bus.Close()
}
