package servo

import (
	"fmt"
	"log/slog"
	"math"

	"animatronic/clock"
	"animatronic/ramp"
)

// Driver 将脉宽写入硬件通道
type Driver interface {
	WritePulse(channel int, pulseUs int) error
}

// Calibration 舵机脉宽标定（微秒）
type Calibration struct {
	MinUs     int
	NeutralUs int
	MaxUs     int
}

// Validate 检查标定范围
func (c Calibration) Validate() error {
	if c.MinUs <= 0 || c.MinUs > c.NeutralUs || c.NeutralUs > c.MaxUs || c.MinUs == c.MaxUs {
		return fmt.Errorf("无效的脉宽标定 %d/%d/%d", c.MinUs, c.NeutralUs, c.MaxUs)
	}
	return nil
}

// Pulse 将 [-1,1] 的位置换算为脉宽，正负两侧分别按各自的行程缩放
func (c Calibration) Pulse(position float64) int {
	position = Clamp(position)
	if position > 0 {
		return c.NeutralUs + int(math.Round(position*float64(c.MaxUs-c.NeutralUs)))
	}
	return c.NeutralUs + int(math.Round(position*float64(c.NeutralUs-c.MinUs)))
}

// Scalar 将脉宽换算回 [-1,1] 的位置
func (c Calibration) Scalar(us int) float64 {
	switch {
	case us > c.NeutralUs && c.MaxUs > c.NeutralUs:
		return Clamp(float64(us-c.NeutralUs) / float64(c.MaxUs-c.NeutralUs))
	case us < c.NeutralUs && c.NeutralUs > c.MinUs:
		return Clamp(float64(us-c.NeutralUs) / float64(c.NeutralUs-c.MinUs))
	}
	return 0
}

// Clamp 将位置限制在 [-1,1]
func Clamp(position float64) float64 {
	if math.IsNaN(position) {
		return 0
	}
	return math.Max(-1, math.Min(1, position))
}

// Servo 单个舵机自由度。只由主循环访问，不加锁。
type Servo struct {
	name    string
	channel int
	cal     Calibration
	driver  Driver
	clock   clock.Clock

	position float64
	start    float64
	target   float64
	mode     ramp.Mode

	durationMs int64
	elapsedMs  int64
	lastMs     int64
	ramping    bool

	pulse     int
	errCount  int
	lastError error
}

// New 创建舵机，初始位置为中位
func New(name string, channel int, cal Calibration, driver Driver, clk clock.Clock) *Servo {
	return &Servo{
		name:    name,
		channel: channel,
		cal:     cal,
		driver:  driver,
		clock:   clk,
		mode:    ramp.Linear,
		pulse:   cal.NeutralUs,
	}
}

func (s *Servo) Name() string             { return s.name }
func (s *Servo) Channel() int             { return s.channel }
func (s *Servo) Calibration() Calibration { return s.cal }
func (s *Servo) Position() float64        { return s.position }
func (s *Servo) Target() float64          { return s.target }
func (s *Servo) Pulse() int               { return s.pulse }
func (s *Servo) Ramping() bool            { return s.ramping }

// Errors 返回累计的写入失败次数和最近一次错误
func (s *Servo) Errors() (int, error) { return s.errCount, s.lastError }

// SetTarget 从当前位置开始一段新的插值。durationMs <= 0 时在下一次 Update 直接到位。
func (s *Servo) SetTarget(position float64, durationMs int64, mode ramp.Mode) {
	s.start = s.position
	s.target = Clamp(position)
	s.mode = mode
	s.durationMs = max(durationMs, 0)
	s.elapsedMs = 0
	s.lastMs = s.clock.NowMs()
	s.ramping = true
}

// Update 按真实流逝时间推进插值，写入驱动并返回新位置
func (s *Servo) Update() float64 {
	if s.ramping {
		now := s.clock.NowMs()
		s.elapsedMs += now - s.lastMs
		s.lastMs = now

		if s.elapsedMs >= s.durationMs {
			s.position = s.target
			s.ramping = false
		} else {
			t := float64(s.elapsedMs) / float64(s.durationMs)
			s.position = Clamp(ramp.Lerp(s.mode, s.start, s.target, t))
		}
	}
	s.write()
	return s.position
}

// Hold 立即移动到指定位置并写入驱动，取消进行中的插值
func (s *Servo) Hold(position float64) {
	s.position = Clamp(position)
	s.start = s.position
	s.target = s.position
	s.ramping = false
	s.write()
}

// Nudge 相对当前位置微调
func (s *Servo) Nudge(delta float64) {
	s.Hold(s.position + delta)
}

func (s *Servo) write() {
	s.pulse = s.cal.Pulse(s.position)
	if s.driver == nil {
		return
	}

	if err := s.driver.WritePulse(s.channel, s.pulse); err != nil {
		if s.lastError == nil {
			slog.Warn("⚠️ 舵机写入失败", "servo", s.name, "channel", s.channel, "error", err)
		}
		s.errCount++
		s.lastError = err
		return
	}
	if s.lastError != nil {
		slog.Info("✅ 舵机写入恢复", "servo", s.name, "channel", s.channel, "failures", s.errCount)
		s.lastError = nil
	}
}
