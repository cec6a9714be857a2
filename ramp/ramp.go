// Package ramp 定义舵机插值使用的缓动曲线。
//
// 模式编号与动画文件中的 ramp_mode 字段一一对应，修改编号会破坏已保存的动画。
// 所有曲线接受进度 t ∈ [0, 1]，返回缓动后的进度，且 f(0)=0、f(1)=1。
//
// 参考：https://easings.net/
package ramp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode 缓动模式
type Mode int

const (
	None Mode = iota // 保持起点，到时直接跳到终点
	Linear
	QuadraticIn
	QuadraticOut
	QuadraticInOut
	CubicIn
	CubicOut
	CubicInOut
	QuarticIn
	QuarticOut
	QuarticInOut
	QuinticIn
	QuinticOut
	QuinticInOut
	SinusoidalIn
	SinusoidalOut
	SinusoidalInOut
	ExponentialIn
	ExponentialOut
	ExponentialInOut
	CircularIn
	CircularOut
	CircularInOut
	BackIn
	BackOut
	BackInOut
	ElasticIn
	ElasticOut
	ElasticInOut
	BounceIn
	BounceOut
	BounceInOut

	modeCount
)

// Default 录制与脚本关键帧的默认缓动
const Default = QuadraticInOut

var modeNames = [modeCount]string{
	"none",
	"linear",
	"quadratic_in", "quadratic_out", "quadratic_inout",
	"cubic_in", "cubic_out", "cubic_inout",
	"quartic_in", "quartic_out", "quartic_inout",
	"quintic_in", "quintic_out", "quintic_inout",
	"sinusoidal_in", "sinusoidal_out", "sinusoidal_inout",
	"exponential_in", "exponential_out", "exponential_inout",
	"circular_in", "circular_out", "circular_inout",
	"back_in", "back_out", "back_inout",
	"elastic_in", "elastic_out", "elastic_inout",
	"bounce_in", "bounce_out", "bounce_inout",
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid 是否为已定义的模式
func (m Mode) Valid() bool {
	return m >= None && m < modeCount
}

// Monotonic 曲线在 [0,1] 上是否单调且不越过终点。
// back / elastic / bounce 会过冲，其余模式不会。
func (m Mode) Monotonic() bool {
	return m.Valid() && m < BackIn
}

// Modes 返回全部模式，按编号排序
func Modes() []Mode {
	modes := make([]Mode, 0, modeCount)
	for m := None; m < modeCount; m++ {
		modes = append(modes, m)
	}
	return modes
}

// ParseMode 解析模式名称或编号
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		m := Mode(n)
		if !m.Valid() {
			return 0, fmt.Errorf("未知的缓动模式编号: %d", n)
		}
		return m, nil
	}
	s = strings.ReplaceAll(s, "-", "_")
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("未知的缓动模式: %q", s)
}

// Ease 按模式计算缓动后的进度。t 会被限制在 [0,1]，未知模式按线性处理。
func Ease(m Mode, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	switch m {
	case None:
		return 0
	case Linear:
		return t
	case QuadraticIn:
		return t * t
	case QuadraticOut:
		return 1 - (1-t)*(1-t)
	case QuadraticInOut:
		return inOut(t, 2)
	case CubicIn:
		return t * t * t
	case CubicOut:
		return 1 - math.Pow(1-t, 3)
	case CubicInOut:
		return inOut(t, 3)
	case QuarticIn:
		return math.Pow(t, 4)
	case QuarticOut:
		return 1 - math.Pow(1-t, 4)
	case QuarticInOut:
		return inOut(t, 4)
	case QuinticIn:
		return math.Pow(t, 5)
	case QuinticOut:
		return 1 - math.Pow(1-t, 5)
	case QuinticInOut:
		return inOut(t, 5)
	case SinusoidalIn:
		return 1 - math.Cos(t*math.Pi/2)
	case SinusoidalOut:
		return math.Sin(t * math.Pi / 2)
	case SinusoidalInOut:
		return -(math.Cos(math.Pi*t) - 1) / 2
	case ExponentialIn:
		return math.Pow(2, 10*t-10)
	case ExponentialOut:
		return 1 - math.Pow(2, -10*t)
	case ExponentialInOut:
		if t < 0.5 {
			return math.Pow(2, 20*t-10) / 2
		}
		return (2 - math.Pow(2, -20*t+10)) / 2
	case CircularIn:
		return 1 - math.Sqrt(1-t*t)
	case CircularOut:
		return math.Sqrt(1 - (t-1)*(t-1))
	case CircularInOut:
		if t < 0.5 {
			return (1 - math.Sqrt(1-4*t*t)) / 2
		}
		return (math.Sqrt(1-math.Pow(-2*t+2, 2)) + 1) / 2
	case BackIn:
		return backC3*t*t*t - backC1*t*t
	case BackOut:
		return 1 + backC3*math.Pow(t-1, 3) + backC1*math.Pow(t-1, 2)
	case BackInOut:
		if t < 0.5 {
			return (math.Pow(2*t, 2) * ((backC2+1)*2*t - backC2)) / 2
		}
		return (math.Pow(2*t-2, 2)*((backC2+1)*(t*2-2)+backC2) + 2) / 2
	case ElasticIn:
		return -math.Pow(2, 10*t-10) * math.Sin((t*10-10.75)*elasticC4)
	case ElasticOut:
		return elasticOut(t)
	case ElasticInOut:
		if t < 0.5 {
			return -(math.Pow(2, 20*t-10) * math.Sin((20*t-11.125)*elasticC5)) / 2
		}
		return (math.Pow(2, -20*t+10)*math.Sin((20*t-11.125)*elasticC5))/2 + 1
	case BounceIn:
		return 1 - bounceOut(1-t)
	case BounceOut:
		return bounceOut(t)
	case BounceInOut:
		if t < 0.5 {
			return (1 - bounceOut(1-2*t)) / 2
		}
		return (1 + bounceOut(2*t-1)) / 2
	}
	return t
}

// Lerp 在 a 和 b 之间按缓动后的进度插值，t >= 1 时精确返回 b
func Lerp(m Mode, a, b, t float64) float64 {
	if t >= 1 {
		return b
	}
	return a + (b-a)*Ease(m, t)
}

const (
	backC1    = 1.70158
	backC2    = backC1 * 1.525
	backC3    = backC1 + 1
	elasticC4 = 2 * math.Pi / 3
	elasticC5 = 2 * math.Pi / 4.5
)

// inOut 对称的幂次缓入缓出：
//
//	t < 0.5:  f(t) = 2^(p-1) * t^p
//	t >= 0.5: f(t) = 1 - (-2t + 2)^p / 2
func inOut(t float64, p float64) float64 {
	if t < 0.5 {
		return math.Pow(2, p-1) * math.Pow(t, p)
	}
	return 1 - math.Pow(-2*t+2, p)/2
}

func elasticOut(t float64) float64 {
	return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*elasticC4) + 1
}

func bounceOut(t float64) float64 {
	const n1, d1 = 7.5625, 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}
