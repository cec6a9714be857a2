package servo

import (
	"errors"
	"fmt"
	"sync"

	"animatronic/clock"
	"animatronic/define"
)

// ErrNotFound 舵机不存在
var ErrNotFound = errors.New("舵机不存在")

// Reading 舵机状态快照
type Reading struct {
	Name     string  `json:"name"`
	Channel  int     `json:"channel"`
	Position float64 `json:"position"`
	Target   float64 `json:"target"`
	PulseUs  int     `json:"pulseUs"`
	Ramping  bool    `json:"ramping"`
	Errors   int     `json:"errors"`
	Error    string  `json:"lastError,omitempty"`
}

// Rig 按注册顺序管理一组命名舵机
type Rig struct {
	servos []*Servo
	byName map[string]*Servo
	mutex  sync.RWMutex
}

func NewRig() *Rig { return &Rig{byName: make(map[string]*Servo)} }

// BuildRig 按配置创建全部舵机并注册
func BuildRig(cfgs []define.ServoConfig, driver Driver, clk clock.Clock) (*Rig, error) {
	rig := NewRig()
	for _, c := range cfgs {
		cal := Calibration{MinUs: c.MinUs, NeutralUs: c.NeutralUs, MaxUs: c.MaxUs}
		if err := cal.Validate(); err != nil {
			return nil, fmt.Errorf("舵机 %s：%w", c.Name, err)
		}
		if err := rig.Register(New(c.Name, c.Channel, cal, driver, clk)); err != nil {
			return nil, err
		}
	}
	return rig, nil
}

func (r *Rig) Register(s *Servo) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if s.Name() == "" {
		return fmt.Errorf("舵机名称不能为空")
	}
	if _, exists := r.byName[s.Name()]; exists {
		return fmt.Errorf("舵机 %s 已存在", s.Name())
	}

	r.byName[s.Name()] = s
	r.servos = append(r.servos, s)
	return nil
}

func (r *Rig) Get(name string) (*Servo, error) {
	s, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Lookup 按名称解析舵机，供动画解码和脚本使用
func (r *Rig) Lookup(name string) (*Servo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s, ok := r.byName[name]
	return s, ok
}

func (r *Rig) All() []*Servo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	servos := make([]*Servo, len(r.servos))
	copy(servos, r.servos)
	return servos
}

func (r *Rig) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.servos))
	for _, s := range r.servos {
		names = append(names, s.Name())
	}
	return names
}

func (r *Rig) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.servos)
}

// ApplyToAll 按注册顺序对每个舵机执行 fn
func (r *Rig) ApplyToAll(fn func(*Servo)) {
	for _, s := range r.All() {
		fn(s)
	}
}

// Readings 返回所有舵机的状态快照
func (r *Rig) Readings() []Reading {
	servos := r.All()
	readings := make([]Reading, 0, len(servos))
	for _, s := range servos {
		readings = append(readings, s.Reading())
	}
	return readings
}

// Reading 单个舵机的状态快照
func (s *Servo) Reading() Reading {
	count, err := s.Errors()
	reading := Reading{
		Name:     s.Name(),
		Channel:  s.Channel(),
		Position: s.Position(),
		Target:   s.Target(),
		PulseUs:  s.Pulse(),
		Ramping:  s.Ramping(),
		Errors:   count,
	}
	if err != nil {
		reading.Error = err.Error()
	}
	return reading
}
