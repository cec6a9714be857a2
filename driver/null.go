package driver

import (
	"maps"
	"sync"

	"animatronic/define"
)

func init() {
	RegisterDriver("null", func(define.DriverConfig) (Driver, error) { return NewNull(), nil })
}

// Null 不连接硬件，只记录每个通道最近一次写入的脉宽
type Null struct {
	pulses map[int]int
	writes int
	mutex  sync.Mutex
}

func NewNull() *Null { return &Null{pulses: make(map[int]int)} }

func (n *Null) Name() string { return "null" }

func (n *Null) WritePulse(channel int, pulseUs int) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.pulses[channel] = pulseUs
	n.writes++
	return nil
}

// Pulse 返回通道最近一次写入的脉宽
func (n *Null) Pulse(channel int) (int, bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	us, ok := n.pulses[channel]
	return us, ok
}

func (n *Null) Pulses() map[int]int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return maps.Clone(n.pulses)
}

func (n *Null) Writes() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.writes
}

func (n *Null) Close() error { return nil }
