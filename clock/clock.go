// Package clock 提供动画与舵机插值使用的单调毫秒时钟。
package clock

import (
	"sync"
	"time"
)

// Clock 返回单调递增的毫秒时间戳
type Clock interface {
	NowMs() int64
}

// System 基于 time.Now 的单调时钟，时间起点为创建时刻
type System struct {
	start time.Time
}

// NewSystem 创建系统时钟
func NewSystem() *System {
	return &System{start: time.Now()}
}

// NowMs 返回自创建以来经过的毫秒数（使用单调时钟读数）
func (s *System) NowMs() int64 {
	return time.Since(s.start).Milliseconds()
}

// Mock 可手动推进的时钟，用于测试
type Mock struct {
	mu sync.RWMutex
	ms int64
}

// NewMock 创建起始于 startMs 的模拟时钟
func NewMock(startMs int64) *Mock {
	return &Mock{ms: startMs}
}

func (m *Mock) NowMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ms
}

// Set 设置当前时间
func (m *Mock) Set(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ms = ms
}

// Advance 将时间向前推进 d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ms += d.Milliseconds()
}
