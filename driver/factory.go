package driver

import (
	"fmt"
	"sort"
	"sync"

	"animatronic/define"
	"animatronic/servo"
)

// Driver 舵机硬件驱动
type Driver interface {
	servo.Driver
	Name() string
	Close() error
}

// Constructor 根据配置创建驱动
type Constructor func(cfg define.DriverConfig) (Driver, error)

// Factory 驱动工厂
type Factory struct {
	constructors map[string]Constructor
	mutex        sync.RWMutex
}

var defaultFactory = &Factory{constructors: make(map[string]Constructor)}

// RegisterDriver 注册驱动类型
func RegisterDriver(kind string, constructor Constructor) {
	defaultFactory.mutex.Lock()
	defer defaultFactory.mutex.Unlock()
	defaultFactory.constructors[kind] = constructor
}

// CreateDriver 按配置中的 kind 创建驱动实例
func CreateDriver(cfg define.DriverConfig) (Driver, error) {
	defaultFactory.mutex.RLock()
	constructor, ok := defaultFactory.constructors[cfg.Kind]
	defaultFactory.mutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("未知的驱动类型: %s", cfg.Kind)
	}
	return constructor(cfg)
}

// SupportedDrivers 获取支持的驱动类型列表
func SupportedDrivers() []string {
	defaultFactory.mutex.RLock()
	defer defaultFactory.mutex.RUnlock()

	kinds := make([]string, 0, len(defaultFactory.constructors))
	for kind := range defaultFactory.constructors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
