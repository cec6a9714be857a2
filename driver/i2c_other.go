//go:build !linux

package driver

import (
	"fmt"
	"runtime"
)

func openI2C(path string) (I2CBus, error) {
	return nil, fmt.Errorf("当前平台 %s 不支持 I²C 总线 %s", runtime.GOOS, path)
}
