//go:build linux

package driver

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// i2cSlave linux/i2c-dev.h 中的 I2C_SLAVE
const i2cSlave = 0x0703

// linuxI2C 通过 /dev/i2c-N 字符设备访问总线
type linuxI2C struct {
	fd   int
	addr uint16
	path string
}

func openI2C(path string) (I2CBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("打开 I²C 总线 %s 失败：%w", path, err)
	}
	return &linuxI2C{fd: fd, path: path}, nil
}

func (b *linuxI2C) Tx(addr uint16, w, r []byte) error {
	if b.addr != addr {
		if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("设置 I²C 从机地址 0x%02x 失败：%w", addr, err)
		}
		b.addr = addr
	}

	if len(w) > 0 {
		if _, err := unix.Write(b.fd, w); err != nil {
			return fmt.Errorf("I²C 写入失败：%w", err)
		}
	}
	if len(r) > 0 {
		if _, err := unix.Read(b.fd, r); err != nil {
			return fmt.Errorf("I²C 读取失败：%w", err)
		}
	}
	return nil
}

func (b *linuxI2C) Close() error {
	return unix.Close(b.fd)
}
