package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"animatronic/communication"
	"animatronic/define"
)

const (
	canServoCommand = 0x02
	canQueueSize    = 64
	canSendTimeout  = 500 * time.Millisecond
)

// ErrQueueFull 发送队列已满，本次写入被丢弃
var ErrQueueFull = errors.New("CAN 发送队列已满")

func init() {
	RegisterDriver("canbridge", func(cfg define.DriverConfig) (Driver, error) {
		if cfg.CanServiceURL == "" {
			return nil, fmt.Errorf("未配置 can-bridge 服务地址")
		}
		iface := cfg.CanInterface
		if iface == "" {
			iface = "can0"
		}
		client := communication.NewCanBridgeClient(cfg.CanServiceURL, iface)
		slog.Info("🔌 CAN 桥接驱动已创建", "url", cfg.CanServiceURL, "interface", iface, "id", cfg.CanID)
		return NewCanBridge(client, iface, cfg.CanID), nil
	})
}

// CanBridge 将脉宽编码为 CAN 帧 [0x02, ch, hi, lo]，经 can-bridge 服务异步发送。
// 主循环只负责入队，HTTP 请求在后台协程完成。
type CanBridge struct {
	comm  communication.Communicator
	iface string
	id    uint32

	last  map[int]int
	queue chan communication.RawMessage

	errMutex sync.Mutex
	err      error

	cancel context.CancelFunc
	done   chan struct{}
}

func NewCanBridge(comm communication.Communicator, iface string, id uint32) *CanBridge {
	ctx, cancel := context.WithCancel(context.Background())
	d := &CanBridge{
		comm:   comm,
		iface:  iface,
		id:     id,
		last:   make(map[int]int),
		queue:  make(chan communication.RawMessage, canQueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.sendLoop(ctx)
	return d
}

func (d *CanBridge) Name() string { return "canbridge" }

// ServoFrame 编码单个通道的脉宽帧
func ServoFrame(channel int, pulseUs int) []byte {
	return []byte{canServoCommand, byte(channel), byte(pulseUs >> 8), byte(pulseUs)}
}

// WritePulse 入队一帧，返回后台最近一次发送错误。
// 有发送错误时本帧仍然入队。
func (d *CanBridge) WritePulse(channel int, pulseUs int) error {
	if channel < 0 || channel > 255 {
		return fmt.Errorf("CAN 通道超出范围: %d", channel)
	}
	sendErr := d.takeError()
	if sendErr != nil {
		// 失败的帧可能属于任意通道，全部重发
		clear(d.last)
	}
	if last, ok := d.last[channel]; ok && last == pulseUs {
		return nil
	}

	msg := communication.RawMessage{Interface: d.iface, ID: d.id, Data: ServoFrame(channel, pulseUs)}
	select {
	case d.queue <- msg:
		d.last[channel] = pulseUs
		return sendErr
	default:
		return errors.Join(sendErr, ErrQueueFull)
	}
}

func (d *CanBridge) sendLoop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			sendCtx, cancel := context.WithTimeout(ctx, canSendTimeout)
			err := d.comm.SendMessage(sendCtx, msg)
			cancel()
			if err != nil {
				d.errMutex.Lock()
				d.err = err
				d.errMutex.Unlock()
			}
		}
	}
}

func (d *CanBridge) takeError() error {
	d.errMutex.Lock()
	defer d.errMutex.Unlock()
	err := d.err
	d.err = nil
	return err
}

func (d *CanBridge) Close() error {
	d.cancel()
	<-d.done
	return nil
}
