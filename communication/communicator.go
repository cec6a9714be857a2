package communication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"animatronic/define"
)

// RawMessage 发送给 can-bridge 服务的原始 CAN 帧
type RawMessage struct {
	Interface string `json:"interface"` // 目标 CAN 接口名，例如 "can0", "vcan1"
	ID        uint32 `json:"id"`        // 舵机控制板的 CAN 帧 ID
	Data      []byte `json:"data"`      // 帧数据负载
}

// Communicator 与 can-bridge Web 服务通信
type Communicator interface {
	SendMessage(ctx context.Context, msg RawMessage) error
	GetAllInterfaceStatuses(ctx context.Context) (map[string]bool, error)
	IsConnected(ctx context.Context) bool
}

// CanBridgeClient 通过 HTTP 调用 can-bridge 服务
type CanBridgeClient struct {
	serviceURL string
	interfaces []string
	client     *http.Client
}

// NewCanBridgeClient 创建客户端，interfaces 为状态查询时默认列出的接口
func NewCanBridgeClient(serviceURL string, interfaces ...string) *CanBridgeClient {
	return &CanBridgeClient{
		serviceURL: serviceURL,
		interfaces: interfaces,
		client:     &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *CanBridgeClient) ServiceURL() string { return c.serviceURL }

func (c *CanBridgeClient) SendMessage(ctx context.Context, msg RawMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败：%w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/api/can", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("创建 HTTP 请求失败：%w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 HTTP 请求失败：%w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("can-bridge 服务返回错误：%d, %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *CanBridgeClient) GetAllInterfaceStatuses(ctx context.Context) (map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL+"/api/status", nil)
	if err != nil {
		return nil, fmt.Errorf("创建状态请求失败：%w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败：%w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("can-bridge 服务返回错误：%d", resp.StatusCode)
	}

	var statusResp define.ApiResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return nil, fmt.Errorf("解析状态响应失败：%w", err)
	}

	result := make(map[string]bool)
	for _, ifName := range c.interfaces {
		result[ifName] = false
	}

	if statusData, ok := statusResp.Data.(map[string]any); ok {
		if interfaces, ok := statusData["interfaces"].(map[string]any); ok {
			for ifName, ifStatus := range interfaces {
				if status, ok := ifStatus.(map[string]any); ok {
					if active, ok := status["active"].(bool); ok {
						result[ifName] = active
					}
				}
			}
		}
	}

	return result, nil
}

func (c *CanBridgeClient) IsConnected(ctx context.Context) bool {
	_, err := c.GetAllInterfaceStatuses(ctx)
	return err == nil
}
