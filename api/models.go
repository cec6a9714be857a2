package api

import (
	"time"

	"animatronic/animation"
	"animatronic/engine"
	"animatronic/recorder"
	"animatronic/servo"
)

// ServoMoveRequest 移动舵机请求，position 与 delta 二选一
type ServoMoveRequest struct {
	Position *float64 `json:"position"`
	Delta    *float64 `json:"delta"`
}

// ServoListResponse 舵机列表响应
type ServoListResponse struct {
	Servos []servo.Reading `json:"servos"`
	Total  int             `json:"total"`
}

// AnimationListResponse 动画列表响应
type AnimationListResponse struct {
	Animations []animation.Info `json:"animations"`
	Total      int              `json:"total"`
}

// AnimationUploadResponse 上传动画响应，Skipped 为被跳过的条目
type AnimationUploadResponse struct {
	Animation animation.Info `json:"animation"`
	Skipped   []string       `json:"skipped,omitempty"`
}

// PlayerStatusResponse 播放状态响应
type PlayerStatusResponse struct {
	Playing   bool   `json:"playing"`
	Animation string `json:"animation,omitempty"`
	Keyframe  int    `json:"keyframe"`
	Keyframes int    `json:"keyframes"`
}

// RecordingRequest 开始录制请求
type RecordingRequest struct {
	Name string `json:"name" binding:"required"`
	Edit bool   `json:"edit"`
}

// RecorderInputRequest 录制输入请求
type RecorderInputRequest struct {
	Input string `json:"input" binding:"required"`
}

// RecorderCueRequest 绑定音轨请求
type RecorderCueRequest struct {
	Track int `json:"track" binding:"min=1"`
}

// RecorderResponse 录制状态响应
type RecorderResponse struct {
	Recording bool              `json:"recording"`
	State     string            `json:"state,omitempty"`
	Panel     recorder.Snapshot `json:"panel"`
}

// SystemStatusResponse 系统状态响应
type SystemStatusResponse struct {
	Engine     engine.Status `json:"engine"`
	Animations int           `json:"animations"`
	Uptime     time.Duration `json:"uptime"`
	Version    string        `json:"version"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}
