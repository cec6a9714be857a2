package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"animatronic/define"
)

// handleGetSystemStatus 获取系统状态
func (s *Server) handleGetSystemStatus(c *gin.Context) {
	infos, err := s.engine.Animations(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}

	succeed(c, "", SystemStatusResponse{
		Engine:     s.engine.Status(),
		Animations: len(infos),
		Uptime:     time.Since(s.startTime),
		Version:    s.version,
	})
}

// handleHealthCheck 健康检查，主循环停止时返回 503
func (s *Server) handleHealthCheck(c *gin.Context) {
	status := "healthy"
	if !s.engine.Status().Running {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   s.version,
	}

	// 根据健康状态返回相应的 HTTP 状态码
	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, define.ApiResponse{
		Status: "success",
		Data:   response,
	})
}
