package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"animatronic/servo"
)

// handleGetServos 获取所有舵机状态
func (s *Server) handleGetServos(c *gin.Context) {
	servos := s.engine.Status().Servos
	succeed(c, "", ServoListResponse{
		Servos: servos,
		Total:  len(servos),
	})
}

// handleMoveServo 移动单个舵机，会停止正在播放的动画
func (s *Server) handleMoveServo(c *gin.Context) {
	name := c.Param("name")

	var req ServoMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的舵机移动请求："+err.Error())
		return
	}
	if (req.Position == nil) == (req.Delta == nil) {
		fail(c, http.StatusBadRequest, "position 与 delta 必须且只能指定一个")
		return
	}

	var (
		reading servo.Reading
		err     error
	)
	if req.Position != nil {
		reading, err = s.engine.Jog(c.Request.Context(), name, *req.Position)
	} else {
		reading, err = s.engine.Nudge(c.Request.Context(), name, *req.Delta)
	}
	if err != nil {
		failWith(c, err)
		return
	}
	succeed(c, fmt.Sprintf("舵机 %s 已移动", name), reading)
}

// handleNeutral 所有舵机回到中位
func (s *Server) handleNeutral(c *gin.Context) {
	if err := s.engine.Neutral(c.Request.Context()); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, "所有舵机已回到中位", nil)
}
