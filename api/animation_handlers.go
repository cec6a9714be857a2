package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxRecordBytes 上传动画记录的大小上限
const maxRecordBytes = 1 << 20

// handleGetAnimations 获取动画列表
func (s *Server) handleGetAnimations(c *gin.Context) {
	infos, err := s.engine.Animations(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	succeed(c, "", AnimationListResponse{
		Animations: infos,
		Total:      len(infos),
	})
}

// handleGetAnimation 以文本格式导出动画记录
func (s *Server) handleGetAnimation(c *gin.Context) {
	record, err := s.engine.AnimationRecord(c.Request.Context(), c.Param("name"))
	if err != nil {
		failWith(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", record)
}

// handlePutAnimation 上传文本格式的动画记录，同名动画被替换
func (s *Server) handlePutAnimation(c *gin.Context) {
	name := c.Param("name")
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxRecordBytes)

	info, diags, err := s.engine.PutAnimation(c.Request.Context(), name, body)
	if err != nil {
		failWith(c, err)
		return
	}

	skipped := make([]string, 0, len(diags))
	for _, d := range diags {
		skipped = append(skipped, d.String())
	}
	succeed(c, fmt.Sprintf("动画 %s 已保存", name), AnimationUploadResponse{
		Animation: info,
		Skipped:   skipped,
	})
}

// handleDeleteAnimation 删除动画
func (s *Server) handleDeleteAnimation(c *gin.Context) {
	name := c.Param("name")
	if err := s.engine.DeleteAnimation(c.Request.Context(), name); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, fmt.Sprintf("动画 %s 已删除", name), nil)
}

// handlePlayAnimation 播放动画，正在播放的动画会先被停止
func (s *Server) handlePlayAnimation(c *gin.Context) {
	name := c.Param("name")
	if err := s.engine.Play(c.Request.Context(), name); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, fmt.Sprintf("动画 %s 已开始播放", name), nil)
}

// handleStopPlayer 停止当前动画
func (s *Server) handleStopPlayer(c *gin.Context) {
	if err := s.engine.Stop(c.Request.Context()); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, "动画已停止", nil)
}

// handlePlayerStatus 获取播放状态
func (s *Server) handlePlayerStatus(c *gin.Context) {
	st := s.engine.Status()
	succeed(c, "", PlayerStatusResponse{
		Playing:   st.Playing,
		Animation: st.Animation,
		Keyframe:  st.Keyframe,
		Keyframes: st.Keyframes,
	})
}
