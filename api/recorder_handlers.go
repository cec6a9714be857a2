package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"animatronic/recorder"
)

// handleBeginRecording 开始录制新动画或编辑已有动画
func (s *Server) handleBeginRecording(c *gin.Context) {
	var req RecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的录制请求："+err.Error())
		return
	}

	state, err := s.engine.BeginRecording(c.Request.Context(), req.Name, req.Edit, nil)
	if err != nil {
		failWith(c, err)
		return
	}
	succeed(c, fmt.Sprintf("开始录制动画 %s", req.Name), s.recorderResponse(state.String()))
}

// handleGetRecorder 获取录制面板内容
func (s *Server) handleGetRecorder(c *gin.Context) {
	succeed(c, "", s.recorderResponse(s.engine.Status().RecorderState))
}

// handleRecorderInput 转发一次操作员输入
func (s *Server) handleRecorderInput(c *gin.Context) {
	var req RecorderInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的录制输入："+err.Error())
		return
	}
	input, err := recorder.ParseInput(req.Input)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	state, err := s.engine.RecorderInput(c.Request.Context(), input)
	if err != nil {
		failWith(c, err)
		return
	}
	succeed(c, "", s.recorderResponse(state.String()))
}

// handleRecorderCue 给当前关键帧绑定音轨
func (s *Server) handleRecorderCue(c *gin.Context) {
	var req RecorderCueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的音轨请求："+err.Error())
		return
	}
	if err := s.engine.RecorderCue(c.Request.Context(), req.Track); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, fmt.Sprintf("已绑定音轨 %d", req.Track), s.recorderResponse(s.engine.Status().RecorderState))
}

// handleAbortRecording 中止录制
func (s *Server) handleAbortRecording(c *gin.Context) {
	if err := s.engine.AbortRecording(c.Request.Context()); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, "录制已中止", nil)
}

// handlePlayTrack 播放音轨
func (s *Server) handlePlayTrack(c *gin.Context) {
	track, err := strconv.Atoi(c.Param("track"))
	if err != nil || track <= 0 {
		fail(c, http.StatusBadRequest, fmt.Sprintf("无效的音轨编号：%s", c.Param("track")))
		return
	}
	if err := s.engine.PlayTrack(c.Request.Context(), track); err != nil {
		failWith(c, err)
		return
	}
	succeed(c, fmt.Sprintf("音轨 %d 开始播放", track), nil)
}

func (s *Server) recorderResponse(state string) RecorderResponse {
	snap := s.engine.RecorderSnapshot()
	return RecorderResponse{
		Recording: snap.Page != recorder.PageClosed,
		State:     state,
		Panel:     snap,
	}
}
