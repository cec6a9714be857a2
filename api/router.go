package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"animatronic/animation"
	"animatronic/audio"
	"animatronic/define"
	"animatronic/engine"
	"animatronic/servo"
	"animatronic/store"
)

// Server HTTP 控制接口，所有操作都转交给引擎主循环
type Server struct {
	engine    *engine.Engine
	startTime time.Time
	version   string
}

// NewServer 创建新的 API 服务器实例
func NewServer(e *engine.Engine) *Server {
	return &Server{
		engine:    e,
		startTime: time.Now(),
		version:   "1.0.0",
	}
}

// NewRouter 创建 gin 引擎并注册全部路由
func NewRouter(e *engine.Engine, cfg define.ServerConfig) *gin.Engine {
	r := gin.Default()

	if cfg.EnableCORS {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"}, // 允许的域，*表示允许所有
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	NewServer(e).SetupRoutes(r)
	return r
}

// SetupRoutes 设置 API 路由
func (s *Server) SetupRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		// 舵机控制路由
		servos := v1.Group("/servos")
		{
			servos.GET("", s.handleGetServos)        // 获取所有舵机状态
			servos.POST("/neutral", s.handleNeutral) // 全部回到中位
			servos.PUT("/:name", s.handleMoveServo)  // 移动单个舵机
		}

		// 动画管理路由
		animations := v1.Group("/animations")
		{
			animations.GET("", s.handleGetAnimations)             // 获取动画列表
			animations.GET("/:name", s.handleGetAnimation)        // 导出动画记录
			animations.PUT("/:name", s.handlePutAnimation)        // 上传动画记录
			animations.DELETE("/:name", s.handleDeleteAnimation)  // 删除动画
			animations.POST("/:name/play", s.handlePlayAnimation) // 播放动画
		}

		// 播放器路由
		player := v1.Group("/player")
		{
			player.POST("/stop", s.handleStopPlayer)    // 停止播放
			player.GET("/status", s.handlePlayerStatus) // 播放状态
		}

		// 录制路由
		rec := v1.Group("/recorder")
		{
			rec.POST("", s.handleBeginRecording)      // 开始录制或编辑
			rec.GET("", s.handleGetRecorder)          // 录制面板内容
			rec.POST("/input", s.handleRecorderInput) // 操作员输入
			rec.POST("/cue", s.handleRecorderCue)     // 给当前关键帧绑定音轨
			rec.DELETE("", s.handleAbortRecording)    // 中止录制
		}

		// 音频路由
		v1.POST("/audio/tracks/:track", s.handlePlayTrack) // 播放音轨

		// 系统管理路由
		system := v1.Group("/system")
		{
			system.GET("/status", s.handleGetSystemStatus) // 获取系统状态
			system.GET("/health", s.handleHealthCheck)     // 健康检查
		}
	}
}

// statusCode 把引擎错误映射为 HTTP 状态码
func statusCode(err error) int {
	switch {
	case errors.Is(err, animation.ErrNotFound),
		errors.Is(err, servo.ErrNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, audio.ErrUnknownTrack):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrBusy),
		errors.Is(err, engine.ErrNoSession),
		errors.Is(err, engine.ErrCueRejected):
		return http.StatusConflict
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, define.ApiResponse{
		Status: "error",
		Error:  message,
	})
}

func failWith(c *gin.Context, err error) {
	fail(c, statusCode(err), err.Error())
}

func succeed(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, define.ApiResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}
