package engine

import (
	"animatronic/servo"
)

// Status 主循环每个周期发布的状态快照
type Status struct {
	Running       bool            `json:"running"`
	Driver        string          `json:"driver"`
	Playing       bool            `json:"playing"`
	Animation     string          `json:"animation,omitempty"`
	Keyframe      int             `json:"keyframe"`
	Keyframes     int             `json:"keyframes"`
	Recording     bool            `json:"recording"`
	RecorderState string          `json:"recorderState,omitempty"`
	Ticks         uint64          `json:"ticks"`
	UptimeMs      int64           `json:"uptimeMs"`
	Servos        []servo.Reading `json:"servos"`
}

func (e *Engine) publish() {
	st := &Status{
		Running:   e.running.Load(),
		Driver:    e.driverName,
		Keyframe:  -1,
		Ticks:     e.ticks,
		UptimeMs:  e.clock.NowMs() - e.started,
		Servos:    e.rig.Readings(),
		Recording: e.session != nil,
	}
	if anim := e.player.Current(); anim != nil {
		st.Playing = anim.IsPlaying()
		st.Animation = anim.Name()
		st.Keyframes = anim.Len()
		st.Keyframe = anim.Sequence().Index(anim.Cursor())
	}
	if e.session != nil {
		st.RecorderState = e.session.rec.State().String()
	}
	e.status.Store(st)
}

// Status 最近一次发布的状态，不经过主循环
func (e *Engine) Status() Status {
	return *e.status.Load()
}
