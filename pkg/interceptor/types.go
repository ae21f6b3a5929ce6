package interceptor

import (
	"time"
)

// CapturedLine is a single line that passed the filter chain.
// CapturedLine 是通过过滤链的单行日志。
type CapturedLine struct {
	Content   string    // Line text without the trailing newline
	Timestamp time.Time // When the line was captured, not when it was written
	EventID   uint64    // Capture order within one engine
}

// State is the lifecycle state of an Engine.
// State 是引擎的生命周期状态。
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StatePaused
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Logger is the logging interface the engine writes diagnostics to.
// *zap.SugaredLogger satisfies it.
// Logger 是引擎写入诊断信息的日志接口，*zap.SugaredLogger 满足该接口。
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}
