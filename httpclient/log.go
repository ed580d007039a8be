package httpclient

import (
	"fmt"

	"github.com/kbukum/spacekit/logger"
)

// Level is the severity passed to a LogHandler.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
)

// LogHandler receives the client's diagnostics. data is usually a LogEntry
// but handlers should accept any value.
type LogHandler func(level Level, data any)

// LogEntry is the data the client passes to its LogHandler.
type LogEntry struct {
	Message string
	Fields  map[string]any
}

func (e LogEntry) String() string { return e.Message }

// DefaultLogHandler writes through the global logger.
func DefaultLogHandler() LogHandler {
	return LoggerHandler(nil)
}

// LoggerHandler adapts a logger to a LogHandler. A nil logger resolves the
// global logger on every call, so later SetGlobalLogger calls take effect.
func LoggerHandler(l *logger.Logger) LogHandler {
	return func(level Level, data any) {
		log := l
		if log == nil {
			log = logger.WithComponent("spacekit")
		}

		msg, fields := splitLogData(data)
		switch level {
		case LevelError:
			log.Error(msg, fields)
		case LevelWarning:
			log.Warn(msg, fields)
		case LevelDebug:
			log.Debug(msg, fields)
		default:
			log.Info(msg, fields)
		}
	}
}

func splitLogData(data any) (string, map[string]any) {
	switch v := data.(type) {
	case LogEntry:
		return v.Message, v.Fields
	case error:
		return v.Error(), logger.Fields(logger.FieldError, v)
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}
