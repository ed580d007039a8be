package httpclient

import (
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/spacekit/resilience"
)

// fastBackoff keeps retry tests quick.
var fastBackoff = resilience.Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond, Factor: 1}

type logged struct {
	level Level
	data  any
}

// logRecorder captures everything sent to a LogHandler.
type logRecorder struct {
	mu      sync.Mutex
	entries []logged
}

func (r *logRecorder) handler() LogHandler {
	return func(level Level, data any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = append(r.entries, logged{level: level, data: data})
	}
}

func (r *logRecorder) messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.level == level {
			out = append(out, fmt.Sprint(e.data))
		}
	}
	return out
}

func (r *logRecorder) count(level Level) int {
	return len(r.messages(level))
}
