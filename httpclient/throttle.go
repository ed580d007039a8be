package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kbukum/spacekit/logger"
	"github.com/kbukum/spacekit/observability"
	"github.com/kbukum/spacekit/resilience"
)

// defaultAutoLimit is the per-second limit an auto throttle starts from
// before the server has advertised its own.
const defaultAutoLimit = 7

// Throttle describes the request throttle. Either Limit is a fixed number of
// requests per window, or Auto follows the server's advertised limit and
// uses Percent of it.
type Throttle struct {
	Auto    bool
	Limit   int `validate:"gte=0"`
	Percent int `validate:"gte=0,lte=100"`
}

// ParseThrottle parses "", "0", "auto", "N%" or a plain number.
func ParseThrottle(s string) (Throttle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "0":
		return Throttle{}, nil
	case s == "auto":
		return Throttle{Auto: true, Percent: 100}, nil
	case strings.HasSuffix(s, "%"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
		if err != nil || n < 1 || n > 100 {
			return Throttle{}, fmt.Errorf("invalid throttle percentage %q", s)
		}
		return Throttle{Auto: true, Percent: n}, nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Throttle{}, fmt.Errorf("invalid throttle %q", s)
		}
		return Throttle{Limit: n}, nil
	}
}

// Enabled reports whether requests are throttled.
func (t Throttle) Enabled() bool {
	return t.Auto || t.Limit > 0
}

func (t Throttle) String() string {
	switch {
	case t.Auto && t.Percent == 100:
		return "auto"
	case t.Auto:
		return fmt.Sprintf("%d%%", t.Percent)
	default:
		return strconv.Itoa(t.Limit)
	}
}

// scale applies the auto percentage to a server limit, never below one.
func (t Throttle) scale(limit int) int {
	return max(1, limit*t.Percent/100)
}

func (t Throttle) initialLimit() int {
	if t.Auto {
		return t.scale(defaultAutoLimit)
	}
	return t.Limit
}

// throttler owns a client's admission queue.
type throttler struct {
	mode    Throttle
	header  string
	gate    *resilience.Throttle
	log     LogHandler
	metrics *observability.ClientMetrics
}

func newThrottler(cfg Config) *throttler {
	return &throttler{
		mode:   cfg.Throttle,
		header: cfg.RateLimitHeader,
		gate: resilience.NewThrottle(resilience.ThrottleConfig{
			Name:   "spacekit",
			Limit:  cfg.Throttle.initialLimit(),
			Window: cfg.ThrottleWindow,
		}),
		log:     cfg.LogHandler,
		metrics: cfg.Metrics,
	}
}

// stage queues requests in arrival order until the throttle admits them.
// Waiting never fails a request unless its context ends first.
func (t *throttler) stage() Stage {
	return Stage{
		Name: StageThrottle,
		Middleware: func(next Handler) Handler {
			return func(req *http.Request) (*Response, error) {
				ctx := req.Context()
				release, waited, err := t.gate.Acquire(ctx)
				if err != nil {
					return nil, &Error{
						Code:    ErrCodeTimeout,
						Message: "throttle: " + err.Error(),
						Err:     err,
					}
				}
				defer release()
				t.metrics.RecordThrottleWait(ctx, waited)

				resp, err := next(req)
				if t.mode.Auto && resp != nil {
					t.observe(resp)
				}
				return resp, err
			}
		},
	}
}

// observe adjusts an auto throttle to the limit the server advertised.
func (t *throttler) observe(resp *Response) {
	n, err := strconv.Atoi(strings.TrimSpace(resp.Header(t.header)))
	if err != nil || n <= 0 {
		return
	}
	limit := t.mode.scale(n)
	if t.gate.SetLimit(limit) {
		t.log(LevelInfo, LogEntry{
			Message: fmt.Sprintf("Throttle request to %d/s", limit),
			Fields:  logger.Fields(logger.FieldLimit, limit),
		})
	}
}
