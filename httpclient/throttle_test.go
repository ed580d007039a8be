package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestParseThrottle(t *testing.T) {
	tests := []struct {
		in      string
		want    Throttle
		wantErr bool
	}{
		{"", Throttle{}, false},
		{"0", Throttle{}, false},
		{"5", Throttle{Limit: 5}, false},
		{" 12 ", Throttle{Limit: 12}, false},
		{"auto", Throttle{Auto: true, Percent: 100}, false},
		{"AUTO", Throttle{Auto: true, Percent: 100}, false},
		{"50%", Throttle{Auto: true, Percent: 50}, false},
		{"100%", Throttle{Auto: true, Percent: 100}, false},
		{"0%", Throttle{}, true},
		{"101%", Throttle{}, true},
		{"-1", Throttle{}, true},
		{"fast", Throttle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseThrottle(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseThrottle(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseThrottle(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestThrottle_String(t *testing.T) {
	tests := []struct {
		t    Throttle
		want string
	}{
		{Throttle{}, "0"},
		{Throttle{Limit: 4}, "4"},
		{Throttle{Auto: true, Percent: 100}, "auto"},
		{Throttle{Auto: true, Percent: 30}, "30%"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestThrottle_Limits(t *testing.T) {
	tests := []struct {
		name    string
		t       Throttle
		initial int
		scaled  int // for a server limit of 10
	}{
		{"fixed", Throttle{Limit: 4}, 4, 4},
		{"auto", Throttle{Auto: true, Percent: 100}, 7, 10},
		{"half", Throttle{Auto: true, Percent: 50}, 3, 5},
		{"floor of one", Throttle{Auto: true, Percent: 1}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.initialLimit(); got != tt.initial {
				t.Errorf("initialLimit() = %d, want %d", got, tt.initial)
			}
			if tt.t.Auto {
				if got := tt.t.scale(10); got != tt.scaled {
					t.Errorf("scale(10) = %d, want %d", got, tt.scaled)
				}
			}
		})
	}
}

func newTestThrottler(t *testing.T, mode Throttle, rec *logRecorder) *throttler {
	t.Helper()
	cfg, err := Resolve(DefaultParams(), WithAccessToken("abc"), WithThrottleMode(mode), WithLogHandler(rec.handler()))
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	return newThrottler(cfg)
}

func TestThrottler_Observe(t *testing.T) {
	rec := &logRecorder{}
	th := newTestThrottler(t, Throttle{Auto: true, Percent: 100}, rec)

	tests := []struct {
		header string
		want   int
	}{
		{"", 7},
		{"junk", 7},
		{"0", 7},
		{"12", 12},
		{"12", 12},
		{" 4 ", 4},
	}
	for _, tt := range tests {
		th.observe(&Response{Headers: map[string]string{HeaderRateLimit: tt.header}})
		if got := th.gate.Limit(); got != tt.want {
			t.Errorf("after header %q limit = %d, want %d", tt.header, got, tt.want)
		}
	}

	infos := rec.messages(LevelInfo)
	want := []string{"Throttle request to 12/s", "Throttle request to 4/s"}
	if len(infos) != len(want) || infos[0] != want[0] || infos[1] != want[1] {
		t.Errorf("info logs = %q, want %q", infos, want)
	}
}

func TestThrottler_FixedIgnoresHeader(t *testing.T) {
	th := newTestThrottler(t, Throttle{Limit: 3}, &logRecorder{})
	h := th.stage().Middleware(func(*http.Request) (*Response, error) {
		return &Response{StatusCode: 200, Headers: map[string]string{HeaderRateLimit: "50"}}, nil
	})
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if _, err := h(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := th.gate.Limit(); got != 3 {
		t.Errorf("limit = %d, want 3", got)
	}
}

func TestThrottler_CanceledWhileQueued(t *testing.T) {
	th := newTestThrottler(t, Throttle{Limit: 1}, &logRecorder{})

	release, _, err := th.gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)

	called := false
	h := th.stage().Middleware(func(*http.Request) (*Response, error) {
		called = true
		return &Response{StatusCode: 200}, nil
	})
	_, err = h(req)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("queue cancellation should not be retryable")
	}
	if called {
		t.Error("request should not be sent")
	}
}
