package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/spacekit/httpclient/httpclienttest"
	"github.com/kbukum/spacekit/security"
	"github.com/kbukum/spacekit/security/tlstest"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func resolveForTest(t *testing.T, opts ...Option) Config {
	t.Helper()
	cfg, err := Resolve(DefaultParams(), append([]Option{WithAccessToken("abc")}, opts...)...)
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	return cfg
}

func TestBuildHTTPClient_Default(t *testing.T) {
	hc, err := buildHTTPClient(resolveForTest(t, WithTimeout(5*time.Second)))
	if err != nil {
		t.Fatalf("buildHTTPClient error = %v", err)
	}
	if hc.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", hc.Timeout)
	}
	tr, ok := hc.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T, want *http.Transport", hc.Transport)
	}
	if tr == http.DefaultTransport {
		t.Error("default transport should be cloned")
	}
}

func TestBuildHTTPClient_CustomRoundTripper(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("unused") })

	hc, err := buildHTTPClient(resolveForTest(t, WithTransport(rt)))
	if err != nil {
		t.Fatalf("buildHTTPClient error = %v", err)
	}
	if _, ok := hc.Transport.(roundTripFunc); !ok {
		t.Errorf("Transport = %T, want the custom round tripper", hc.Transport)
	}

	tests := []struct {
		name string
		opt  Option
	}{
		{"proxy", WithProxy("http://proxy.example.com:3128")},
		{"tls", WithTLS(security.TLSConfig{SkipVerify: true})},
		{"http2", WithHTTP2()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildHTTPClient(resolveForTest(t, WithTransport(rt), tt.opt))
			var ce *ConfigurationError
			if !errors.As(err, &ce) || ce.Field != "transport" {
				t.Errorf("err = %v, want transport configuration error", err)
			}
		})
	}
}

func TestBuildHTTPClient_TransportIsCloned(t *testing.T) {
	base := &http.Transport{MaxIdleConns: 7}
	hc, err := buildHTTPClient(resolveForTest(t, WithTransport(base), WithTLS(security.TLSConfig{SkipVerify: true})))
	if err != nil {
		t.Fatalf("buildHTTPClient error = %v", err)
	}
	tr := hc.Transport.(*http.Transport)
	if tr == base {
		t.Error("user transport should be cloned")
	}
	if tr.MaxIdleConns != 7 {
		t.Errorf("MaxIdleConns = %d, want 7", tr.MaxIdleConns)
	}
	if tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("TLS config not applied")
	}
	if base.TLSClientConfig != nil {
		t.Error("user transport was modified")
	}
}

func TestBuildHTTPClient_TLSError(t *testing.T) {
	_, err := buildHTTPClient(resolveForTest(t, WithTLS(security.TLSConfig{CAFile: "/nonexistent/ca.pem"})))
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "tls" {
		t.Errorf("err = %v, want tls configuration error", err)
	}
}

func TestBuildHTTPClient_HTTP2(t *testing.T) {
	hc, err := buildHTTPClient(resolveForTest(t, WithHTTP2()))
	if err != nil {
		t.Fatalf("buildHTTPClient error = %v", err)
	}
	tr := hc.Transport.(*http.Transport)
	if _, ok := tr.TLSNextProto["h2"]; !ok {
		t.Error("h2 should be registered on the transport")
	}
}

func TestProxyFunc(t *testing.T) {
	t.Setenv("NO_PROXY", "internal.example.com")
	t.Setenv("no_proxy", "internal.example.com")
	proxy := proxyFunc("http://proxy.example.com:3128")

	tests := []struct {
		url  string
		want string
	}{
		{"http://api.example.com/spaces/", "http://proxy.example.com:3128"},
		{"https://api.example.com/spaces/", "http://proxy.example.com:3128"},
		{"https://internal.example.com/spaces/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			u, err := proxy(req)
			if err != nil {
				t.Fatalf("proxy error = %v", err)
			}
			got := ""
			if u != nil {
				got = u.String()
			}
			if got != tt.want {
				t.Errorf("proxy(%s) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestClient_ThroughProxy(t *testing.T) {
	t.Setenv("NO_PROXY", "")
	t.Setenv("no_proxy", "")
	proxy := httpclienttest.NewServer()
	defer proxy.Close()

	c, err := New(
		WithAccessToken("abc"),
		WithInsecure(true),
		WithHost("api.example.com"),
		WithSpace("demo"),
		WithProxy(proxy.URL),
		WithLogHandler((&logRecorder{}).handler()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if _, err := c.Do(context.Background(), Request{Path: "entries"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := proxy.LastRequest().Path; got != "/spaces/demo/entries" {
		t.Errorf("proxied path = %q", got)
	}
}

func TestClient_OverTLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	var proto atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proto.Store(int32(r.ProtoMajor))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	srv.TLS = certs.ServerTLSConfig()
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	host := srv.Listener.Addr().String()
	c, err := New(
		WithAccessToken("abc"),
		WithHost(host),
		WithTLS(security.TLSConfig{CAFile: certs.CAFile}),
		WithHTTP2(),
		WithLogHandler((&logRecorder{}).handler()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if want := "https://" + host + "/spaces/"; c.BaseURL() != want {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), want)
	}
	resp, err := c.Do(context.Background(), Request{Path: "entries"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := proto.Load(); got != 2 {
		t.Errorf("protocol = HTTP/%d, want HTTP/2", got)
	}
}

func TestNew_TransportErrorIsLogged(t *testing.T) {
	rec := &logRecorder{}
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("unused") })
	_, err := New(WithAccessToken("abc"), WithTransport(rt), WithHTTP2(), WithLogHandler(rec.handler()))
	if !IsConfiguration(err) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if rec.count(LevelError) != 1 {
		t.Errorf("error logs = %d, want 1", rec.count(LevelError))
	}
}
