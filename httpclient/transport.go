package httpclient

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"
)

// buildHTTPClient builds the *http.Client requests are sent with. A custom
// round tripper is used as-is; TLS, proxy and HTTP/2 settings need an
// *http.Transport to apply to.
func buildHTTPClient(cfg Config) (*http.Client, error) {
	needsTransport := cfg.TLS.IsEnabled() || cfg.Proxy != "" || cfg.HTTP2

	var t *http.Transport
	switch rt := cfg.Transport.(type) {
	case nil:
		t = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		t = rt.Clone()
	default:
		if needsTransport {
			return nil, &ConfigurationError{
				Field:   "transport",
				Message: "TLS, proxy and HTTP/2 settings require an *http.Transport",
			}
		}
		return &http.Client{Transport: rt, Timeout: cfg.Timeout}, nil
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, &ConfigurationError{Field: "tls", Message: err.Error(), Err: err}
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}

	if cfg.Proxy != "" {
		t.Proxy = proxyFunc(cfg.Proxy)
	}

	if cfg.HTTP2 {
		t.TLSNextProto = nil
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, &ConfigurationError{Field: "http2", Message: err.Error(), Err: err}
		}
	}

	return &http.Client{Transport: t, Timeout: cfg.Timeout}, nil
}

// proxyFunc sends every request through proxy except hosts matched by the
// NO_PROXY environment variable.
func proxyFunc(proxy string) func(*http.Request) (*url.URL, error) {
	pc := &httpproxy.Config{
		HTTPProxy:  proxy,
		HTTPSProxy: proxy,
		NoProxy:    httpproxy.FromEnvironment().NoProxy,
	}
	fn := pc.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return fn(req.URL)
	}
}
