package httpclient

import (
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/spacekit/credential"
	"github.com/kbukum/spacekit/observability"
	"github.com/kbukum/spacekit/resilience"
	"github.com/kbukum/spacekit/security"
	"github.com/kbukum/spacekit/util"
)

// Header names the client reads or writes.
const (
	HeaderAuthorization  = "Authorization"
	HeaderRequestID      = "X-Request-Id"
	HeaderUserAgent      = "X-Spacekit-User-Agent"
	HeaderRateLimit      = "X-RateLimit-Second-Limit"
	HeaderRateLimitReset = "X-RateLimit-Reset"
)

// DefaultHostname is the API host used when no valid Host is given.
const DefaultHostname = "api.spacekit.io"

// Params holds the client options before resolution. The zero value of a
// field means "not set", so user options only override what they name.
type Params struct {
	// AccessToken is required: a static token or a producer.
	AccessToken credential.Credential `validate:"-"`

	// Host is "hostname" or "hostname:port". Values that do not match are ignored.
	Host            string
	DefaultHostname string
	Space           string
	BasePath        string
	// BaseURL, when set, is used as-is instead of the derived URL.
	BaseURL  string
	Insecure bool

	// Headers are sent with every request.
	Headers   map[string]string
	UserAgent string

	Timeout time.Duration `validate:"gte=0"`

	// Throttle caps requests per ThrottleWindow. The zero value disables it.
	Throttle       Throttle
	ThrottleWindow time.Duration `validate:"gte=0"`
	// RateLimitHeader is read by the auto throttle to learn the server's limit.
	RateLimitHeader string

	RetryLimit   int `validate:"gte=0"`
	RetryOnError bool
	RetryBackoff resilience.Backoff

	LogHandler      LogHandler
	OnBeforeRequest BeforeRequestHook
	OnError         ErrorHook

	// Transport pass-throughs.
	Transport        http.RoundTripper   `validate:"-"`
	Proxy            string              `validate:"omitempty,url"`
	TLS              *security.TLSConfig `validate:"-"`
	HTTP2            bool
	MaxContentLength int64 `validate:"gte=0"`
	MaxBodyLength    int64 `validate:"gte=0"`

	Metrics *observability.ClientMetrics `validate:"-"`
	// TracerProvider receives client spans. Nil means the global provider.
	TracerProvider trace.TracerProvider `validate:"-"`
}

// DefaultParams returns the built-in defaults user options are merged onto.
func DefaultParams() Params {
	return Params{
		DefaultHostname: DefaultHostname,
		Headers: map[string]string{
			"Accept": "application/json",
		},
		UserAgent:       UserAgentHeader("", "", ""),
		Timeout:         30 * time.Second,
		ThrottleWindow:  time.Second,
		RateLimitHeader: HeaderRateLimit,
		RetryLimit:      5,
		RetryOnError:    true,
		RetryBackoff:    resilience.DefaultBackoff(),
		LogHandler:      DefaultLogHandler(),

		MaxContentLength: 1 << 30,
		MaxBodyLength:    1 << 30,
	}
}

// clone returns a copy that shares no mutable state with p.
func (p Params) clone() Params {
	p.Headers = util.CloneMap(p.Headers)
	if p.TLS != nil {
		tls := *p.TLS
		p.TLS = &tls
	}
	return p
}

// overlay copies every non-zero field of o onto p. Boolean switches can
// only be turned on this way; use WithRetryOnError(false) to turn retries off.
func (p *Params) overlay(o Params) {
	if !o.AccessToken.IsZero() {
		p.AccessToken = o.AccessToken
	}
	p.Host = util.Coalesce(o.Host, p.Host)
	p.DefaultHostname = util.Coalesce(o.DefaultHostname, p.DefaultHostname)
	p.Space = util.Coalesce(o.Space, p.Space)
	p.BasePath = util.Coalesce(o.BasePath, p.BasePath)
	p.BaseURL = util.Coalesce(o.BaseURL, p.BaseURL)
	p.Insecure = p.Insecure || o.Insecure
	if o.Headers != nil {
		p.Headers = util.CloneMap(o.Headers)
	}
	p.UserAgent = util.Coalesce(o.UserAgent, p.UserAgent)
	p.Timeout = util.Coalesce(o.Timeout, p.Timeout)
	if o.Throttle.Enabled() {
		p.Throttle = o.Throttle
	}
	p.ThrottleWindow = util.Coalesce(o.ThrottleWindow, p.ThrottleWindow)
	p.RateLimitHeader = util.Coalesce(o.RateLimitHeader, p.RateLimitHeader)
	p.RetryLimit = util.Coalesce(o.RetryLimit, p.RetryLimit)
	p.RetryOnError = p.RetryOnError || o.RetryOnError
	if o.RetryBackoff != (resilience.Backoff{}) {
		p.RetryBackoff = o.RetryBackoff
	}
	if o.LogHandler != nil {
		p.LogHandler = o.LogHandler
	}
	if o.OnBeforeRequest != nil {
		p.OnBeforeRequest = o.OnBeforeRequest
	}
	if o.OnError != nil {
		p.OnError = o.OnError
	}
	if o.Transport != nil {
		p.Transport = o.Transport
	}
	p.Proxy = util.Coalesce(o.Proxy, p.Proxy)
	if o.TLS != nil {
		tls := *o.TLS
		p.TLS = &tls
	}
	p.HTTP2 = p.HTTP2 || o.HTTP2
	p.MaxContentLength = util.Coalesce(o.MaxContentLength, p.MaxContentLength)
	p.MaxBodyLength = util.Coalesce(o.MaxBodyLength, p.MaxBodyLength)
	if o.Metrics != nil {
		p.Metrics = o.Metrics
	}
	if o.TracerProvider != nil {
		p.TracerProvider = o.TracerProvider
	}
}

// Option configures a client.
type Option func(*Params)

// WithParams overlays every non-zero field of p.
func WithParams(p Params) Option {
	p = p.clone()
	return func(dst *Params) { dst.overlay(p) }
}

// WithAccessToken authenticates every request with a static bearer token.
func WithAccessToken(token string) Option {
	return func(p *Params) { p.AccessToken = credential.Static(token) }
}

// WithTokenProducer fetches a bearer token before every request.
func WithTokenProducer(producer credential.Producer) Option {
	return func(p *Params) { p.AccessToken = credential.Dynamic(producer) }
}

// WithCredential sets the credential directly.
func WithCredential(c credential.Credential) Option {
	return func(p *Params) { p.AccessToken = c }
}

// WithHost sets "hostname" or "hostname:port".
func WithHost(host string) Option {
	return func(p *Params) { p.Host = host }
}

// WithDefaultHostname sets the hostname used when Host is unset or malformed.
func WithDefaultHostname(hostname string) Option {
	return func(p *Params) { p.DefaultHostname = hostname }
}

// WithSpace scopes the base URL to a space.
func WithSpace(space string) Option {
	return func(p *Params) { p.Space = space }
}

// WithBasePath prefixes the base URL path.
func WithBasePath(path string) Option {
	return func(p *Params) { p.BasePath = path }
}

// WithBaseURL bypasses base URL derivation.
func WithBaseURL(url string) Option {
	return func(p *Params) { p.BaseURL = url }
}

// WithInsecure selects plain http on port 80.
func WithInsecure(insecure bool) Option {
	return func(p *Params) { p.Insecure = insecure }
}

// WithHeaders replaces the default headers.
func WithHeaders(headers map[string]string) Option {
	headers = util.CloneMap(headers)
	return func(p *Params) {
		p.Headers = util.CloneMap(headers)
		if p.Headers == nil {
			p.Headers = map[string]string{}
		}
	}
}

// WithHeader adds one header, keeping the others.
func WithHeader(key, value string) Option {
	return func(p *Params) {
		h := util.CloneMap(p.Headers)
		if h == nil {
			h = make(map[string]string, 1)
		}
		h[key] = value
		p.Headers = h
	}
}

// WithUserAgent replaces the value of the X-Spacekit-User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Params) { p.UserAgent = ua }
}

// WithTimeout sets the timeout for each attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *Params) { p.Timeout = d }
}

// WithTransport sets the round tripper requests are sent through.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Params) { p.Transport = rt }
}

// WithProxy routes requests through a proxy URL. NO_PROXY is honored.
func WithProxy(proxy string) Option {
	return func(p *Params) { p.Proxy = proxy }
}

// WithTLS sets client TLS settings.
func WithTLS(cfg security.TLSConfig) Option {
	return func(p *Params) { p.TLS = &cfg }
}

// WithHTTP2 configures the transport for HTTP/2.
func WithHTTP2() Option {
	return func(p *Params) { p.HTTP2 = true }
}

// WithMaxContentLength caps the response body size.
func WithMaxContentLength(n int64) Option {
	return func(p *Params) { p.MaxContentLength = n }
}

// WithMaxBodyLength caps the request body size.
func WithMaxBodyLength(n int64) Option {
	return func(p *Params) { p.MaxBodyLength = n }
}

// WithThrottle admits at most n requests per window. Zero disables throttling.
func WithThrottle(n int) Option {
	return func(p *Params) { p.Throttle = Throttle{Limit: n} }
}

// WithAutoThrottle follows the server's advertised rate limit, using
// percent of it (1-100).
func WithAutoThrottle(percent int) Option {
	return func(p *Params) { p.Throttle = Throttle{Auto: true, Percent: percent} }
}

// WithThrottleMode sets a throttle parsed by ParseThrottle.
func WithThrottleMode(t Throttle) Option {
	return func(p *Params) { p.Throttle = t }
}

// WithThrottleWindow sets the interval the throttle limit applies to.
func WithThrottleWindow(d time.Duration) Option {
	return func(p *Params) { p.ThrottleWindow = d }
}

// WithRateLimitHeader sets the header the auto throttle reads.
func WithRateLimitHeader(name string) Option {
	return func(p *Params) { p.RateLimitHeader = name }
}

// WithRetryLimit sets how many times a failed request is retried.
func WithRetryLimit(n int) Option {
	return func(p *Params) { p.RetryLimit = n }
}

// WithRetryOnError turns the retry stage on or off.
func WithRetryOnError(enabled bool) Option {
	return func(p *Params) { p.RetryOnError = enabled }
}

// WithRetryBackoff sets the delay curve between retries.
func WithRetryBackoff(b resilience.Backoff) Option {
	return func(p *Params) { p.RetryBackoff = b }
}

// WithLogHandler sets the diagnostics sink.
func WithLogHandler(h LogHandler) Option {
	return func(p *Params) { p.LogHandler = h }
}

// WithOnBeforeRequest runs h before every request.
func WithOnBeforeRequest(h BeforeRequestHook) Option {
	return func(p *Params) { p.OnBeforeRequest = h }
}

// WithOnError runs h on the final error of every failed request.
func WithOnError(h ErrorHook) Option {
	return func(p *Params) { p.OnError = h }
}

// WithMetrics records request, retry and throttle metrics.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(p *Params) { p.Metrics = m }
}

// WithTracerProvider sends client spans to tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Params) { p.TracerProvider = tp }
}

func cloneOptions(opts []Option) []Option {
	return slices.Clone(opts)
}
