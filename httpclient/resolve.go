package httpclient

import (
	"fmt"
	"net/textproto"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kbukum/spacekit/logger"
	"github.com/kbukum/spacekit/validation"
)

// Config is the resolved, immutable client configuration.
type Config struct {
	Params

	Scheme   string
	Hostname string
	Port     int
	// BaseURL is the URL relative request paths resolve against. It always
	// ends with a slash.
	BaseURL string
}

var hostPattern = regexp.MustCompile(`^([^\s:/]+)(?::(\d+))?$`)

// Resolve merges opts onto a copy of defaults, validates the result and
// derives the base URL. It does not modify defaults. Failures are reported
// once through the resolved LogHandler at LevelError and returned as a
// *ConfigurationError.
func Resolve(defaults Params, opts ...Option) (Config, error) {
	p := defaults.clone()
	for _, opt := range opts {
		opt(&p)
	}
	if p.LogHandler == nil {
		p.LogHandler = DefaultLogHandler()
	}

	if err := validateParams(p); err != nil {
		p.LogHandler(LevelError, LogEntry{
			Message: err.Error(),
			Fields:  logger.Fields("field", err.Field),
		})
		return Config{}, err
	}

	cfg := Config{
		Params:   p,
		Scheme:   "https",
		Hostname: p.DefaultHostname,
		Port:     443,
	}
	if p.Insecure {
		cfg.Scheme = "http"
		cfg.Port = 80
	}
	if hostname, port, ok := parseHost(p.Host); ok {
		cfg.Hostname = hostname
		if port > 0 {
			cfg.Port = port
		}
	}

	cfg.BaseURL = p.BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = deriveBaseURL(cfg.Scheme, cfg.Hostname, cfg.Port, p.BasePath, p.Space)
	} else if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	cfg.Headers = resolveHeaders(p)
	return cfg, nil
}

func validateParams(p Params) *ConfigurationError {
	if p.AccessToken.IsZero() {
		return &ConfigurationError{Field: "access_token", Message: "expected parameter accessToken"}
	}

	v := validation.New()
	v.Merge("", validation.Validate(p))
	v.Merge("tls", p.TLS.Validate())
	if p.BaseURL != "" {
		v.AbsoluteURL("base_url", p.BaseURL)
	}
	if p.Throttle.Auto {
		v.Range("throttle.percent", p.Throttle.Percent, 1, 100)
	}
	err := v.Validate()
	if err == nil {
		return nil
	}

	ce := &ConfigurationError{Message: err.Error(), Err: err}
	if fields := v.Errors(); len(fields) > 0 {
		ce.Field = fields[0].Field
		ce.Message = fields[0].Message
	}
	return ce
}

// parseHost splits "hostname" or "hostname:port". ok is false for anything
// else, including values with a scheme, whitespace or an empty port.
func parseHost(host string) (hostname string, port int, ok bool) {
	m := hostPattern.FindStringSubmatch(host)
	if m == nil {
		return "", 0, false
	}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n > 65535 {
			return "", 0, false
		}
		port = n
	}
	return m[1], port, true
}

// normalizeBasePath returns path with exactly one leading slash, no trailing
// slash and no empty segments. An empty path stays empty.
func normalizeBasePath(path string) string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

func deriveBaseURL(scheme, hostname string, port int, basePath, space string) string {
	u := fmt.Sprintf("%s://%s:%d%s/spaces/", scheme, hostname, port, normalizeBasePath(basePath))
	if space != "" {
		u += url.PathEscape(space) + "/"
	}
	return u
}

// resolveHeaders canonicalizes header names and adds the user agent and, for
// a static credential, the Authorization header unless the caller set one.
func resolveHeaders(p Params) map[string]string {
	h := make(map[string]string, len(p.Headers)+2)
	for k, v := range p.Headers {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	if p.UserAgent != "" {
		if _, ok := h[HeaderUserAgent]; !ok {
			h[HeaderUserAgent] = p.UserAgent
		}
	}
	if !p.AccessToken.IsDynamic() {
		if _, ok := h[HeaderAuthorization]; !ok {
			h[HeaderAuthorization] = "Bearer " + p.AccessToken.Token()
		}
	}
	return h
}
