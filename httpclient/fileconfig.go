package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/spacekit/config"
	"github.com/kbukum/spacekit/credential"
	"github.com/kbukum/spacekit/logger"
	"github.com/kbukum/spacekit/security"
	"github.com/kbukum/spacekit/util"
	"github.com/kbukum/spacekit/validation"
)

// EnvPrefix is the prefix LoadOptions binds environment variables with.
const EnvPrefix = "SPACEKIT"

// FileConfig is the client configuration as read from config.yml and the
// environment. Unset fields keep the client defaults. The token is usually
// supplied as SPACEKIT_ACCESS_TOKEN rather than written to the file.
//
//	host: "api.eu.spacekit.io"
//	space: "shop"
//	throttle: "50%"
//	retry_limit: 3
//	max_content_length: "10MB"
type FileConfig struct {
	Host            string            `yaml:"host" mapstructure:"host"`
	DefaultHostname string            `yaml:"default_hostname" mapstructure:"default_hostname"`
	Space           string            `yaml:"space" mapstructure:"space"`
	BasePath        string            `yaml:"base_path" mapstructure:"base_path"`
	BaseURL         string            `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Insecure        bool              `yaml:"insecure" mapstructure:"insecure"`
	AccessToken     string            `yaml:"access_token" mapstructure:"access_token"`
	Headers         map[string]string `yaml:"headers" mapstructure:"headers"`
	UserAgent       string            `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout         time.Duration     `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	Throttle        string        `yaml:"throttle" mapstructure:"throttle"`
	ThrottleWindow  time.Duration `yaml:"throttle_window" mapstructure:"throttle_window" validate:"gte=0"`
	RateLimitHeader string        `yaml:"rate_limit_header" mapstructure:"rate_limit_header"`

	RetryLimit   *int  `yaml:"retry_limit" mapstructure:"retry_limit" validate:"omitempty,gte=0"`
	RetryOnError *bool `yaml:"retry_on_error" mapstructure:"retry_on_error"`

	Proxy            string              `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`
	HTTP2            bool                `yaml:"http2" mapstructure:"http2"`
	MaxContentLength string              `yaml:"max_content_length" mapstructure:"max_content_length"`
	MaxBodyLength    string              `yaml:"max_body_length" mapstructure:"max_body_length"`
	TLS              *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Logging, when its level is set, replaces the default log handler.
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// String masks the access token.
func (c FileConfig) String() string {
	return fmt.Sprintf("FileConfig{host=%s space=%s access_token=%s throttle=%s}",
		c.Host, c.Space, util.MaskSecret(c.AccessToken, 4), c.Throttle)
}

// Options validates the file configuration and converts it to client options.
func (c FileConfig) Options() ([]Option, error) {
	if err := validation.Validate(c); err != nil {
		return nil, &ConfigurationError{Message: err.Error(), Err: err}
	}

	var opts []Option
	add := func(cond bool, opt Option) {
		if cond {
			opts = append(opts, opt)
		}
	}

	add(c.AccessToken != "", WithCredential(credential.Static(c.AccessToken)))
	add(c.Host != "", WithHost(c.Host))
	add(c.DefaultHostname != "", WithDefaultHostname(c.DefaultHostname))
	add(c.Space != "", WithSpace(c.Space))
	add(c.BasePath != "", WithBasePath(c.BasePath))
	add(c.BaseURL != "", WithBaseURL(c.BaseURL))
	add(c.Insecure, WithInsecure(true))
	add(len(c.Headers) > 0, WithHeaders(c.Headers))
	add(c.UserAgent != "", WithUserAgent(c.UserAgent))
	add(c.Timeout > 0, WithTimeout(c.Timeout))

	if c.Throttle != "" {
		t, err := ParseThrottle(c.Throttle)
		if err != nil {
			return nil, &ConfigurationError{Field: "throttle", Message: err.Error(), Err: err}
		}
		opts = append(opts, WithThrottleMode(t))
	}
	add(c.ThrottleWindow > 0, WithThrottleWindow(c.ThrottleWindow))
	add(c.RateLimitHeader != "", WithRateLimitHeader(c.RateLimitHeader))

	if c.RetryLimit != nil {
		opts = append(opts, WithRetryLimit(*c.RetryLimit))
	}
	if c.RetryOnError != nil {
		opts = append(opts, WithRetryOnError(*c.RetryOnError))
	}

	add(c.Proxy != "", WithProxy(c.Proxy))
	add(c.HTTP2, WithHTTP2())
	if c.TLS != nil {
		opts = append(opts, WithTLS(*c.TLS))
	}

	if c.MaxContentLength != "" {
		n, err := parseSizeField("max_content_length", c.MaxContentLength)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMaxContentLength(n))
	}
	if c.MaxBodyLength != "" {
		n, err := parseSizeField("max_body_length", c.MaxBodyLength)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMaxBodyLength(n))
	}

	if c.Logging.Level != "" {
		lc := c.Logging
		lc.ApplyDefaults()
		if err := lc.Validate(); err != nil {
			return nil, &ConfigurationError{Field: "logging", Message: err.Error(), Err: err}
		}
		opts = append(opts, WithLogHandler(LoggerHandler(logger.New(&lc, "spacekit"))))
	}

	return opts, nil
}

func parseSizeField(field, value string) (int64, error) {
	n, err := util.ParseSize(value)
	if err != nil {
		return 0, &ConfigurationError{Field: field, Message: err.Error(), Err: err}
	}
	return n, nil
}

// LoadOptions reads the named service's config.yml, .env file and
// SPACEKIT_* environment variables and converts them to client options.
func LoadOptions(serviceName string, loaderOpts ...config.LoaderOption) ([]Option, error) {
	var fc FileConfig
	loaderOpts = append([]config.LoaderOption{config.WithEnvPrefix(EnvPrefix)}, loaderOpts...)
	if err := config.LoadConfig(serviceName, &fc, loaderOpts...); err != nil {
		return nil, &ConfigurationError{Message: err.Error(), Err: err}
	}
	return fc.Options()
}
