// Package credential models the bearer token a client authenticates with.
//
// A Credential is either static (a fixed token string) or dynamic (a Producer
// invoked before every request). The helpers in this package build producers
// that cache tokens or fetch them through OAuth2; none of them persist tokens.
package credential

import (
	"context"
	"errors"
	"strings"

	"github.com/kbukum/spacekit/util"
)

// ErrEmptyToken is returned when a producer yields an empty token.
var ErrEmptyToken = errors.New("credential: empty token")

// Producer returns a bearer token. It may block, for example while refreshing
// a token from a remote endpoint, and must honor ctx.
type Producer func(ctx context.Context) (string, error)

// Credential is a tagged variant: either a static token or a Producer.
// The zero value is an absent credential.
type Credential struct {
	token    string
	producer Producer
}

// Static returns a credential for a fixed token.
func Static(token string) Credential {
	return Credential{token: token}
}

// Dynamic returns a credential that calls p for every request.
func Dynamic(p Producer) Credential {
	return Credential{producer: p}
}

// IsZero reports whether no usable credential is set.
func (c Credential) IsZero() bool {
	return c.producer == nil && strings.TrimSpace(c.token) == ""
}

// IsDynamic reports whether the credential is backed by a Producer.
func (c Credential) IsDynamic() bool {
	return c.producer != nil
}

// Token returns the static token, or "" for dynamic credentials.
func (c Credential) Token() string {
	if c.producer != nil {
		return ""
	}
	return c.token
}

// Producer returns the producer of a dynamic credential, or nil.
func (c Credential) Producer() Producer {
	return c.producer
}

// Resolve returns the token for one request. Static credentials return their
// token; dynamic credentials invoke the producer.
func (c Credential) Resolve(ctx context.Context) (string, error) {
	if c.producer == nil {
		if c.IsZero() {
			return "", ErrEmptyToken
		}
		return c.token, nil
	}

	token, err := c.producer(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// String masks the token so credentials can be logged safely.
func (c Credential) String() string {
	switch {
	case c.producer != nil:
		return "credential(dynamic)"
	case c.IsZero():
		return "credential(none)"
	default:
		return "credential(static:" + util.MaskSecret(c.token, 4) + ")"
	}
}
