package credential

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// FromTokenSource adapts an oauth2.TokenSource. The source decides whether
// tokens are cached; wrap it with oauth2.ReuseTokenSource if it does not.
func FromTokenSource(ts oauth2.TokenSource) Producer {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("credential: fetch oauth2 token: %w", err)
		}
		return tok.AccessToken, nil
	}
}

// ClientCredentials returns a producer for the OAuth2 client-credentials flow.
// Tokens are reused until they expire. ctx is used for token endpoint calls.
func ClientCredentials(ctx context.Context, cfg *clientcredentials.Config) Producer {
	return FromTokenSource(cfg.TokenSource(ctx))
}
