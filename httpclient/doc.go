// Package httpclient is a pre-configured HTTP client for the spacekit
// multi-tenant REST API.
//
// New resolves the options into an immutable Config, derives the base URL
// (https://api.spacekit.io:443/spaces/<space>/ by default) and assembles a
// Pipeline of stages around the transport. Outermost first:
//
//   - on_error: the OnError hook sees the final error after retries
//   - before_request: the OnBeforeRequest hook
//   - auth: resolves a dynamic access token (static tokens are a header)
//   - retry: re-sends network errors, 429 and 5xx responses
//   - throttle: admits at most N requests per window, in arrival order
//
// A retried request passes the throttle again but is not re-authenticated.
//
// # Usage
//
//	client, err := httpclient.New(
//	    httpclient.WithAccessToken(os.Getenv("SPACEKIT_ACCESS_TOKEN")),
//	    httpclient.WithSpace("shop"),
//	    httpclient.WithThrottle(5),
//	    httpclient.WithRetryLimit(3),
//	)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "entries",
//	})
//
//	entries, err := httpclient.Get[EntryList](client, ctx, "entries")
//
// CloneWithParams builds an independent client from the same options plus
// overrides, for example to talk to another space:
//
//	other, err := client.CloneWithParams(httpclient.WithSpace("blog"))
//
// # Configuration files
//
// LoadOptions reads a service's config.yml and SPACEKIT_* environment
// variables into options; see FileConfig.
package httpclient
