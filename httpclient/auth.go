package httpclient

import (
	"net/http"

	"github.com/kbukum/spacekit/credential"
)

// authStage resolves a dynamic credential before every request. Retries
// inside the pipeline reuse the token; a producer failure fails the request
// with an *AuthTokenError.
func authStage(cred credential.Credential) Stage {
	return Stage{
		Name: StageAuth,
		Middleware: func(next Handler) Handler {
			return func(req *http.Request) (*Response, error) {
				token, err := cred.Resolve(req.Context())
				if err != nil {
					return nil, &AuthTokenError{Err: err}
				}
				req.Header.Set(HeaderAuthorization, "Bearer "+token)
				return next(req)
			}
		},
	}
}
