package httpclient

import "net/http"

// BeforeRequestHook runs before authentication. It may modify req; a
// non-nil error fails the request without sending it.
type BeforeRequestHook func(req *http.Request) error

// ErrorHook receives the final response and error of a failed request, after
// any retries. Its return values replace them, so it can transform or
// suppress the error. resp is nil when no response was received.
type ErrorHook func(req *http.Request, resp *Response, err error) (*Response, error)

func beforeRequestStage(hook BeforeRequestHook) Stage {
	return Stage{
		Name: StageBeforeRequest,
		Middleware: func(next Handler) Handler {
			return func(req *http.Request) (*Response, error) {
				if err := hook(req); err != nil {
					return nil, err
				}
				return next(req)
			}
		},
	}
}

func onErrorStage(hook ErrorHook) Stage {
	return Stage{
		Name: StageOnError,
		Middleware: func(next Handler) Handler {
			return func(req *http.Request) (*Response, error) {
				resp, err := next(req)
				if err != nil {
					return hook(req, resp, err)
				}
				return resp, nil
			}
		},
	}
}
