package httpclient

import (
	"net/http"
	"slices"
)

// Handler sends a request and returns its response. Error responses are
// returned together with a non-nil *Error.
type Handler func(req *http.Request) (*Response, error)

// Middleware wraps a Handler with one cross-cutting behavior.
type Middleware func(next Handler) Handler

// Stage is a named pipeline step.
type Stage struct {
	Name       string
	Middleware Middleware
}

// Stage names, listed outermost first. This is the order a request passes
// through them; a retried request re-enters at the throttle.
const (
	StageOnError       = "on_error"
	StageBeforeRequest = "before_request"
	StageAuth          = "auth"
	StageRetry         = "retry"
	StageThrottle      = "throttle"
)

var stageOrder = []string{
	StageOnError,
	StageBeforeRequest,
	StageAuth,
	StageRetry,
	StageThrottle,
}

func stageRank(name string) int {
	if i := slices.Index(stageOrder, name); i >= 0 {
		return i
	}
	return len(stageOrder)
}

// Pipeline is the ordered set of stages a client applies to every request.
// Stages are kept in the fixed stage order whatever order they are added in.
type Pipeline struct {
	stages []Stage
}

// Use adds a stage at its position in the stage order, replacing any stage
// with the same name. Unknown names go innermost, in the order added.
func (p *Pipeline) Use(s Stage) {
	p.stages = slices.DeleteFunc(p.stages, func(existing Stage) bool {
		return existing.Name == s.Name
	})
	rank := stageRank(s.Name)
	i := len(p.stages)
	for j, existing := range p.stages {
		if stageRank(existing.Name) > rank {
			i = j
			break
		}
	}
	p.stages = slices.Insert(p.stages, i, s)
}

// Names returns the stage names, outermost first.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Has reports whether the pipeline contains the named stage.
func (p *Pipeline) Has(name string) bool {
	return slices.ContainsFunc(p.stages, func(s Stage) bool { return s.Name == name })
}

// Then wraps h with every stage. The first stage is outermost.
func (p *Pipeline) Then(h Handler) Handler {
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].Middleware(h)
	}
	return h
}
