package bot

import (
	"errors"

	"github.com/max36895/umbot/bus"
)

// Middleware wraps the business-logic invocation. A handler may inspect and
// mutate the context, then call next() exactly once to resume the chain;
// returning without calling next() short-circuits it: neither later
// middleware nor the controller runs, and whatever the handler left in the
// output accumulator becomes the response.
type Middleware func(c *bus.Context, next func() error) error

// ErrNextReused is returned when a handler calls its next() continuation
// more than once.
var ErrNextReused = errors.New("middleware: next() called twice")

type middlewareEntry struct {
	platform string // "" means global
	handler  Middleware
}

// Pipeline composes global and platform-scoped middleware into a single
// callable per request. Handlers run in registration order; handlers scoped
// to another platform are filtered out before composition, not skipped
// inside the chain.
type Pipeline struct {
	entries []middlewareEntry
}

// Use registers a global handler.
func (p *Pipeline) Use(h Middleware) {
	p.entries = append(p.entries, middlewareEntry{handler: h})
}

// UseFor registers a handler that only runs for requests on platform.
func (p *Pipeline) UseFor(platform string, h Middleware) {
	p.entries = append(p.entries, middlewareEntry{platform: platform, handler: h})
}

// Run executes the chain for c, with final as the innermost callable (the
// intent-resolution plus controller step). The returned bool reports
// whether final actually ran; a short-circuited chain returns false with a
// nil error.
func (p *Pipeline) Run(c *bus.Context, final func(*bus.Context) error) (bool, error) {
	var chain []Middleware
	for _, e := range p.entries {
		if e.platform == "" || e.platform == c.Request.Platform {
			chain = append(chain, e.handler)
		}
	}

	completed := false
	var invoke func(i int) error
	invoke = func(i int) error {
		if i == len(chain) {
			completed = true
			return final(c)
		}
		called := false
		next := func() error {
			if called {
				return ErrNextReused
			}
			called = true
			return invoke(i + 1)
		}
		return chain[i](c, next)
	}

	err := invoke(0)
	return completed, err
}
