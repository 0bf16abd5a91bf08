// Package bus defines the canonical message shapes that flow between the
// platform adapters and the dispatch engine. Adapters normalize each
// platform's webhook payload into an IncomingRequest; the engine hands an
// OutgoingResult back for platform-specific serialization.
package bus

import (
	"encoding/json"

	"github.com/max36895/umbot/session"
)

// IncomingRequest is one normalized user turn. Immutable once constructed.
type IncomingRequest struct {
	Platform          string
	UserID            string
	Command           string // normalized lowercase command text
	OriginalUtterance string
	MessageSeq        int64
	IsFirstMessage    bool

	// Payload is the opaque per-platform payload, kept for intent payload
	// extraction by application code.
	Payload json.RawMessage

	// NLUIntentHint is the intent name the platform's own NLU attached to
	// the request, if any.
	NLUIntentHint string

	// RawStateBlob carries the inbound session state for stateless
	// round-trip platforms. Empty on platforms with server-side storage.
	RawStateBlob json.RawMessage
}

// OutgoingResult is the canonical response handed to a ResponseAdapter.
// Text is always a string (possibly empty) and EndConversation is always a
// concrete boolean.
type OutgoingResult struct {
	Text            string
	EndConversation bool

	// Fields carries arbitrary renderer-facing values (tts, emoji, ...)
	// that only the platform adapter interprets.
	Fields map[string]any

	// Session is a snapshot of the persisted state. For stateless
	// round-trip platforms StateBlob additionally carries the serialized
	// state to echo back inside the webhook response.
	Session   *session.Session
	StateBlob json.RawMessage
}

// Context is the mutable unit threaded through the middleware chain and
// into the controller: the request, the loaded session, the output
// accumulator, and the action resolution decides on.
type Context struct {
	Request *IncomingRequest
	Session *session.Session

	// Output accumulator.
	Text            string
	EndConversation bool
	Fields          map[string]any

	// ResolvedAction is filled in before controller invocation; empty
	// means "no match", in which case Resolved is false.
	ResolvedAction string
	Resolved       bool
}

// SetField records a renderer-facing value on the output accumulator.
func (c *Context) SetField(name string, value any) {
	if c.Fields == nil {
		c.Fields = make(map[string]any)
	}
	c.Fields[name] = value
}

// Controller is the single hook application logic must provide. Action is
// invoked once per request with the resolved action name; action == "" and
// resolved == false means nothing matched and the controller should fall
// back to a default response.
type Controller interface {
	Action(c *Context, action string, resolved bool) error
}

// ControllerFunc adapts a plain function to the Controller interface.
type ControllerFunc func(c *Context, action string, resolved bool) error

func (f ControllerFunc) Action(c *Context, action string, resolved bool) error {
	return f(c, action, resolved)
}
