package bus

// RequestAdapter turns one platform's raw webhook payload into the
// canonical IncomingRequest. One adapter per supported platform.
type RequestAdapter interface {
	// Platform returns the platform identifier this adapter serves.
	Platform() string

	// Stateless reports whether the platform carries session state inside
	// the webhook request/response pair itself (no server-side storage).
	// The dispatcher picks the round-trip persistence mode per request
	// based on this capability.
	Stateless() bool

	// Parse normalizes the raw payload. An error means the payload could
	// not be turned into a minimally valid request.
	Parse(raw []byte) (*IncomingRequest, error)
}

// ResponseAdapter serializes the canonical result into the platform's
// wire-format JSON.
type ResponseAdapter interface {
	Render(req *IncomingRequest, res *OutgoingResult) ([]byte, error)
}
