package bot

import (
	"errors"
	"fmt"
)

// ErrNoController is returned by Dispatch when no controller has been
// registered. It is a configuration fault: nothing about the request can
// fix it.
var ErrNoController = errors.New("no controller registered")

// ConfigError is a fatal setup fault detected synchronously, before any
// session I/O happens.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "configuration: " + e.Err.Error()
	}
	return "configuration: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PlatformError reports a request for a platform no adapter was registered
// for.
type PlatformError struct {
	Platform string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("unrecognized platform %q", e.Platform)
}

// MalformedRequestError reports a payload the request adapter could not
// parse. The dispatcher recovers from it with a generic response; it never
// propagates to the webhook caller.
type MalformedRequestError struct {
	Platform string
	Err      error
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed %s request: %v", e.Platform, e.Err)
}

func (e *MalformedRequestError) Unwrap() error { return e.Err }
