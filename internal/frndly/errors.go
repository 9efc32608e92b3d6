package frndly

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrConfiguration     = errors.New("frndly: username and password are required")
	ErrAuthentication    = errors.New("frndly: upstream rejected sign-in")
	ErrRequest           = errors.New("frndly: no usable response from upstream")
	ErrNoChannels        = errors.New("frndly: upstream returned no channels")
	ErrNoLiveProgram     = errors.New("frndly: no program currently live")
	ErrStreamResolution  = errors.New("frndly: unable to resolve stream")
	ErrUnsupportedStream = errors.New("frndly: unsupported stream type")
)

// Error wraps the sentinel errors with request context.
type Error struct {
	Sentinel  error
	Operation string
	Code      int    // upstream error code, when one was reported
	Message   string // human-readable detail, upstream message when available
	Err       error  // nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Sentinel, e.Operation)
	if e.Code > 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}
