package relay

import (
	"errors"

	"github.com/douglarek/newsbot/feed"
)

// Kind names the step of a tick that failed.
type Kind string

const (
	KindFetch    Kind = "fetch"
	KindParse    Kind = "parse"
	KindHistory  Kind = "history"
	KindDelivery Kind = "delivery"
)

// TickError is the error returned for an aborted tick.
type TickError struct {
	Kind Kind
	Err  error
}

func (e *TickError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *TickError) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or "" when err is not a *TickError.
func KindOf(err error) Kind {
	var te *TickError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

func fetchError(err error) *TickError {
	if errors.Is(err, feed.ErrParse) || errors.Is(err, feed.ErrNoItems) {
		return &TickError{Kind: KindParse, Err: err}
	}
	return &TickError{Kind: KindFetch, Err: err}
}
