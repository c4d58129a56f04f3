package lifecycle

import "errors"

// notLoadedError signals a Require call with no service held.
type notLoadedError struct{}

func (notLoadedError) Error() string { return "no resource loaded" }

// ErrNotLoaded constructs the error returned by Require on an idle slot.
func ErrNotLoaded() error { return notLoadedError{} }

// IsNotLoaded reports whether err indicates that no resource is loaded.
func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

// loadError wraps a factory failure for a specific resource id.
type loadError struct {
	id    string
	cause error
}

func (e loadError) Error() string { return "load failed: " + e.id + ": " + e.cause.Error() }

func (e loadError) Unwrap() error { return e.cause }

// IsLoadFailed reports whether err came from a failed or discarded load attempt.
func IsLoadFailed(err error) bool {
	var e loadError
	return errors.As(err, &e)
}

// FailedResourceID extracts the resource id from a load failure, if any.
func FailedResourceID(err error) string {
	var e loadError
	if errors.As(err, &e) {
		return e.id
	}
	return ""
}

// errAttemptDiscarded is the cause recorded when a factory call completes
// after its attempt was superseded by Reset; the constructed service has
// already been released.
var errAttemptDiscarded = errors.New("attempt superseded, result discarded")

// errEmptyResourceID rejects Load calls with an empty id.
var errEmptyResourceID = errors.New("resource id is empty")
