package errors

import (
	"errors"
	"fmt"
)

var (
	ErrSigning       = errors.New("credential signing failed")
	ErrTransientHTTP = errors.New("transient http failure")
	ErrPermanentHTTP = errors.New("permanent http failure")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotFound      = errors.New("resource not found")
	ErrDecode        = errors.New("response decode failed")
)

// SigningError reports that a credential could not be produced from the
// configured key material.
type SigningError struct {
	KeyID string
	Err   error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign credential (kid=%s): %v", e.KeyID, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

func (e *SigningError) Is(target error) bool { return target == ErrSigning }

// TransientHTTPError is returned once the retry budget is spent on a
// retry-eligible status or a transport failure.
type TransientHTTPError struct {
	Method     string
	URL        string
	StatusCode int // zero when the transport failed before a response
	Attempts   int
	Body       []byte
	Err        error
}

func (e *TransientHTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: giving up after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d after %d attempt(s)", e.Method, e.URL, e.StatusCode, e.Attempts)
}

func (e *TransientHTTPError) Unwrap() error { return e.Err }

func (e *TransientHTTPError) Is(target error) bool { return target == ErrTransientHTTP }

// PermanentHTTPError is any non-2xx status outside the retry-eligible set.
type PermanentHTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *PermanentHTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

func (e *PermanentHTTPError) Is(target error) bool {
	return target == ErrPermanentHTTP || (target == ErrNotFound && e.StatusCode == 404)
}
