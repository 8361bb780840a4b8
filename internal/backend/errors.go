package backend

import (
	"errors"
	"fmt"

	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

// RejectedError is a non-2xx answer that was not a sign-in challenge. Message carries the
// body's "error" field when the backend sent one.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend rejected request (%d)", e.Status)
}

// Unwrap lets callers match the error against appErrors.ErrUpstreamRejected.
func (e *RejectedError) Unwrap() error { return appErrors.ErrUpstreamRejected }

// Reason returns the backend message, or fallback(status) when the body had none.
func Reason(err error, fallback func(status int) string) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		if rejected.Message != "" {
			return rejected.Message
		}
		if fallback != nil {
			return fallback(rejected.Status)
		}
		return fmt.Sprintf("Error %d", rejected.Status)
	}
	return err.Error()
}

// IsSignInRequired reports whether err means the browser must go to the sign-in page.
func IsSignInRequired(err error) bool {
	return appErrors.Is(err, appErrors.ErrSignInRequired)
}

// IsUnavailable reports whether err is a transport failure.
func IsUnavailable(err error) bool {
	return appErrors.Is(err, appErrors.ErrUpstreamUnavailable)
}

func signInRequired(cause error) error {
	return appErrors.Wrap(cause, appErrors.ErrSignInRequired.Code, appErrors.ErrSignInRequired.Status, appErrors.ErrSignInRequired.Message)
}

func unavailable(cause error) error {
	return appErrors.Wrap(cause, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
}
