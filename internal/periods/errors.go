package periods

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPeriod is returned by Parse for tokens that do not name a period.
	ErrMalformedPeriod = errors.New("malformed period")
	// ErrLocationUnavailable is returned by Discover when a location cannot be read.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// ParseError reports the raw token that failed to parse.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("malformed period %q", e.Raw)
	}
	return fmt.Sprintf("malformed period %q: %s", e.Raw, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedPeriod }

// LocationUnavailableError wraps the I/O failure for an unreadable location.
type LocationUnavailableError struct {
	Location string
	Err      error
}

func (e *LocationUnavailableError) Error() string {
	return fmt.Sprintf("location %s unavailable: %v", e.Location, e.Err)
}

func (e *LocationUnavailableError) Unwrap() []error {
	return []error{ErrLocationUnavailable, e.Err}
}
