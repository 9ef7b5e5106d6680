package temporal

import (
	"errors"
	"fmt"
)

// ParseFailure reports text the Parser could not turn into a Spec.
type ParseFailure struct {
	Input  string
	Reason string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("unable to parse time %q: %s", e.Input, e.Reason)
}

// ResolutionError reports a Spec that cannot be pinned to an instant.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return "unable to resolve time: " + e.Reason
}

func parseFailure(input, format string, args ...any) *ParseFailure {
	return &ParseFailure{Input: input, Reason: fmt.Sprintf(format, args...)}
}

func resolutionError(format string, args ...any) *ResolutionError {
	return &ResolutionError{Reason: fmt.Sprintf(format, args...)}
}

// IsParseFailure reports whether err is or wraps a *ParseFailure.
func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}

// IsResolutionError reports whether err is or wraps a *ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
