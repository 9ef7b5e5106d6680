// Package temporal understands spoken Hindi time expressions.
//
// A Parser maps utterance text to a canonical Spec (absolute instant, duration
// or recurrence) without looking at the clock. A Resolver then pins the Spec
// to concrete instants against an explicit reference instant in IST.
package temporal

import (
	"context"
	"time"
)

// TimeService is the parse-and-resolve surface used by the request path.
type TimeService interface {
	// Parse recognizes a temporal phrase.
	// Supports: "कल सुबह 7 बजे", "10 मिनट", "हर सोमवार 9 बजे", "25 दिसंबर शाम 6:30"
	Parse(ctx context.Context, text string) (Spec, error)

	// Resolve pins spec to instants relative to reference.
	Resolve(ctx context.Context, spec Spec, reference time.Time) (ResolvedSchedule, error)

	// ParseAndResolve runs both steps.
	ParseAndResolve(ctx context.Context, text string, reference time.Time) (Spec, ResolvedSchedule, error)
}
