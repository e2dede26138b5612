package decision

import (
	"context"
	"errors"
	"fmt"

	"matchsim.ai/internal/sim/intent"
)

// Planner maps a context snapshot to a plan. Implementations may be slow and
// may fail; they are never called on the match loop.
type Planner interface {
	Generate(ctx context.Context, c Context) (intent.ActionPlan, error)
	Ready() bool
}

// Planner error kinds, matchable with errors.Is.
var (
	ErrUnavailable = errors.New("planner unavailable")
	ErrInference   = errors.New("planner inference failed")
	ErrMalformed   = errors.New("planner response malformed")
	ErrTimeout     = errors.New("planner timed out")
)

type PlannerError struct {
	Kind error
	Err  error
}

func NewPlannerError(kind, err error) *PlannerError {
	return &PlannerError{Kind: kind, Err: err}
}

func (e *PlannerError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *PlannerError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName is the short label used in metrics and cycle records.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrInference):
		return "inference"
	default:
		return "unknown"
	}
}

// asPlannerError classifies arbitrary backend errors as inference failures.
func asPlannerError(err error) error {
	var pe *PlannerError
	if errors.As(err, &pe) {
		return err
	}
	return NewPlannerError(ErrInference, err)
}
