package availability

import (
	"errors"

	"restoboost/internal/model"
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidRestaurant = errors.New("invalid restaurant id")
	ErrInternal          = errors.New("slot computation failed")
)

// Outcome labels for metrics and logs.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeCached   = "cached"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Result is the outcome of one computation. When Err is set the computation did
// not run and Slots is empty. Degraded lists store calls that failed and were
// treated as having returned no data.
type Result struct {
	Slots    []model.Slot
	Err      error
	Degraded []error
	Cached   bool
}

// SlotsOrEmpty returns the slots, never nil.
func (r Result) SlotsOrEmpty() []model.Slot {
	if r.Err != nil || r.Slots == nil {
		return []model.Slot{}
	}
	return r.Slots
}

func (r Result) Outcome() string {
	switch {
	case errors.Is(r.Err, ErrInvalidDate), errors.Is(r.Err, ErrInvalidRestaurant):
		return OutcomeInvalid
	case r.Err != nil:
		return OutcomeFailed
	case r.Cached:
		return OutcomeCached
	case len(r.Degraded) > 0:
		return OutcomeDegraded
	case len(r.Slots) == 0:
		return OutcomeEmpty
	default:
		return OutcomeOK
	}
}
