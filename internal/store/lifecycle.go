package store

import "logistics/pkg/apperror"

// Lifecycle is an Order's operator-controlled dispatch stage, independent
// of its pipeline Classification. Invariant 2: monotonic, ingested →
// armed → dispatched → delivered → archived; no transition may decrease.
type Lifecycle string

const (
	LifecycleIngested   Lifecycle = "ingested"
	LifecycleArmed      Lifecycle = "armed"
	LifecycleDispatched Lifecycle = "dispatched"
	LifecycleDelivered  Lifecycle = "delivered"
	LifecycleArchived   Lifecycle = "archived"
)

// lifecycleOrder ranks each stage for the monotonicity check.
var lifecycleOrder = map[Lifecycle]int{
	LifecycleIngested:   0,
	LifecycleArmed:      1,
	LifecycleDispatched: 2,
	LifecycleDelivered:  3,
	LifecycleArchived:   4,
}

// validateTransition reports whether moving from 'from' to 'to' is legal:
// equal (idempotent re-scan) or strictly forward.
func validateTransition(from, to Lifecycle) error {
	fromRank, ok := lifecycleOrder[from]
	if !ok {
		return apperror.New(apperror.CodeValidation, "unknown lifecycle value").WithField("lifecycle").WithDetails("value", string(from))
	}
	toRank, ok := lifecycleOrder[to]
	if !ok {
		return apperror.New(apperror.CodeValidation, "unknown lifecycle value").WithField("lifecycle").WithDetails("value", string(to))
	}
	if toRank < fromRank {
		return apperror.ErrLifecycleRegress.WithDetails("from", string(from)).WithDetails("to", string(to))
	}
	return nil
}
