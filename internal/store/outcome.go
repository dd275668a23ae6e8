package store

// Outcome reports what an asynchronous store operation did. Failures are
// not returned as errors; they are recorded in the store's state.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
	// OutcomeSkippedInFlight: another call of the same operation was outstanding.
	OutcomeSkippedInFlight
	// OutcomeSkippedUnchanged: parameters match the last successful fetch.
	OutcomeSkippedUnchanged
	// OutcomeDiscardedStale: the selection moved on while the request was in flight.
	OutcomeDiscardedStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkippedInFlight:
		return "skipped_in_flight"
	case OutcomeSkippedUnchanged:
		return "skipped_unchanged"
	case OutcomeDiscardedStale:
		return "discarded_stale"
	default:
		return "unknown"
	}
}
