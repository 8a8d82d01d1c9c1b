package authflow

// EventKind discriminates the events a flow emits to its presenter.
type EventKind int

const (
	// EventCodeReady carries the verification URL and user code to display.
	EventCodeReady EventKind = iota

	// EventPendingRetry tells the presenter the backend reported a transient
	// "not yet authorized" condition the user should be told about.
	EventPendingRetry

	// EventCompleted is the single terminal event of a session.
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventCodeReady:
		return "code_ready"
	case EventPendingRetry:
		return "pending_retry"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event is an asynchronous notification from the flow worker to the
// presentation layer. Delivery is best-effort: a presenter that has stopped
// draining the channel misses events rather than blocking the worker.
type Event struct {
	Kind EventKind

	// Set for EventCodeReady.
	VerificationURI string
	UserCode        string

	// Set for EventPendingRetry: the backend's raw diagnostic text.
	Diagnostic string

	// Set for EventCompleted.
	Success bool
	Err     error
}
