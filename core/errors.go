package relay

import (
	"errors"
	"fmt"

	"github.com/koscakluka/relay-core/core/events"
)

var (
	// ErrCapacityExceeded reports that the bound on outstanding pending
	// entries was reached; the event was neither journaled nor attempted.
	ErrCapacityExceeded = errors.New("outstanding journal entries exceed the configured bound")

	// ErrSessionNotFound reports an operation against an unknown or already
	// evicted session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRelayClosed reports an operation against a closed relay.
	ErrRelayClosed = errors.New("relay already closed")
)

// PersistenceError wraps a journal append failure. It is fatal to the publish
// call that hit it: no delivery attempt follows an unjournaled event.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("journal persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CorrelationError reports an inbound response referencing an unknown or
// expired session. The response is dropped; nothing is routed to a default
// client.
type CorrelationError struct {
	SessionID string
	Kind      events.Kind
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("no live session %q for inbound %s", e.SessionID, e.Kind)
}

// InvalidTransitionError reports a trigger that matches no edge from the
// session's current state. The state is left unchanged.
type InvalidTransitionError struct {
	SessionID string
	From      State
	Trigger   trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no transition from %s on %s for session %q", e.From, e.Trigger, e.SessionID)
}
