package events

// SessionClosedPayload is the wire payload for session.closed.
type SessionClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// SessionClosed announces session teardown to the agent layer so it can
// release per-session conversation context.
type SessionClosed struct {
	Base
	payload SessionClosedPayload
}

func (t SessionClosed) String() string { return "Session Closed" }

// Reason returns the teardown reason, if any.
func (t SessionClosed) Reason() string { return t.payload.Reason }

// Payload returns the typed wire payload.
func (t SessionClosed) Payload() SessionClosedPayload { return t.payload }

// NewSessionClosed creates a session closed event.
func NewSessionClosed(sessionID, reason string, opts ...RebaseOption) SessionClosed {
	base := NewBase(KindSessionClosed, sessionID)
	for _, opt := range opts {
		opt(&base)
	}

	return SessionClosed{Base: base, payload: SessionClosedPayload{Reason: reason}}
}
