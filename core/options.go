package relay

import (
	"time"

	"github.com/koscakluka/relay-core/core/bus"
	"github.com/koscakluka/relay-core/core/events"
	"github.com/koscakluka/relay-core/core/journal"
)

type RelayOption func(*Relay)

// WithTransport sets the bus transport used for delivery attempts and the
// inbound response subscription.
func WithTransport(transport bus.Transport) RelayOption {
	return func(r *Relay) {
		r.transport = transport
	}
}

// WithJournal sets the durable journal store. Defaults to an in-memory store,
// which survives nothing; production runs want journal.OpenFileStore.
func WithJournal(store journal.Store) RelayOption {
	return func(r *Relay) {
		r.store = store
	}
}

// WithBackoffPolicy replaces the retry delay policy.
func WithBackoffPolicy(policy BackoffPolicy) RelayOption {
	return func(r *Relay) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// WithMaxAttempts caps delivery attempts per entry, first attempt included.
func WithMaxAttempts(attempts int) RelayOption {
	return func(r *Relay) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
	}
}

// WithAttemptTimeout bounds a single delivery attempt.
func WithAttemptTimeout(timeout time.Duration) RelayOption {
	return func(r *Relay) {
		if timeout > 0 {
			r.attemptTimeout = timeout
		}
	}
}

// WithResponseTimeout bounds how long a session waits in AwaitingResponse
// before moving to Error. Zero disables the timeout.
func WithResponseTimeout(timeout time.Duration) RelayOption {
	return func(r *Relay) {
		r.responseTimeout = timeout
	}
}

// WithInactivityTimeout bounds session idleness before the expiry sweep
// closes and evicts it.
func WithInactivityTimeout(timeout time.Duration) RelayOption {
	return func(r *Relay) {
		if timeout > 0 {
			r.inactivityTimeout = timeout
		}
	}
}

// WithSweepInterval sets how often the expiry sweep runs.
func WithSweepInterval(interval time.Duration) RelayOption {
	return func(r *Relay) {
		if interval > 0 {
			r.sweepInterval = interval
		}
	}
}

// WithPendingBound caps outstanding pending/retrying journal entries; publish
// calls beyond it fail fast with ErrCapacityExceeded.
func WithPendingBound(bound int) RelayOption {
	return func(r *Relay) {
		if bound > 0 {
			r.pendingBound = bound
		}
	}
}

// WithResponsePattern overrides the subscription pattern for inbound agent
// responses.
func WithResponsePattern(pattern string) RelayOption {
	return func(r *Relay) {
		if pattern != "" {
			r.responsePattern = pattern
		}
	}
}

type RunOptions struct {
	onStateChanged   func(sessionID string, state State)
	onResponseReady  func(session Session, payload events.AgentResponsePayload)
	onDeliveryFailed func(sessionID, entryID string)
	onTimeout        func(sessionID string)
}

type RunOption func(*RunOptions)

// WithStateChangedCallback is invoked on every session state transition,
// terminal ones included. Intermediate retry attempts are invisible here;
// only final delivery outcomes reach the machine.
func WithStateChangedCallback(callback func(sessionID string, state State)) RunOption {
	return func(o *RunOptions) {
		o.onStateChanged = callback
	}
}

// WithResponseReadyCallback is invoked when a correlated agent response is
// ready for playback on the originating capture surface.
func WithResponseReadyCallback(callback func(session Session, payload events.AgentResponsePayload)) RunOption {
	return func(o *RunOptions) {
		o.onResponseReady = callback
	}
}

// WithDeliveryFailedCallback is invoked once per entry whose delivery
// attempts were exhausted.
func WithDeliveryFailedCallback(callback func(sessionID, entryID string)) RunOption {
	return func(o *RunOptions) {
		o.onDeliveryFailed = callback
	}
}

// WithTimeoutCallback is invoked exactly once when a session's response
// window expires. No automatic re-prompt follows.
func WithTimeoutCallback(callback func(sessionID string)) RunOption {
	return func(o *RunOptions) {
		o.onTimeout = callback
	}
}
