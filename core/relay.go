// Package relay bridges capture surfaces to an agent pipeline over an
// unreliable bus. Outbound events are journaled before any delivery attempt
// and retried with backoff; inbound responses are correlated back to the
// session that originated them through a per-session interaction state
// machine.
package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/relay-core/core/bus"
	"github.com/koscakluka/relay-core/core/events"
	"github.com/koscakluka/relay-core/core/journal"
)

type Relay struct {
	store     journal.Store
	transport bus.Transport

	policy          BackoffPolicy
	maxAttempts     int
	attemptTimeout  time.Duration
	responseTimeout time.Duration

	inactivityTimeout time.Duration
	sweepInterval     time.Duration
	pendingBound      int
	responsePattern   string

	registry  *sessionRegistry
	publisher *publisher
	stats     *relayStats

	runOptions  RunOptions
	baseContext context.Context

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// New builds a relay. A transport is required; everything else defaults to
// 3 delivery attempts, a 30s response timeout, and a 5m inactivity timeout.
func New(opts ...RelayOption) (*Relay, error) {
	r := &Relay{
		store:             journal.NewMemoryStore(),
		policy:            DefaultBackoff(),
		maxAttempts:       3,
		attemptTimeout:    5 * time.Second,
		responseTimeout:   30 * time.Second,
		inactivityTimeout: 5 * time.Minute,
		sweepInterval:     30 * time.Second,
		pendingBound:      256,
		responsePattern:   events.ResponsePattern,
		stats:             newRelayStats(),
		baseContext:       context.Background(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.transport == nil {
		return nil, fmt.Errorf("relay requires a bus transport")
	}

	r.publisher = newPublisher(r.store, r.transport, r.policy, r.maxAttempts, r.attemptTimeout, r.pendingBound, r.stats)
	r.publisher.onDelivered = r.deliveryConfirmed
	r.publisher.onExhausted = r.deliveryExhausted
	r.registry = newSessionRegistry(r.inactivityTimeout, r.sweepInterval, r.sessionExpired)

	return r, nil
}

// Run wires callbacks, subscribes to inbound responses, starts the expiry
// sweep, and replays undelivered journal entries from previous runs. It does
// not block.
//
// Contract: call Run at most once per relay instance.
func (r *Relay) Run(ctx context.Context, opts ...RunOption) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}
	if r.started.Swap(true) {
		return fmt.Errorf("relay already running")
	}

	r.runOptions = RunOptions{}
	for _, opt := range opts {
		opt(&r.runOptions)
	}
	r.baseContext = ctx

	if err := r.transport.Subscribe(r.responsePattern, r.handleInbound); err != nil {
		r.started.Store(false)
		return fmt.Errorf("failed to subscribe to inbound responses: %w", err)
	}

	r.registry.startSweep()
	return r.replayPending(ctx)
}

// OnTransportReconnected is the hook for the transport's reconnect callback;
// it replays entries whose acknowledgement may have been lost in the outage.
func (r *Relay) OnTransportReconnected() {
	if r.closed.Load() {
		return
	}
	if err := r.replayPending(r.runCtx()); err != nil {
		logger.Error("replay after reconnect failed", "error", err)
	}
}

func (r *Relay) runCtx() context.Context {
	if r.baseContext != nil {
		return r.baseContext
	}
	return context.Background()
}

// Handle dispatches one typed event. Capture signals drive the session state
// machine, transcriptions are journaled and published, agent responses are
// correlated back to their session.
func (r *Relay) Handle(event events.Event) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}

	switch t := event.(type) {
	case events.RecordingStarted:
		return r.ReportRecordingStarted(t.SessionID())
	case events.SpeechEnded:
		return r.ReportSpeechEnd(t.SessionID())
	case events.PlaybackCompleted:
		return r.ReportPlaybackComplete(t.SessionID())
	case events.Transcription:
		return r.submitTranscription(t)
	case events.AgentResponse:
		return r.routeResponse(t)
	default:
		return fmt.Errorf("no handler for event kind %q", event.Kind())
	}
}

// publish journals the event and hands it to the publisher. The journal
// append is durable before the first transport attempt is even scheduled;
// a persistence failure means no delivery attempt follows.
func (r *Relay) publish(event events.Event) (string, error) {
	payload, err := events.EncodeJSON(event)
	if err != nil {
		return "", err
	}

	if err := r.publisher.reserve(); err != nil {
		return "", err
	}

	record := journal.Record{
		ID:         event.ID(),
		SessionID:  event.SessionID(),
		RoutingKey: events.RoutingKeyFor(event.Kind()),
		Payload:    payload,
		AppendedAt: time.Now().UTC(),
	}
	if err := r.store.Append(record); err != nil {
		r.publisher.release()
		return "", &PersistenceError{Err: err}
	}

	r.stats.published()
	r.publisher.enqueue(record, 0)
	return record.ID, nil
}

// deliveryConfirmed is the publisher's success callback; the entry stops
// counting against the owning session's outstanding work.
func (r *Relay) deliveryConfirmed(record journal.Record) {
	if live, ok := r.registry.lookup(record.SessionID); ok {
		live.resolvePending(record.ID)
	}
}

// deliveryExhausted is the publisher's terminal-failure callback. The owning
// session, if still live, moves to Error; the failure is reported once.
func (r *Relay) deliveryExhausted(record journal.Record) {
	if live, ok := r.registry.lookup(record.SessionID); ok {
		live.resolvePending(record.ID)
		_, _ = live.machine.apply(triggerFailure) // Rejection already logged
	}
	if onFailed := r.runOptions.onDeliveryFailed; onFailed != nil {
		onFailed(record.SessionID, record.ID)
	}
}

// sessionExpired is the registry sweep callback. The machine is driven to
// Closed (emitting the state change) and a session.closed event is published
// so the agent layer can drop its context. In-flight retries for the
// session's earlier events are deliberately left running.
func (r *Relay) sessionExpired(live *session) {
	_, _ = live.machine.apply(triggerClose)
	r.stats.sessionClosed()

	if _, err := r.publish(events.NewSessionClosed(live.id, "expired")); err != nil {
		logger.Error("failed to publish session close", "session_id", live.id, "error", err)
	}
	r.publisher.releaseSession(live.id)
}

// Stats returns a snapshot of relay counters.
func (r *Relay) Stats() Stats {
	return r.stats.snapshot()
}

// Sessions returns snapshots of all live sessions.
func (r *Relay) Sessions() []Session {
	return r.registry.snapshots()
}

// Close stops the sweep, the publisher, and the transport. Journaled entries
// survive in the store for replay on the next run.
func (r *Relay) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)

		r.registry.close()
		for _, live := range r.registry.snapshots() {
			if found, ok := r.registry.lookup(live.ID); ok {
				found.machine.close()
				r.registry.remove(live.ID)
			}
		}

		r.publisher.close()

		if err := r.transport.Close(); err != nil {
			logger.Error("failed to close bus transport", "error", err)
		}
		if err := r.store.Close(); err != nil {
			logger.Error("failed to close journal store", "error", err)
		}
	})
}
