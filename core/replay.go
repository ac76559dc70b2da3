package relay

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/koscakluka/relay-core/core/journal"
)

// replayPending resubmits journaled entries that never reached delivered,
// preserving original append order. Safe to run repeatedly against an
// unchanged journal: entries already marked delivered are skipped, and
// downstream consumers are expected to dedupe per event id (at-least-once,
// not exactly-once).
func (r *Relay) replayPending(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "relay.replay_pending")
	defer span.End()

	pending, err := r.store.LoadPending()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load pending journal entries: %w", err)
	}
	span.SetAttributes(attribute.Int("relay.pending_entries", len(pending)))

	if len(pending) == 0 {
		return nil
	}

	logger.InfoContext(ctx, "replaying undelivered journal entries", "count", len(pending))
	sessions := map[string]struct{}{}
	for _, record := range pending {
		r.publisher.reserveForReplay()
		r.publisher.enqueue(record, record.AttemptCount)
		r.stats.replayed()
		sessions[record.SessionID] = struct{}{}
	}
	r.releaseDeadSessionQueues(sessions)
	return nil
}

// releaseDeadSessionQueues lets the publisher drop queues that replay created
// for sessions no longer live; their entries still drain first.
func (r *Relay) releaseDeadSessionQueues(sessions map[string]struct{}) {
	for sessionID := range sessions {
		if _, ok := r.registry.lookup(sessionID); !ok {
			r.publisher.releaseSession(sessionID)
		}
	}
}

// ReplayExhausted requeues entries that previously failed every attempt and
// feeds them back through the publisher with a fresh attempt budget. This is
// the operator-triggered path; nothing calls it automatically.
func (r *Relay) ReplayExhausted(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "relay.replay_exhausted")
	defer span.End()

	if r.closed.Load() {
		return 0, ErrRelayClosed
	}

	exhausted, err := r.store.LoadExhausted()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to load exhausted journal entries: %w", err)
	}

	requeued := 0
	sessions := map[string]struct{}{}
	for _, record := range exhausted {
		if err := r.store.Requeue(record.ID); err != nil {
			span.RecordError(err)
			continue
		}

		record.Status = journal.StatusPending
		record.AttemptCount = 0
		r.publisher.reserveForReplay()
		r.publisher.enqueue(record, 0)
		r.stats.replayed()
		sessions[record.SessionID] = struct{}{}
		requeued++
	}
	r.releaseDeadSessionQueues(sessions)

	logger.InfoContext(ctx, "requeued exhausted journal entries", "count", requeued)
	return requeued, nil
}
