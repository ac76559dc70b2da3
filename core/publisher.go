package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/koscakluka/relay-core/core/bus"
	"github.com/koscakluka/relay-core/core/journal"
)

type publishTask struct {
	record  journal.Record
	attempt int
}

// publisher drives journaled entries to the bus. Within one session, first
// delivery attempts strictly follow append order; retry waits for an older
// entry never delay a newer entry's first attempt because retries leave the
// session queue and run on their own timers.
type publisher struct {
	store     journal.Store
	transport bus.Publisher

	policy         BackoffPolicy
	maxAttempts    int
	attemptTimeout time.Duration

	pendingBound int64
	outstanding  atomic.Int64

	queuesMu sync.Mutex
	queues   map[string]*sessionQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onDelivered func(record journal.Record)
	onExhausted func(record journal.Record)
	stats       *relayStats
}

func newPublisher(store journal.Store, transport bus.Publisher, policy BackoffPolicy, maxAttempts int, attemptTimeout time.Duration, pendingBound int, stats *relayStats) *publisher {
	ctx, cancel := context.WithCancel(context.Background())
	return &publisher{
		store:          store,
		transport:      transport,
		policy:         policy,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		pendingBound:   int64(pendingBound),
		queues:         map[string]*sessionQueue{},
		ctx:            ctx,
		cancel:         cancel,
		stats:          stats,
	}
}

// reserve claims one slot of the outstanding-entry bound, failing fast when
// the bound is hit. Unbounded retry-queue growth is disallowed.
func (p *publisher) reserve() error {
	if p.outstanding.Add(1) > p.pendingBound {
		p.outstanding.Add(-1)
		return ErrCapacityExceeded
	}
	return nil
}

// reserveForReplay claims a slot without the fail-fast check. Replayed
// entries were journaled before this process started; refusing them would
// strand durable events.
func (p *publisher) reserveForReplay() {
	p.outstanding.Add(1)
}

func (p *publisher) release() {
	p.outstanding.Add(-1)
}

// sessionQueue holds one session's undelivered first attempts. Tasks and the
// released flag are guarded by the publisher's queuesMu; wake is a buffered
// nudge so the worker rechecks after an append or a release.
type sessionQueue struct {
	tasks    []publishTask
	released bool
	wake     chan struct{}
}

func (q *sessionQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// enqueue hands a journaled entry to its session's FIFO queue, starting the
// session worker on first use.
func (p *publisher) enqueue(record journal.Record, attempt int) {
	p.queuesMu.Lock()
	queue, ok := p.queues[record.SessionID]
	if !ok {
		queue = &sessionQueue{wake: make(chan struct{}, 1)}
		p.queues[record.SessionID] = queue
		p.wg.Add(1)
		go p.runSessionQueue(record.SessionID, queue)
	}
	queue.tasks = append(queue.tasks, publishTask{record: record, attempt: attempt})
	p.queuesMu.Unlock()

	queue.signal()
}

// releaseSession marks a session's queue for teardown. The worker drains the
// remaining tasks, then removes the queue and exits, so closed sessions hold
// no publisher state. A later enqueue for the same id starts a fresh queue.
func (p *publisher) releaseSession(sessionID string) {
	p.queuesMu.Lock()
	queue, ok := p.queues[sessionID]
	if ok {
		queue.released = true
	}
	p.queuesMu.Unlock()

	if ok {
		queue.signal()
	}
}

func (p *publisher) runSessionQueue(sessionID string, queue *sessionQueue) {
	defer p.wg.Done()

	for {
		p.queuesMu.Lock()
		if len(queue.tasks) == 0 {
			if queue.released {
				if p.queues[sessionID] == queue {
					delete(p.queues, sessionID)
				}
				p.queuesMu.Unlock()
				return
			}
			p.queuesMu.Unlock()

			select {
			case <-queue.wake:
			case <-p.ctx.Done():
				return
			}
			continue
		}

		task := queue.tasks[0]
		queue.tasks = queue.tasks[1:]
		p.queuesMu.Unlock()

		p.attemptOnce(task)
	}
}

// attemptOnce performs a single transport attempt and records the outcome.
// Failures short of the attempt budget schedule an asynchronous retry;
// exhaustion is terminal and keeps the entry in the journal.
func (p *publisher) attemptOnce(task publishTask) {
	attempt := task.attempt + 1

	ctx, span := tracer.Start(p.ctx, "relay.publish_attempt")
	span.SetAttributes(
		attribute.String("relay.entry_id", task.record.ID),
		attribute.String("relay.session_id", task.record.SessionID),
		attribute.Int("relay.attempt", attempt),
	)
	defer span.End()

	attemptCtx, cancelAttempt := context.WithTimeout(ctx, p.attemptTimeout)
	err := p.transport.Publish(attemptCtx, task.record.RoutingKey, task.record.Payload)
	cancelAttempt()

	if err == nil {
		if markErr := p.store.MarkDelivered(task.record.ID); markErr != nil {
			span.RecordError(markErr)
		}
		p.release()
		p.stats.delivered()
		if p.onDelivered != nil {
			p.onDelivered(task.record)
		}
		return
	}

	// Transient transport failures are not surfaced per attempt; only the
	// final outcome is observable.
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if attempt >= p.maxAttempts {
		logger.Error("delivery attempts exhausted",
			"entry_id", task.record.ID, "session_id", task.record.SessionID, "attempts", attempt)
		if markErr := p.store.MarkExhausted(task.record.ID, attempt); markErr != nil {
			span.RecordError(markErr)
		}
		p.release()
		p.stats.exhausted()
		if p.onExhausted != nil {
			p.onExhausted(task.record)
		}
		return
	}

	delay := p.policy.Delay(attempt)
	nextRetryAt := time.Now().Add(delay).UTC()
	if markErr := p.store.MarkFailed(task.record.ID, attempt, nextRetryAt); markErr != nil {
		span.RecordError(markErr)
	}

	task.attempt = attempt
	p.wg.Add(1)
	go p.retryAfter(task, delay)
}

func (p *publisher) retryAfter(task publishTask, delay time.Duration) {
	defer p.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		p.attemptOnce(task)
	case <-p.ctx.Done():
	}
}

func (p *publisher) close() {
	p.cancel()
	p.wg.Wait()
}
