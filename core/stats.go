package relay

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
)

// Stats is a point-in-time snapshot of relay counters.
type Stats struct {
	EventsPublished  uint64
	EventsDelivered  uint64
	EventsExhausted  uint64
	EventsReplayed   uint64
	ResponsesRouted  uint64
	ResponsesDropped uint64
	SessionsCreated  uint64
	SessionsClosed   uint64
}

type relayStats struct {
	eventsPublished  atomic.Uint64
	eventsDelivered  atomic.Uint64
	eventsExhausted  atomic.Uint64
	eventsReplayed   atomic.Uint64
	responsesRouted  atomic.Uint64
	responsesDropped atomic.Uint64
	sessionsCreated  atomic.Uint64
	sessionsClosed   atomic.Uint64

	publishedCounter metric.Int64Counter
	deliveredCounter metric.Int64Counter
	exhaustedCounter metric.Int64Counter
	replayedCounter  metric.Int64Counter
	routedCounter    metric.Int64Counter
	droppedCounter   metric.Int64Counter
	createdCounter   metric.Int64Counter
	closedCounter    metric.Int64Counter
}

func newRelayStats() *relayStats {
	s := &relayStats{}
	s.publishedCounter, _ = meter.Int64Counter("relay.events.published")
	s.deliveredCounter, _ = meter.Int64Counter("relay.events.delivered")
	s.exhaustedCounter, _ = meter.Int64Counter("relay.events.exhausted")
	s.replayedCounter, _ = meter.Int64Counter("relay.events.replayed")
	s.routedCounter, _ = meter.Int64Counter("relay.responses.routed")
	s.droppedCounter, _ = meter.Int64Counter("relay.responses.dropped")
	s.createdCounter, _ = meter.Int64Counter("relay.sessions.created")
	s.closedCounter, _ = meter.Int64Counter("relay.sessions.closed")
	return s
}

func (s *relayStats) published() {
	s.eventsPublished.Add(1)
	s.publishedCounter.Add(context.Background(), 1)
}

func (s *relayStats) delivered() {
	s.eventsDelivered.Add(1)
	s.deliveredCounter.Add(context.Background(), 1)
}

func (s *relayStats) exhausted() {
	s.eventsExhausted.Add(1)
	s.exhaustedCounter.Add(context.Background(), 1)
}

func (s *relayStats) replayed() {
	s.eventsReplayed.Add(1)
	s.replayedCounter.Add(context.Background(), 1)
}

func (s *relayStats) routed() {
	s.responsesRouted.Add(1)
	s.routedCounter.Add(context.Background(), 1)
}

func (s *relayStats) dropped() {
	s.responsesDropped.Add(1)
	s.droppedCounter.Add(context.Background(), 1)
}

func (s *relayStats) sessionCreated() {
	s.sessionsCreated.Add(1)
	s.createdCounter.Add(context.Background(), 1)
}

func (s *relayStats) sessionClosed() {
	s.sessionsClosed.Add(1)
	s.closedCounter.Add(context.Background(), 1)
}

func (s *relayStats) snapshot() Stats {
	return Stats{
		EventsPublished:  s.eventsPublished.Load(),
		EventsDelivered:  s.eventsDelivered.Load(),
		EventsExhausted:  s.eventsExhausted.Load(),
		EventsReplayed:   s.eventsReplayed.Load(),
		ResponsesRouted:  s.responsesRouted.Load(),
		ResponsesDropped: s.responsesDropped.Load(),
		SessionsCreated:  s.sessionsCreated.Load(),
		SessionsClosed:   s.sessionsClosed.Load(),
	}
}
