package relay

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/koscakluka/relay-core/core/events"
)

// handleInbound is the bus subscription entry point. Payloads are validated
// against the closed event enumeration at this boundary; anything else is
// logged and dropped.
func (r *Relay) handleInbound(routingKey string, payload []byte) {
	event, err := events.DecodeJSON(payload)
	if err != nil {
		logger.Warn("dropping undecodable inbound message", "routing_key", routingKey, "error", err)
		r.stats.dropped()
		return
	}

	if err := r.Handle(event); err != nil {
		logger.Warn("dropping inbound event", "routing_key", routingKey, "kind", string(event.Kind()), "error", err)
	}
}

// routeResponse correlates an inbound agent response back to the session and
// capture surface that produced the original input. Fails closed: an unknown
// or expired session id means the response is dropped, never routed to some
// default client.
func (r *Relay) routeResponse(event events.AgentResponse) error {
	_, span := tracer.Start(r.runCtx(), "relay.route_response")
	defer span.End()
	span.SetAttributes(
		attribute.String("relay.session_id", event.SessionID()),
		attribute.String("relay.correlation_id", event.CorrelationID()),
	)

	live, ok := r.registry.lookup(event.SessionID())
	if !ok {
		r.stats.dropped()
		err := &CorrelationError{SessionID: event.SessionID(), Kind: event.Kind()}
		span.RecordError(err)
		logger.Warn("dropping uncorrelated response", "session_id", event.SessionID())
		return err
	}

	live.touch()
	if _, err := live.machine.apply(triggerResponseReceived); err != nil {
		// A late or duplicate response after timeout/teardown; the machine
		// already rejected and logged it without mutating state.
		r.stats.dropped()
		return err
	}

	r.stats.routed()
	if onResponse := r.runOptions.onResponseReady; onResponse != nil {
		onResponse(live.snapshot(), event.Payload())
	}
	return nil
}
