package events

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Routing keys follow the topic layout of the upstream agent bridge. Outbound
// prompts and session control share the agent namespace; replies come back on
// any producer's tts_response key.
const (
	RoutingKeyPrompt   = "thread.agent.prompt"
	RoutingKeyControl  = "thread.agent.control"
	RoutingKeyResponse = "thread.relay.tts_response"

	// ResponsePattern is the subscription pattern for inbound replies.
	ResponsePattern = "thread.*.tts_response"
)

// RoutingKeyFor returns the bus routing key for an outbound event kind.
func RoutingKeyFor(kind Kind) string {
	switch kind {
	case KindSessionClosed:
		return RoutingKeyControl
	case KindAgentResponse:
		return RoutingKeyResponse
	default:
		return RoutingKeyPrompt
	}
}

// Envelope is the canonical wire form shared by the bus and the journal.
//
// OccurredAt is RFC 3339; Timestamp is the legacy float-seconds epoch field
// still emitted by older producers. It is honored on decode when OccurredAt
// is absent and never re-emitted.
type Envelope struct {
	EventID       string          `json:"event_id"`
	SessionID     string          `json:"session_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	EventType     Kind            `json:"event_type"`
	OccurredAt    *time.Time      `json:"occurred_at,omitempty"`
	Timestamp     *float64        `json:"timestamp,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps an event into its wire envelope.
func Encode(event Event) (Envelope, error) {
	var (
		payload       any
		correlationID string
	)
	switch t := event.(type) {
	case Transcription:
		payload = t.Payload()
		correlationID = t.ID()
	case AgentResponse:
		payload = t.Payload()
		correlationID = t.CorrelationID()
	case SessionClosed:
		payload = t.Payload()
	case RecordingStarted, SpeechEnded, PlaybackCompleted:
		// Signals have no payload.
	default:
		return Envelope{}, fmt.Errorf("cannot encode unknown event type %T", event)
	}

	envelope := Envelope{
		EventID:       event.ID(),
		SessionID:     event.SessionID(),
		CorrelationID: correlationID,
		EventType:     event.Kind(),
	}
	occurredAt := event.OccurredAt().UTC()
	envelope.OccurredAt = &occurredAt

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", event.Kind(), err)
		}
		envelope.Payload = raw
	}

	return envelope, nil
}

// EncodeJSON encodes an event into canonical envelope JSON.
func EncodeJSON(event Event) ([]byte, error) {
	envelope, err := Encode(event)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Decode validates an envelope against the closed kind set and returns the
// typed event. Unknown kinds and malformed payloads are boundary errors, not
// passthroughs.
func Decode(envelope Envelope) (Event, error) {
	if !KnownKind(envelope.EventType) {
		return nil, fmt.Errorf("unknown event kind %q", envelope.EventType)
	}
	if envelope.SessionID == "" {
		return nil, fmt.Errorf("envelope for %s is missing session_id", envelope.EventType)
	}

	opts := []RebaseOption{WithOccurredAt(envelope.occurredAt())}
	if envelope.EventID != "" {
		opts = append(opts, WithID(envelope.EventID))
	}

	switch envelope.EventType {
	case KindRecordingStarted:
		return NewRecordingStarted(envelope.SessionID, opts...), nil
	case KindSpeechEnded:
		return NewSpeechEnded(envelope.SessionID, opts...), nil
	case KindPlaybackCompleted:
		return NewPlaybackCompleted(envelope.SessionID, opts...), nil
	case KindTranscription:
		var payload TranscriptionPayload
		if err := decodePayload(envelope, &payload); err != nil {
			return nil, err
		}
		return NewTranscription(envelope.SessionID, payload, opts...), nil
	case KindAgentResponse:
		var payload AgentResponsePayload
		if err := decodePayload(envelope, &payload); err != nil {
			return nil, err
		}
		return NewAgentResponse(envelope.SessionID, envelope.CorrelationID, payload, opts...), nil
	case KindSessionClosed:
		var payload SessionClosedPayload
		if err := decodePayload(envelope, &payload); err != nil {
			return nil, err
		}
		return NewSessionClosed(envelope.SessionID, payload.Reason, opts...), nil
	}

	return nil, fmt.Errorf("unknown event kind %q", envelope.EventType)
}

// DecodeJSON decodes envelope JSON into a typed event.
func DecodeJSON(data []byte) (Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return Decode(envelope)
}

func decodePayload(envelope Envelope, into any) error {
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("envelope for %s is missing payload", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, into); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", envelope.EventType, err)
	}
	return nil
}

// occurredAt resolves the canonical event time, converting the legacy epoch
// field at the boundary when the canonical one is absent.
func (e Envelope) occurredAt() time.Time {
	if e.OccurredAt != nil {
		return *e.OccurredAt
	}
	if e.Timestamp != nil {
		seconds, fraction := math.Modf(*e.Timestamp)
		return time.Unix(int64(seconds), int64(fraction*float64(time.Second))).UTC()
	}
	return time.Now().UTC()
}
