package events

import (
	"strings"
	"testing"
	"time"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "recording started", event: NewRecordingStarted("s-1"), expected: KindRecordingStarted},
		{name: "speech ended", event: NewSpeechEnded("s-1"), expected: KindSpeechEnded},
		{name: "playback completed", event: NewPlaybackCompleted("s-1"), expected: KindPlaybackCompleted},
		{name: "transcription", event: NewTranscription("s-1", TranscriptionPayload{Text: "hello"}), expected: KindTranscription},
		{name: "agent response", event: NewAgentResponse("s-1", "c-1", AgentResponsePayload{Text: "hi"}), expected: KindAgentResponse},
		{name: "session closed", event: NewSessionClosed("s-1", "expired"), expected: KindSessionClosed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if got := testCase.event.SessionID(); got != "s-1" {
				t.Fatalf("expected session id s-1, got %q", got)
			}
			if testCase.event.ID() == "" {
				t.Fatalf("expected a generated event id")
			}
		})
	}
}

func TestKindsMatchesKnownKind(t *testing.T) {
	for _, kind := range Kinds() {
		if !KnownKind(kind) {
			t.Fatalf("expected kind %q to be known", kind)
		}
	}

	if KnownKind(Kind("free.form")) {
		t.Fatalf("expected free-form kind to be rejected")
	}
}

func TestEncodeDecodeRoundTripsTranscription(t *testing.T) {
	event := NewTranscription("s-1", TranscriptionPayload{Text: "turn on the lights", Source: "whisper", Device: "microphone"})

	data, err := EncodeJSON(event)
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}

	decoded, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	transcription, ok := decoded.(Transcription)
	if !ok {
		t.Fatalf("expected Transcription, got %T", decoded)
	}
	if transcription.ID() != event.ID() {
		t.Fatalf("expected event id %q to survive the round trip, got %q", event.ID(), transcription.ID())
	}
	if transcription.Text() != "turn on the lights" {
		t.Fatalf("expected transcript to survive the round trip, got %q", transcription.Text())
	}
	if transcription.Payload().Device != "microphone" {
		t.Fatalf("expected device to survive the round trip, got %q", transcription.Payload().Device)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"event_id":"e-1","session_id":"s-1","event_type":"free.form","payload":{}}`))
	if err == nil {
		t.Fatalf("expected unknown kind to be rejected at the boundary")
	}
	if !strings.Contains(err.Error(), "unknown event kind") {
		t.Fatalf("expected unknown-kind error, got %v", err)
	}
}

func TestDecodeRejectsMissingSessionID(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"event_id":"e-1","event_type":"capture.speech_ended"}`))
	if err == nil {
		t.Fatalf("expected missing session id to be rejected")
	}
}

func TestDecodeConvertsLegacyEpochTimestamp(t *testing.T) {
	raw := `{"event_id":"e-1","session_id":"s-1","event_type":"user_input.transcription","timestamp":1735689600.5,"payload":{"text":"hello"}}`

	decoded, err := DecodeJSON([]byte(raw))
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	expected := time.Unix(1735689600, int64(500*time.Millisecond)).UTC()
	if got := decoded.OccurredAt(); !got.Equal(expected) {
		t.Fatalf("expected legacy timestamp to convert to %v, got %v", expected, got)
	}
}

func TestEncodeNeverEmitsLegacyTimestamp(t *testing.T) {
	data, err := EncodeJSON(NewSpeechEnded("s-1"))
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}

	if strings.Contains(string(data), `"timestamp"`) {
		t.Fatalf("expected canonical envelope without legacy timestamp, got %s", data)
	}
	if !strings.Contains(string(data), `"occurred_at"`) {
		t.Fatalf("expected canonical occurred_at field, got %s", data)
	}
}

func TestSchemaForCoversClosedKindSet(t *testing.T) {
	for _, kind := range Kinds() {
		if _, err := SchemaFor(kind); err != nil {
			t.Fatalf("expected schema for %q, got %v", kind, err)
		}
	}

	if _, err := SchemaFor(Kind("free.form")); err == nil {
		t.Fatalf("expected schema reflection to reject unknown kinds")
	}
}
