package events

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	// KindRecordingStarted identifies the capture recording-started signal.
	KindRecordingStarted Kind = "capture.recording_started"
	// KindSpeechEnded identifies the capture speech-ended signal.
	KindSpeechEnded Kind = "capture.speech_ended"
	// KindPlaybackCompleted identifies the capture playback-completed signal.
	KindPlaybackCompleted Kind = "capture.playback_completed"
	// KindTranscription identifies the terminal user transcription.
	KindTranscription Kind = "user_input.transcription"
	// KindAgentResponse identifies the agent reply addressed to TTS playback.
	KindAgentResponse Kind = "agent_response.tts"
	// KindSessionClosed identifies session teardown.
	KindSessionClosed Kind = "session.closed"
)

// Kinds returns the closed set of event kinds known to the relay.
func Kinds() []Kind {
	return []Kind{
		KindRecordingStarted,
		KindSpeechEnded,
		KindPlaybackCompleted,
		KindTranscription,
		KindAgentResponse,
		KindSessionClosed,
	}
}

// KnownKind reports whether kind is part of the closed enumeration.
func KnownKind(kind Kind) bool {
	switch kind {
	case KindRecordingStarted, KindSpeechEnded, KindPlaybackCompleted,
		KindTranscription, KindAgentResponse, KindSessionClosed:
		return true
	}
	return false
}

type Event interface {
	Kind() Kind
	ID() string
	SessionID() string
	OccurredAt() time.Time
}

type Base struct {
	kind       Kind
	id         string
	sessionID  string
	occurredAt time.Time
}

func NewBase(kind Kind, sessionID string) Base {
	return Base{
		kind:       kind,
		id:         uuid.NewString(),
		sessionID:  sessionID,
		occurredAt: time.Now(),
	}
}

type RebaseOption func(*Base)

// WithID overrides the generated event id; used when decoding wire envelopes
// so replayed events keep their original identity.
func WithID(id string) RebaseOption {
	return func(b *Base) {
		b.id = id
	}
}

// WithOccurredAt overrides the event timestamp; used when decoding wire
// envelopes.
func WithOccurredAt(t time.Time) RebaseOption {
	return func(b *Base) {
		b.occurredAt = t
	}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) ID() string {
	return b.id
}

func (b Base) SessionID() string {
	return b.sessionID
}

func (b Base) OccurredAt() time.Time {
	return b.occurredAt
}
