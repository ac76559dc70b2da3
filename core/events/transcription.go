package events

// TranscriptionPayload is the wire payload for user_input.transcription.
type TranscriptionPayload struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Device string `json:"device,omitempty"`
}

// Transcription carries the terminal transcript of one utterance. It is the
// outbound event journaled before any delivery attempt.
type Transcription struct {
	Base
	payload TranscriptionPayload
}

func (t Transcription) String() string { return t.payload.Text }

// Text returns the transcript text.
func (t Transcription) Text() string { return t.payload.Text }

// Payload returns the typed wire payload.
func (t Transcription) Payload() TranscriptionPayload { return t.payload }

// NewTranscription creates a terminal transcription event.
func NewTranscription(sessionID string, payload TranscriptionPayload, opts ...RebaseOption) Transcription {
	base := NewBase(KindTranscription, sessionID)
	for _, opt := range opts {
		opt(&base)
	}

	return Transcription{Base: base, payload: payload}
}
