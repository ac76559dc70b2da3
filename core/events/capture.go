package events

// RecordingStarted signals that a capture surface began recording or that
// voice activity was detected.
type RecordingStarted struct{ Base }

func (t RecordingStarted) String() string { return "Recording Started" }

// NewRecordingStarted creates a recording started signal.
func NewRecordingStarted(sessionID string, opts ...RebaseOption) RecordingStarted {
	base := NewBase(KindRecordingStarted, sessionID)
	for _, opt := range opts {
		opt(&base)
	}

	return RecordingStarted{Base: base}
}

// SpeechEnded signals the end of speech activity for the current utterance.
type SpeechEnded struct{ Base }

func (t SpeechEnded) String() string { return "Speech Ended" }

// NewSpeechEnded creates a speech ended signal.
func NewSpeechEnded(sessionID string, opts ...RebaseOption) SpeechEnded {
	base := NewBase(KindSpeechEnded, sessionID)
	for _, opt := range opts {
		opt(&base)
	}

	return SpeechEnded{Base: base}
}

// PlaybackCompleted signals that the capture surface finished playing the
// spoken reply.
type PlaybackCompleted struct{ Base }

func (t PlaybackCompleted) String() string { return "Playback Completed" }

// NewPlaybackCompleted creates a playback completed signal.
func NewPlaybackCompleted(sessionID string, opts ...RebaseOption) PlaybackCompleted {
	base := NewBase(KindPlaybackCompleted, sessionID)
	for _, opt := range opts {
		opt(&base)
	}

	return PlaybackCompleted{Base: base}
}
