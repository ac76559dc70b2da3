package relay

import (
	"fmt"

	"github.com/koscakluka/relay-core/core/events"
)

// StartSession registers a new voice interaction session for a capture
// surface, starting in Idle.
func (r *Relay) StartSession(clientType ClientType) (Session, error) {
	if r.closed.Load() {
		return Session{}, ErrRelayClosed
	}
	if !KnownClientType(clientType) {
		return Session{}, fmt.Errorf("unknown client type %q", clientType)
	}

	created := r.registry.create(clientType, func(sessionID string) *stateMachine {
		return newStateMachine(sessionID, r.responseTimeout, r.emitStateChanged, r.emitTimeout)
	})
	r.stats.sessionCreated()

	logger.Info("session started", "session_id", created.id, "client_type", string(clientType))
	r.emitStateChanged(created.id, StateIdle)
	return created.snapshot(), nil
}

// ReportRecordingStarted signals that the capture surface began recording.
func (r *Relay) ReportRecordingStarted(sessionID string) error {
	return r.signal(sessionID, triggerStartRecording)
}

// ReportSpeechEnd signals the end of speech for the current utterance.
func (r *Relay) ReportSpeechEnd(sessionID string) error {
	return r.signal(sessionID, triggerSpeechEnded)
}

// ReportPlaybackComplete signals that the spoken reply finished playing.
func (r *Relay) ReportPlaybackComplete(sessionID string) error {
	return r.signal(sessionID, triggerPlaybackCompleted)
}

// AcknowledgeError returns an errored session to Idle.
func (r *Relay) AcknowledgeError(sessionID string) error {
	return r.signal(sessionID, triggerRecovered)
}

func (r *Relay) signal(sessionID string, cause trigger) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}

	live, ok := r.registry.lookup(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	live.touch()
	_, err := live.machine.apply(cause)
	return err
}

// SubmitTranscription journals and publishes the final transcript of the
// session's current utterance, then moves the session to AwaitingResponse.
// Returns the journal entry id.
func (r *Relay) SubmitTranscription(sessionID string, payload events.TranscriptionPayload) (string, error) {
	return r.submitTranscriptionEvent(events.NewTranscription(sessionID, payload))
}

func (r *Relay) submitTranscription(event events.Transcription) error {
	_, err := r.submitTranscriptionEvent(event)
	return err
}

func (r *Relay) submitTranscriptionEvent(event events.Transcription) (string, error) {
	if r.closed.Load() {
		return "", ErrRelayClosed
	}

	live, ok := r.registry.lookup(event.SessionID())
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, event.SessionID())
	}
	live.touch()

	entryID, err := r.publish(event)
	if err != nil {
		_, _ = live.machine.apply(triggerFailure) // Rejection already logged
		return "", err
	}
	live.trackPending(entryID)

	// Journaled durably; delivery now runs in the background and only its
	// terminal outcome surfaces.
	_, _ = live.machine.apply(triggerTranscriptionJournaled)
	return entryID, nil
}

// CloseSession tears a session down explicitly: the response timer is
// cancelled, routing for the id stops, and a session.closed event is
// published. Retries for already-journaled events keep running.
func (r *Relay) CloseSession(sessionID, reason string) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}

	live, ok := r.registry.lookup(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	r.registry.remove(sessionID)
	_, _ = live.machine.apply(triggerClose)
	r.stats.sessionClosed()

	// The closure event is the session's final enqueue; the publisher drops
	// the session's queue once it drains.
	defer r.publisher.releaseSession(sessionID)
	if _, err := r.publish(events.NewSessionClosed(sessionID, reason)); err != nil {
		return err
	}
	return nil
}

// Lookup returns a snapshot of a live session.
func (r *Relay) Lookup(sessionID string) (Session, error) {
	live, ok := r.registry.lookup(sessionID)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return live.snapshot(), nil
}

func (r *Relay) emitStateChanged(sessionID string, state State) {
	if onChanged := r.runOptions.onStateChanged; onChanged != nil {
		onChanged(sessionID, state)
	}
}

func (r *Relay) emitTimeout(sessionID string) {
	if onTimeout := r.runOptions.onTimeout; onTimeout != nil {
		onTimeout(sessionID)
	}
}
