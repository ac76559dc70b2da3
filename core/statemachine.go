package relay

import (
	"sync"
	"time"
)

// State is the lifecycle position of one voice interaction session.
type State string

const (
	StateIdle             State = "idle"
	StateListening        State = "listening"
	StateTranscribing     State = "transcribing"
	StateAwaitingResponse State = "awaiting_response"
	StateSpeaking         State = "speaking"
	StateError            State = "error"
	StateClosed           State = "closed"
)

// Terminal reports whether no further transitions leave this state.
func (s State) Terminal() bool { return s == StateClosed }

type trigger string

const (
	triggerStartRecording         trigger = "start_recording"
	triggerSpeechEnded            trigger = "speech_ended"
	triggerTranscriptionJournaled trigger = "transcription_journaled"
	triggerResponseReceived       trigger = "response_received"
	triggerPlaybackCompleted      trigger = "playback_completed"
	triggerFailure                trigger = "failure"
	triggerRecovered              trigger = "recovered"
	triggerClose                  trigger = "close"
)

// nextState resolves one edge of the transition table. The bool result is
// false when no edge matches; callers must leave state untouched then.
func nextState(from State, cause trigger) (State, bool) {
	switch cause {
	case triggerClose:
		if from == StateClosed {
			return from, false
		}
		return StateClosed, true
	case triggerFailure:
		if from == StateClosed || from == StateError {
			return from, false
		}
		return StateError, true
	case triggerStartRecording:
		if from == StateIdle {
			return StateListening, true
		}
	case triggerSpeechEnded:
		if from == StateListening {
			return StateTranscribing, true
		}
	case triggerTranscriptionJournaled:
		if from == StateTranscribing {
			return StateAwaitingResponse, true
		}
	case triggerResponseReceived:
		if from == StateAwaitingResponse {
			return StateSpeaking, true
		}
	case triggerPlaybackCompleted:
		if from == StateSpeaking {
			return StateIdle, true
		}
	case triggerRecovered:
		if from == StateError {
			return StateIdle, true
		}
	}
	return from, false
}

// stateMachine drives one session's lifecycle. Each session owns exactly one
// machine; it is destroyed with the session.
type stateMachine struct {
	mu        sync.Mutex
	sessionID string
	state     State

	responseTimeout time.Duration
	timer           *time.Timer
	timerGeneration uint64

	onStateChanged func(sessionID string, state State)
	onTimeout      func(sessionID string)
}

func newStateMachine(sessionID string, responseTimeout time.Duration, onStateChanged func(string, State), onTimeout func(string)) *stateMachine {
	return &stateMachine{
		sessionID:       sessionID,
		state:           StateIdle,
		responseTimeout: responseTimeout,
		onStateChanged:  onStateChanged,
		onTimeout:       onTimeout,
	}
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// apply attempts one transition. Unmatched triggers are rejected without
// mutating state.
func (m *stateMachine) apply(cause trigger) (State, error) {
	m.mu.Lock()

	to, ok := nextState(m.state, cause)
	if !ok {
		from := m.state
		m.mu.Unlock()
		logger.Warn("rejected session transition",
			"session_id", m.sessionID, "state", string(from), "trigger", string(cause))
		return from, &InvalidTransitionError{SessionID: m.sessionID, From: from, Trigger: cause}
	}

	m.state = to
	m.disarmTimerLocked()
	if to == StateAwaitingResponse {
		m.armTimerLocked()
	}
	notify := m.onStateChanged
	m.mu.Unlock()

	if notify != nil {
		notify(m.sessionID, to)
	}
	return to, nil
}

// armTimerLocked schedules the response timeout. The generation counter keeps
// a stale timer from firing after the state moved on.
func (m *stateMachine) armTimerLocked() {
	if m.responseTimeout <= 0 {
		return
	}

	m.timerGeneration++
	generation := m.timerGeneration
	m.timer = time.AfterFunc(m.responseTimeout, func() {
		m.expire(generation)
	})
}

func (m *stateMachine) disarmTimerLocked() {
	m.timerGeneration++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// expire moves the session to Error after a response timeout and emits
// exactly one timeout notification. No automatic re-prompt follows.
func (m *stateMachine) expire(generation uint64) {
	m.mu.Lock()
	if generation != m.timerGeneration || m.state != StateAwaitingResponse {
		m.mu.Unlock()
		return
	}

	m.state = StateError
	m.timer = nil
	notifyState := m.onStateChanged
	notifyTimeout := m.onTimeout
	m.mu.Unlock()

	logger.Warn("session response timed out", "session_id", m.sessionID)
	if notifyState != nil {
		notifyState(m.sessionID, StateError)
	}
	if notifyTimeout != nil {
		notifyTimeout(m.sessionID)
	}
}

// close tears the machine down without notifications, cancelling any armed
// timeout. Used on relay shutdown; session-level teardown goes through apply.
func (m *stateMachine) close() {
	m.mu.Lock()
	m.disarmTimerLocked()
	m.state = StateClosed
	m.mu.Unlock()
}
