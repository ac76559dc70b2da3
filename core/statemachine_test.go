package relay

import (
	"testing"
	"time"
)

func TestNextStateTable(t *testing.T) {
	cases := []struct {
		from    State
		cause   trigger
		want    State
		allowed bool
	}{
		{StateIdle, triggerStartRecording, StateListening, true},
		{StateListening, triggerSpeechEnded, StateTranscribing, true},
		{StateTranscribing, triggerTranscriptionJournaled, StateAwaitingResponse, true},
		{StateAwaitingResponse, triggerResponseReceived, StateSpeaking, true},
		{StateSpeaking, triggerPlaybackCompleted, StateIdle, true},
		{StateError, triggerRecovered, StateIdle, true},

		{StateIdle, triggerSpeechEnded, StateIdle, false},
		{StateIdle, triggerPlaybackCompleted, StateIdle, false},
		{StateListening, triggerStartRecording, StateListening, false},
		{StateListening, triggerResponseReceived, StateListening, false},
		{StateTranscribing, triggerSpeechEnded, StateTranscribing, false},
		{StateAwaitingResponse, triggerStartRecording, StateAwaitingResponse, false},
		{StateSpeaking, triggerResponseReceived, StateSpeaking, false},
		{StateIdle, triggerRecovered, StateIdle, false},

		{StateIdle, triggerFailure, StateError, true},
		{StateListening, triggerFailure, StateError, true},
		{StateAwaitingResponse, triggerFailure, StateError, true},
		{StateError, triggerFailure, StateError, false},
		{StateClosed, triggerFailure, StateClosed, false},

		{StateIdle, triggerClose, StateClosed, true},
		{StateSpeaking, triggerClose, StateClosed, true},
		{StateError, triggerClose, StateClosed, true},
		{StateClosed, triggerClose, StateClosed, false},
		{StateClosed, triggerStartRecording, StateClosed, false},
	}

	for _, c := range cases {
		got, allowed := nextState(c.from, c.cause)
		if got != c.want || allowed != c.allowed {
			t.Errorf("nextState(%s, %s) = (%s, %v), want (%s, %v)",
				c.from, c.cause, got, allowed, c.want, c.allowed)
		}
	}
}

func TestApplyRejectionLeavesStateUntouched(t *testing.T) {
	machine := newStateMachine("s-1", 0, nil, nil)

	if _, err := machine.apply(triggerResponseReceived); err == nil {
		t.Fatalf("expected a response in %s to be rejected", StateIdle)
	}
	if state := machine.current(); state != StateIdle {
		t.Fatalf("rejected trigger mutated state to %s", state)
	}
}

func TestResponseArrivalDisarmsTimeout(t *testing.T) {
	timeouts := make(chan string, 2)
	machine := newStateMachine("s-1", 30*time.Millisecond, nil, func(sessionID string) {
		timeouts <- sessionID
	})

	steps := []trigger{triggerStartRecording, triggerSpeechEnded, triggerTranscriptionJournaled, triggerResponseReceived}
	for _, step := range steps {
		if _, err := machine.apply(step); err != nil {
			t.Fatalf("failed to apply %s: %v", step, err)
		}
	}

	select {
	case <-timeouts:
		t.Fatalf("timeout fired although the response arrived in time")
	case <-time.After(100 * time.Millisecond):
	}
	if state := machine.current(); state != StateSpeaking {
		t.Fatalf("expected %s, got %s", StateSpeaking, state)
	}
}

func TestCloseDisarmsTimeoutSilently(t *testing.T) {
	timeouts := make(chan string, 2)
	machine := newStateMachine("s-1", 20*time.Millisecond, nil, func(sessionID string) {
		timeouts <- sessionID
	})

	for _, step := range []trigger{triggerStartRecording, triggerSpeechEnded, triggerTranscriptionJournaled} {
		if _, err := machine.apply(step); err != nil {
			t.Fatalf("failed to apply %s: %v", step, err)
		}
	}
	machine.close()

	select {
	case <-timeouts:
		t.Fatalf("timeout fired after close")
	case <-time.After(100 * time.Millisecond):
	}
	if state := machine.current(); state != StateClosed {
		t.Fatalf("expected %s after close, got %s", StateClosed, state)
	}
}

func TestZeroResponseTimeoutNeverExpires(t *testing.T) {
	timeouts := make(chan string, 1)
	machine := newStateMachine("s-1", 0, nil, func(sessionID string) {
		timeouts <- sessionID
	})

	for _, step := range []trigger{triggerStartRecording, triggerSpeechEnded, triggerTranscriptionJournaled} {
		if _, err := machine.apply(step); err != nil {
			t.Fatalf("failed to apply %s: %v", step, err)
		}
	}

	select {
	case <-timeouts:
		t.Fatalf("timeout fired with the response timeout disabled")
	case <-time.After(100 * time.Millisecond):
	}
	if state := machine.current(); state != StateAwaitingResponse {
		t.Fatalf("expected %s, got %s", StateAwaitingResponse, state)
	}
}
