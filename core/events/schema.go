package events

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects the payload JSON schema for an event kind so consumers
// can validate payloads without importing this module.
func SchemaFor(kind Kind) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}

	switch kind {
	case KindTranscription:
		return reflector.Reflect(TranscriptionPayload{}), nil
	case KindAgentResponse:
		return reflector.Reflect(AgentResponsePayload{}), nil
	case KindSessionClosed:
		return reflector.Reflect(SessionClosedPayload{}), nil
	case KindRecordingStarted, KindSpeechEnded, KindPlaybackCompleted:
		// Signals carry no payload.
		return reflector.Reflect(struct{}{}), nil
	}

	return nil, fmt.Errorf("unknown event kind %q", kind)
}
