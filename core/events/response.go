package events

// AgentResponsePayload is the wire payload for agent_response.tts. Voice is
// an optional provider voice hint passed through to the playback surface.
type AgentResponsePayload struct {
	Text  string `json:"text"`
	Voice string `json:"tts_voice,omitempty"`
}

// AgentResponse is the inbound agent reply correlated back to the session
// that produced the prompt.
type AgentResponse struct {
	Base
	correlationID string
	payload       AgentResponsePayload
}

func (t AgentResponse) String() string { return t.payload.Text }

// Text returns the reply text to synthesize.
func (t AgentResponse) Text() string { return t.payload.Text }

// CorrelationID returns the id of the outbound event this reply answers.
func (t AgentResponse) CorrelationID() string { return t.correlationID }

// Payload returns the typed wire payload.
func (t AgentResponse) Payload() AgentResponsePayload { return t.payload }

// NewAgentResponse creates an inbound agent reply event.
func NewAgentResponse(sessionID, correlationID string, payload AgentResponsePayload, opts ...RebaseOption) AgentResponse {
	base := NewBase(KindAgentResponse, sessionID)
	for _, opt := range opts {
		opt(&base)
	}

	return AgentResponse{Base: base, correlationID: correlationID, payload: payload}
}
