package bus

import "testing"

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		pattern    string
		routingKey string
		expected   bool
	}{
		{pattern: "thread.agent.prompt", routingKey: "thread.agent.prompt", expected: true},
		{pattern: "thread.agent.prompt", routingKey: "thread.agent.control", expected: false},
		{pattern: "thread.*.tts_response", routingKey: "thread.relay.tts_response", expected: true},
		{pattern: "thread.*.tts_response", routingKey: "thread.agent.bridge.tts_response", expected: false},
		{pattern: "thread.#", routingKey: "thread.agent.bridge.tts_response", expected: true},
		{pattern: "thread.#", routingKey: "thread", expected: true},
		{pattern: "#", routingKey: "anything.at.all", expected: true},
		{pattern: "*.agent.*", routingKey: "thread.agent.prompt", expected: true},
		{pattern: "*.agent.*", routingKey: "agent.prompt", expected: false},
		{pattern: "thread.#.tts_response", routingKey: "thread.tts_response", expected: true},
		{pattern: "thread.#.tts_response", routingKey: "thread.a.b.tts_response", expected: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.pattern+"/"+testCase.routingKey, func(t *testing.T) {
			if got := MatchTopic(testCase.pattern, testCase.routingKey); got != testCase.expected {
				t.Fatalf("expected MatchTopic(%q, %q) to be %v, got %v", testCase.pattern, testCase.routingKey, testCase.expected, got)
			}
		})
	}
}
