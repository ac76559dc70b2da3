package bus

import "strings"

// MatchTopic reports whether a dot-separated routing key matches an
// AMQP-style topic pattern: "*" matches exactly one word, "#" matches zero or
// more words.
func MatchTopic(pattern, routingKey string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, words []string) bool {
	if len(pattern) == 0 {
		return len(words) == 0
	}

	switch pattern[0] {
	case "#":
		if matchWords(pattern[1:], words) {
			return true
		}
		return len(words) > 0 && matchWords(pattern, words[1:])
	case "*":
		return len(words) > 0 && matchWords(pattern[1:], words[1:])
	default:
		return len(words) > 0 && pattern[0] == words[0] && matchWords(pattern[1:], words[1:])
	}
}
