// Package journal provides the durable write-ahead record of outbound events
// pending bus confirmation. Entries are append-only; delivery outcomes are
// recorded as status marks and entries are never deleted, so exhausted ones
// stay visible for operator-triggered replay.
package journal

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusExhausted Status = "exhausted"
)

// Terminal reports whether no further delivery attempts follow this status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusExhausted
}

var ErrUnknownEntry = errors.New("journal entry not found")

// Record is one journaled outbound event. Payload holds the canonical wire
// envelope so replay resubmits exactly what was first attempted.
type Record struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	RoutingKey   string          `json:"routing_key"`
	Payload      json.RawMessage `json:"payload"`
	Status       Status          `json:"status"`
	AttemptCount int             `json:"attempt_count"`
	AppendedAt   time.Time       `json:"appended_at"`
	NextRetryAt  *time.Time      `json:"next_retry_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
}

// Store is the journal contract. Append must complete durable persistence
// before returning; status marks are idempotent and only ever advance
// pending→delivered or pending→failed→…→exhausted.
type Store interface {
	Append(record Record) error
	MarkDelivered(id string) error
	MarkFailed(id string, attempt int, nextRetryAt time.Time) error
	MarkExhausted(id string, attempt int) error
	// LoadPending returns entries that still owe a delivery attempt, strictly
	// in append order.
	LoadPending() ([]Record, error)
	// LoadExhausted returns entries that failed all attempts, in append order.
	LoadExhausted() ([]Record, error)
	// Requeue resets an exhausted entry to pending with a zero attempt count.
	// Operator-triggered replay only; any other status is left untouched.
	Requeue(id string) error
	Close() error
}

// advance reports whether a status transition is allowed. Repeating the
// current status is allowed so marks stay idempotent.
func advance(from, to Status) bool {
	if from == to {
		return true
	}

	switch from {
	case StatusPending:
		return to == StatusDelivered || to == StatusFailed || to == StatusExhausted
	case StatusFailed:
		return to == StatusDelivered || to == StatusExhausted
	}
	return false
}
