package journal

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps the journal in process memory. It honors the same
// ordering and status contract as FileStore but survives nothing; meant for
// tests and explicitly ephemeral runs.
type MemoryStore struct {
	mu    sync.Mutex
	index map[string]*Record
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: map[string]*Record{}}
}

func (s *MemoryStore) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[record.ID]; exists {
		return fmt.Errorf("journal entry %s already appended", record.ID)
	}

	record.Status = StatusPending
	if record.AppendedAt.IsZero() {
		record.AppendedAt = time.Now().UTC()
	}

	stored := record
	s.index[record.ID] = &stored
	s.order = append(s.order, record.ID)
	return nil
}

func (s *MemoryStore) MarkDelivered(id string) error {
	deliveredAt := time.Now().UTC()
	return s.mark(id, StatusDelivered, 0, nil, &deliveredAt)
}

func (s *MemoryStore) MarkFailed(id string, attempt int, nextRetryAt time.Time) error {
	return s.mark(id, StatusFailed, attempt, &nextRetryAt, nil)
}

func (s *MemoryStore) MarkExhausted(id string, attempt int) error {
	return s.mark(id, StatusExhausted, attempt, nil, nil)
}

func (s *MemoryStore) mark(id string, status Status, attempt int, nextRetryAt, deliveredAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	if !advance(record.Status, status) {
		return nil
	}

	record.Status = status
	if attempt > record.AttemptCount {
		record.AttemptCount = attempt
	}
	record.NextRetryAt = nextRetryAt
	if deliveredAt != nil {
		record.DeliveredAt = deliveredAt
	}
	return nil
}

func (s *MemoryStore) Requeue(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	if record.Status != StatusExhausted {
		return nil
	}

	record.Status = StatusPending
	record.AttemptCount = 0
	record.NextRetryAt = nil
	return nil
}

func (s *MemoryStore) LoadPending() ([]Record, error) {
	return s.load(func(status Status) bool {
		return status == StatusPending || status == StatusFailed
	})
}

func (s *MemoryStore) LoadExhausted() ([]Record, error) {
	return s.load(func(status Status) bool {
		return status == StatusExhausted
	})
}

func (s *MemoryStore) load(keep func(Status) bool) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []Record
	for _, id := range s.order {
		if record := s.index[id]; keep(record.Status) {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
