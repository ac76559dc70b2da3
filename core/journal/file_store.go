package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	opAppend  = "append"
	opMark    = "mark"
	opRequeue = "requeue"
)

// line is one JSONL journal line: either a full appended record or a status
// mark referencing an earlier one.
type line struct {
	Op          string     `json:"op"`
	Record      *Record    `json:"record,omitempty"`
	ID          string     `json:"id,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Attempt     int        `json:"attempt,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// FileStore persists the journal as an append-only JSONL file, fsynced before
// Append returns. Status changes are appended as mark lines and folded into
// an in-memory index on open, so re-reading a journal with duplicate marks is
// harmless.
type FileStore struct {
	mu    sync.Mutex
	file  *os.File
	index map[string]*Record
	order []string
}

func OpenFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	store := &FileStore{file: file, index: map[string]*Record{}}
	if err := store.replayLines(); err != nil {
		_ = file.Close() // Ignored on purpose
		return nil, err
	}

	return store, nil
}

func (s *FileStore) replayLines() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek journal file: %w", err)
	}

	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var parsed line
		if err := json.Unmarshal(raw, &parsed); err != nil {
			// A torn trailing line after a crash is expected; anything the
			// scanner yields before it must parse.
			continue
		}
		s.fold(parsed)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read journal file: %w", err)
	}

	return nil
}

func (s *FileStore) fold(parsed line) {
	switch parsed.Op {
	case opAppend:
		if parsed.Record == nil {
			return
		}
		if _, exists := s.index[parsed.Record.ID]; exists {
			return
		}
		record := *parsed.Record
		s.index[record.ID] = &record
		s.order = append(s.order, record.ID)
	case opMark:
		record, ok := s.index[parsed.ID]
		if !ok || !advance(record.Status, parsed.Status) {
			return
		}
		record.Status = parsed.Status
		if parsed.Attempt > record.AttemptCount {
			record.AttemptCount = parsed.Attempt
		}
		record.NextRetryAt = parsed.NextRetryAt
		if parsed.DeliveredAt != nil {
			record.DeliveredAt = parsed.DeliveredAt
		}
	case opRequeue:
		record, ok := s.index[parsed.ID]
		if !ok || record.Status != StatusExhausted {
			return
		}
		record.Status = StatusPending
		record.AttemptCount = 0
		record.NextRetryAt = nil
	}
}

// writeLine appends one JSONL line and forces it to stable storage before
// returning.
func (s *FileStore) writeLine(parsed line) error {
	data, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("failed to encode journal line: %w", err)
	}

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write journal line: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal file: %w", err)
	}
	return nil
}

func (s *FileStore) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[record.ID]; exists {
		return fmt.Errorf("journal entry %s already appended", record.ID)
	}

	record.Status = StatusPending
	if record.AppendedAt.IsZero() {
		record.AppendedAt = time.Now().UTC()
	}

	if err := s.writeLine(line{Op: opAppend, Record: &record}); err != nil {
		return err
	}

	stored := record
	s.index[record.ID] = &stored
	s.order = append(s.order, record.ID)
	return nil
}

func (s *FileStore) MarkDelivered(id string) error {
	deliveredAt := time.Now().UTC()
	return s.mark(line{Op: opMark, ID: id, Status: StatusDelivered, DeliveredAt: &deliveredAt})
}

func (s *FileStore) MarkFailed(id string, attempt int, nextRetryAt time.Time) error {
	return s.mark(line{Op: opMark, ID: id, Status: StatusFailed, Attempt: attempt, NextRetryAt: &nextRetryAt})
}

func (s *FileStore) MarkExhausted(id string, attempt int) error {
	return s.mark(line{Op: opMark, ID: id, Status: StatusExhausted, Attempt: attempt})
}

func (s *FileStore) mark(parsed line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.index[parsed.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, parsed.ID)
	}
	if !advance(record.Status, parsed.Status) {
		// Idempotent updates: a repeated or stale mark is not an error.
		return nil
	}

	if err := s.writeLine(parsed); err != nil {
		return err
	}
	s.fold(parsed)
	return nil
}

func (s *FileStore) Requeue(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	if record.Status != StatusExhausted {
		return nil
	}

	requeue := line{Op: opRequeue, ID: id}
	if err := s.writeLine(requeue); err != nil {
		return err
	}
	s.fold(requeue)
	return nil
}

func (s *FileStore) LoadPending() ([]Record, error) {
	return s.load(func(status Status) bool {
		return status == StatusPending || status == StatusFailed
	})
}

func (s *FileStore) LoadExhausted() ([]Record, error) {
	return s.load(func(status Status) bool {
		return status == StatusExhausted
	})
}

func (s *FileStore) load(keep func(Status) bool) ([]Record, error) {
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

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
