// Package diag is the write-only sink for rejected-record diagnostics.
package diag

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Entry is one rejected record, appended for out-of-band follow-up.
type Entry struct {
	Table      string    `json:"table"`
	BatchID    string    `json:"batch_id"`
	Field      string    `json:"field"`
	Constraint string    `json:"constraint"`
	Value      any       `json:"value,omitempty"`
	At         time.Time `json:"at"`
}

// Sink records rejection entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(e Entry)
}

// FileSink appends entries as JSON lines to a log file.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
}

// OpenFileSink opens (or creates) the rejection log for appending.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open rejection log: %w", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Record(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	line, err := json.Marshal(e)
	if err != nil {
		log.Printf("diag: marshal entry: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		log.Printf("diag: append entry: %v", err)
	}
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Nop discards all entries.
type Nop struct{}

func (Nop) Record(Entry) {}
