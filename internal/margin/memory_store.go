package margin

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound indicates no margin record exists for the booking reference.
var ErrNotFound = errors.New("margin record not found")

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore constructs an in-memory margin store for tests and
// database-less development runs.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]Record)}
}

func (s *memoryStore) Insert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.BookingRef] = record
	return nil
}

func (s *memoryStore) ByBookingRef(_ context.Context, bookingRef string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[bookingRef]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}
