package gate

import (
	"sync"
	"time"
)

// Store keeps the last successful run start per task.
type Store interface {
	Load(taskID string) (time.Time, bool)
	Save(taskID string, t time.Time)
	Delete(taskID string)
	Clear()
}

// MemoryStore is an ephemeral, thread-safe Store backed by sync.Map. Keys
// are independent and written only after a leaf completes, which is the
// access pattern sync.Map is built for.
type MemoryStore struct {
	records sync.Map // Key: task ID, Value: time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the record for taskID.
func (s *MemoryStore) Load(taskID string) (time.Time, bool) {
	v, ok := s.records.Load(taskID)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// Save replaces the record for taskID.
func (s *MemoryStore) Save(taskID string, t time.Time) {
	s.records.Store(taskID, t)
}

// Delete forgets the record for taskID.
func (s *MemoryStore) Delete(taskID string) {
	s.records.Delete(taskID)
}

// Clear forgets every record.
func (s *MemoryStore) Clear() {
	s.records.Range(func(k, _ any) bool {
		s.records.Delete(k)
		return true
	})
}
