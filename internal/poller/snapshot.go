package poller

import (
	"sync/atomic"
	"time"
)

// Snapshot is one complete, immutable view of fleet health. Readers must not
// mutate it; the engine replaces the whole value on every cycle.
type Snapshot struct {
	Timestamp time.Time               `json:"timestamp"`
	Servers   map[string]ServerStatus `json:"servers"`
}

// SnapshotStore publishes snapshots for concurrent readers. Swaps are atomic
// so a reader always sees a fully consistent cycle, never a torn one.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
}

// NewSnapshotStore starts with an empty snapshot so readers before the first
// cycle see a valid, if vacant, view.
func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{}
	s.current.Store(&Snapshot{
		Timestamp: time.Now().UTC(),
		Servers:   map[string]ServerStatus{},
	})
	return s
}

// Current returns the latest published snapshot.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// Publish replaces the current snapshot.
func (s *SnapshotStore) Publish(snap *Snapshot) {
	s.current.Store(snap)
}
