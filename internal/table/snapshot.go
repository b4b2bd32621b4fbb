package table

import "sync/atomic"

// Snapshot publishes the current Table to concurrent readers.
//
// Load never blocks and always returns a complete Table. Store replaces the
// table with a single atomic swap; queries already running against the old
// table are unaffected.
type Snapshot struct {
	current atomic.Pointer[Table]
}

// NewSnapshot creates a Snapshot holding t (or an empty table if t is nil).
func NewSnapshot(t *Table) *Snapshot {
	s := &Snapshot{}
	s.Store(t)
	return s
}

// Load returns the current table.
func (s *Snapshot) Load() *Table {
	if t := s.current.Load(); t != nil {
		return t
	}
	return Empty()
}

// Store publishes t as the current table and returns the previous one.
func (s *Snapshot) Store(t *Table) *Table {
	if t == nil {
		t = Empty()
	}
	return s.current.Swap(t)
}
