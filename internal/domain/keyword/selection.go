package keyword

import (
	"sync"
	"time"
)

// State is the selection lifecycle state.
type State string

const (
	Unselected State = "unselected"
	Selected   State = "selected"
)

// Selection is a snapshot of the current selection.
type Selection struct {
	State      State     `json:"state"`
	NodeID     string    `json:"node_id,omitempty"`
	Phrase     string    `json:"phrase,omitempty"`
	Keywords   []string  `json:"keywords"`
	Version    uint64    `json:"version"`
	SelectedAt time.Time `json:"selected_at,omitempty"`
}

// Store holds the one current selection.  Select always replaces the whole
// selection; keywords never accumulate across selections.
type Store struct {
	mu      sync.RWMutex
	cur     Selection
	version uint64
	now     func() time.Time
}

// NewStore returns a Store in the Unselected state.
func NewStore() *Store {
	return &Store{cur: Selection{State: Unselected}, now: time.Now}
}

// Select enters (or moves within) the Selected state for nodeID, deriving
// keywords from phrase.  Selected(A) → Selected(B) never passes through
// Unselected.
func (s *Store) Select(nodeID, phrase string) Selection {
	kws := Extract(phrase)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.cur = Selection{
		State:      Selected,
		NodeID:     nodeID,
		Phrase:     phrase,
		Keywords:   kws,
		Version:    s.version,
		SelectedAt: s.now(),
	}
	return s.snapshot()
}

// Reset returns to Unselected and clears keywords.
func (s *Store) Reset() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.cur = Selection{State: Unselected, Version: s.version}
	return s.snapshot()
}

// Current returns a copy of the current selection.
func (s *Store) Current() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Keywords returns the current keywords, nil when unselected.
func (s *Store) Keywords() []string {
	return s.Current().Keywords
}

func (s *Store) snapshot() Selection {
	out := s.cur
	if s.cur.Keywords != nil {
		out.Keywords = append([]string(nil), s.cur.Keywords...)
	}
	return out
}
