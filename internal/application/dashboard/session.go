package dashboard

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SearchSession orders searches by client sequence number.  Only the
// newest sequence seen may publish results; anything older is superseded.
type SearchSession struct {
	mu     sync.Mutex
	latest uint64
}

func NewSearchSession() *SearchSession { return &SearchSession{} }

// Submit registers seq.  It reports false when a newer sequence was already
// seen.
func (s *SearchSession) Submit(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.latest {
		return false
	}
	s.latest = seq
	return true
}

// Latest reports whether seq is still the newest sequence.
func (s *SearchSession) Latest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.latest
}

// DefaultSearchSessions bounds how many clients keep a sequence.
const DefaultSearchSessions = 1024

// SearchSessions keeps one SearchSession per client id.  The least recently
// used client is forgotten once capacity is reached; its next search starts
// a fresh sequence.
type SearchSessions struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *SearchSession]
}

func NewSearchSessions(size int) *SearchSessions {
	if size <= 0 {
		size = DefaultSearchSessions
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *SearchSession](size)
	return &SearchSessions{cache: cache}
}

// Get returns the session of client, creating it on first use.
func (s *SearchSessions) Get(client string) *SearchSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.cache.Get(client); ok {
		return sess
	}
	sess := NewSearchSession()
	s.cache.Add(client, sess)
	return sess
}

// Len is the number of tracked clients.
func (s *SearchSessions) Len() int { return s.cache.Len() }
