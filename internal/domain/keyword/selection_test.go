package keyword

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_StartsUnselected(t *testing.T) {
	s := NewStore()
	cur := s.Current()
	assert.Equal(t, Unselected, cur.State)
	assert.Nil(t, cur.Keywords)
	assert.Empty(t, cur.NodeID)
}

func TestStore_SelectReplacesKeywords(t *testing.T) {
	s := NewStore()

	a := s.Select("china/april_11_exemption/no", "China 145% Tariff")
	assert.Equal(t, Selected, a.State)
	assert.Equal(t, []string{"china"}, a.Keywords)

	b := s.Select("other_regions/april_11_exemption/no", "Other Regions 10% Tariff")
	assert.Equal(t, Selected, b.State)
	assert.Equal(t, Extract("Other Regions 10% Tariff"), b.Keywords)
	assert.NotContains(t, b.Keywords, "china")
	assert.Greater(t, b.Version, a.Version)
	assert.Equal(t, b, s.Current())
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Select("china", "China")
	r := s.Reset()

	assert.Equal(t, Unselected, r.State)
	assert.Nil(t, s.Keywords())
	assert.Empty(t, s.Current().NodeID)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	sel := s.Select("china", "China Fentanyl")
	sel.Keywords[0] = "mutated"
	assert.Equal(t, []string{"china", "fentanyl"}, s.Keywords())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.Select("china", "China 145% Tariff") }()
		go func() { defer wg.Done(); _ = s.Current() }()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), s.Current().Version)
}
