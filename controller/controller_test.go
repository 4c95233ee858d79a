package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"reon/models"
)

type nopPager struct{}

func (nopPager) SearchPaged(ctx context.Context, key string, page int, limit int) ([]models.Song, error) {
	return nil, nil
}

func (nopPager) SearchUnlimited(ctx context.Context, key string, ceiling int) (<-chan []models.Song, error) {
	ch := make(chan []models.Song)
	close(ch)
	return ch, nil
}

func TestGetSessionCreatesOnce(t *testing.T) {
	c := NewController(nopPager{}, nil)

	a := c.GetSession("abc")
	b := c.GetSession("abc")
	if a != b {
		t.Error("same id must return the same session")
	}
	if c.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d, want 1", c.SessionCount())
	}

	other := c.GetSession("def")
	if other == a {
		t.Error("distinct ids must return distinct sessions")
	}
}

func TestCreateSessionMintsUniqueIDs(t *testing.T) {
	c := NewController(nopPager{}, nil)

	s1 := c.CreateSession()
	s2 := c.CreateSession()
	if s1.ID == "" || s2.ID == "" {
		t.Fatal("minted session ids must not be empty")
	}
	if s1.ID == s2.ID {
		t.Error("minted session ids must be unique")
	}
	if c.SessionCount() != 2 {
		t.Errorf("SessionCount() = %d, want 2", c.SessionCount())
	}
}

func TestAccumulatorPerSurface(t *testing.T) {
	c := NewController(nopPager{}, nil)
	s := c.GetSession("abc")

	search := s.Accumulator(SurfaceSearch)
	chart := s.Accumulator(SurfaceChart)
	if search == chart {
		t.Error("surfaces must not share an accumulator")
	}
	if s.Accumulator(SurfaceSearch) != search {
		t.Error("Accumulator must be stable per surface")
	}
}

func TestLeaveSurfaceResets(t *testing.T) {
	c := NewController(nopPager{}, nil)
	s := c.GetSession("abc")

	acc := s.Accumulator(SurfaceSearch)
	acc.Reset("query")
	acc.SeedInitial([]models.Song{{ID: "a"}, {ID: "b"}})

	s.LeaveSurface(SurfaceSearch)

	snap := acc.Snapshot()
	if len(snap.Items) != 0 {
		t.Errorf("items after leave = %d, want 0", len(snap.Items))
	}
	if snap.Key != "" {
		t.Errorf("key after leave = %q, want empty", snap.Key)
	}
}

func TestDropSession(t *testing.T) {
	c := NewController(nopPager{}, nil)
	c.GetSession("abc")

	c.DropSession("abc")
	if c.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", c.SessionCount())
	}

	// dropping an unknown id is a no-op
	c.DropSession("missing")
}

func TestPruneIdle(t *testing.T) {
	c := NewController(nopPager{}, nil)
	stale := c.GetSession("stale")
	c.GetSession("fresh")

	stale.mutex.Lock()
	stale.lastSeenAt = time.Now().Add(-time.Hour)
	stale.mutex.Unlock()

	dropped := c.PruneIdle(30 * time.Minute)
	if dropped != 1 {
		t.Errorf("PruneIdle dropped %d, want 1", dropped)
	}
	if c.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d, want 1", c.SessionCount())
	}
	if c.GetSession("fresh") == nil {
		t.Error("fresh session must survive pruning")
	}
}

// Run with: go test -race ./controller/...
func TestGetSessionConcurrent(t *testing.T) {
	c := NewController(nopPager{}, nil)

	var wg sync.WaitGroup
	sessions := make([]*BrowseSession, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = c.GetSession("shared")
		}(i)
	}
	wg.Wait()

	if c.SessionCount() != 1 {
		t.Fatalf("SessionCount() = %d, want 1", c.SessionCount())
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent GetSession returned different sessions for one id")
		}
	}
}
