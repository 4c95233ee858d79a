package radio

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"reon/models"
)

type stubPager struct {
	mu    sync.Mutex
	batch []models.Song
	calls int
	query string
}

func (s *stubPager) SearchPaged(ctx context.Context, key string, page int, limit int) ([]models.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.query = key
	return s.batch, nil
}

func (s *stubPager) SearchUnlimited(ctx context.Context, key string, ceiling int) (<-chan []models.Song, error) {
	ch := make(chan []models.Song)
	close(ch)
	return ch, nil
}

func (s *stubPager) queryUsed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func waitQueueLen(t *testing.T, q *Queue, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Len() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("queue len = %d, want %d", q.Len(), want)
}

func TestSongHistoryRingBuffer(t *testing.T) {
	sh := NewSongHistory(3)

	entries := []SongHistoryEntry{
		{SongID: "1", Title: "Song 1"},
		{SongID: "2", Title: "Song 2"},
		{SongID: "3", Title: "Song 3"},
		{SongID: "4", Title: "Song 4"}, // This should cause wrap-around
	}

	for i, e := range entries {
		sh.Add(e)
		t.Run(fmt.Sprintf("AfterAdd%d", i+1), func(t *testing.T) {
			expectedLen := min(3, i+1)
			if got := sh.Len(); got != expectedLen {
				t.Errorf("Len() = %d, want %d", got, expectedLen)
			}
		})
	}

	recent := sh.GetRecent(2)
	if len(recent) != 2 || recent[0].SongID != "3" || recent[1].SongID != "4" {
		t.Errorf("GetRecent(2) = %v, want last 2: 3,4", recent)
	}

	recentAll := sh.GetRecent(10) // more than size
	if len(recentAll) != 3 {
		t.Errorf("GetRecent(10) len=%d, want 3", len(recentAll))
	}

	ids := sh.GetAllIDs()
	if len(ids) != 3 || !ids["2"] || !ids["3"] || !ids["4"] {
		t.Errorf("GetAllIDs() = %v, want 2,3,4", ids)
	}
}

func TestQueueAddNextOrder(t *testing.T) {
	q := NewQueue(&stubPager{}, nil, Options{})

	q.Add(models.Song{ID: "a", Title: "A"})
	q.Add(models.Song{ID: "b", Title: "B"})

	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	if item := q.Next(); item == nil || item.Song.ID != "a" {
		t.Errorf("first Next() = %+v, want a", item)
	}
	if item := q.Next(); item == nil || item.Song.ID != "b" {
		t.Errorf("second Next() = %+v, want b", item)
	}
	if item := q.Next(); item != nil {
		t.Errorf("empty Next() = %+v, want nil", item)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue(&stubPager{}, nil, Options{})
	q.Add(models.Song{ID: "a", Title: "First"})
	q.Add(models.Song{ID: "b", Title: "Second"})

	if got := q.Remove(2); got != "Second" {
		t.Errorf("Remove(2) = %q, want Second", got)
	}
	if got := q.Remove(5); got != "" {
		t.Errorf("Remove out of range = %q, want empty", got)
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}

func TestRadioRefillOnDrain(t *testing.T) {
	pager := &stubPager{batch: []models.Song{
		{ID: "r1", Title: "Radio 1"},
		{ID: "r2", Title: "Radio 2"},
		{ID: "r3", Title: "Radio 3"},
	}}
	q := NewQueue(pager, nil, Options{LowWaterMark: 1, RefillCount: 3})
	q.ToggleRadio()

	q.Add(models.Song{ID: "seed", Title: "Seed Song", Artist: "Seed Artist"})
	q.Next() // drains the queue, history now has the seed

	waitQueueLen(t, q, 3)

	if got := pager.queryUsed(); got != "Seed Artist songs" {
		t.Errorf("continuation query = %q, want artist fallback", got)
	}
	for _, song := range q.Songs() {
		if song.ID == "seed" {
			t.Error("refill requeued a song from history")
		}
	}
}

func TestRadioRefillDedupsHistoryAndQueue(t *testing.T) {
	pager := &stubPager{batch: []models.Song{
		{ID: "seed", Title: "Seed"},   // just played, must be skipped
		{ID: "queued", Title: "Held"}, // already queued, must be skipped
		{ID: "fresh", Title: "Fresh"},
	}}
	q := NewQueue(pager, nil, Options{LowWaterMark: 5, RefillCount: 5})
	q.ToggleRadio()

	q.Add(models.Song{ID: "seed", Title: "Seed", Artist: "X"})
	q.Add(models.Song{ID: "queued", Title: "Held"})
	q.Next() // pops seed, triggers refill (len 1 <= low water 5)

	waitQueueLen(t, q, 2) // "queued" + "fresh"

	songs := q.Songs()
	if songs[len(songs)-1].ID != "fresh" {
		t.Errorf("expected only 'fresh' appended, got %v", songs)
	}
}

func TestNoRefillWhenRadioOff(t *testing.T) {
	pager := &stubPager{batch: []models.Song{{ID: "r1"}}}
	q := NewQueue(pager, nil, Options{LowWaterMark: 1})

	q.Add(models.Song{ID: "a", Artist: "X"})
	q.Next()

	time.Sleep(30 * time.Millisecond)
	if q.Len() != 0 {
		t.Error("queue refilled with radio mode off")
	}
	pager.mu.Lock()
	calls := pager.calls
	pager.mu.Unlock()
	if calls != 0 {
		t.Errorf("pager called %d times with radio off", calls)
	}
}

type stubRecommender struct{ query string }

func (s *stubRecommender) ContinuationQuery(ctx context.Context, last models.Song, recent []SongHistoryEntry) string {
	return s.query
}

func TestRecommenderQueryPreferred(t *testing.T) {
	pager := &stubPager{batch: []models.Song{{ID: "r1"}}}
	q := NewQueue(pager, &stubRecommender{query: "moody synthwave"}, Options{LowWaterMark: 1})
	q.ToggleRadio()

	q.Add(models.Song{ID: "a", Artist: "X"})
	q.Next()

	waitQueueLen(t, q, 1)
	if got := pager.queryUsed(); got != "moody synthwave" {
		t.Errorf("query = %q, want recommender query", got)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
