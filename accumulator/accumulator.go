package accumulator

import (
	"context"
	"sync"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"reon/models"
)

// Default paging knobs. Page size is the batch hint handed to the pager,
// MinBatch is the unique-new-item floor below which paging stops.
const (
	DefaultPageSize         = 50
	DefaultMinBatch         = 20
	DefaultLookbackWindow   = 5
	DefaultUnlimitedCeiling = 1000
)

// Pager is the external paged-search collaborator. SearchUnlimited returns a
// channel of batches that is closed when the stream ends or ctx is cancelled.
type Pager interface {
	SearchPaged(ctx context.Context, key string, page int, limit int) ([]models.Song, error)
	SearchUnlimited(ctx context.Context, key string, ceiling int) (<-chan []models.Song, error)
}

// Options tunes one accumulator. Zero fields fall back to the defaults above.
type Options struct {
	PageSize         int
	MinBatch         int
	LookbackWindow   int
	UnlimitedCeiling int
}

// Snapshot is an immutable view of the accumulation state handed to subscribers.
type Snapshot struct {
	Key           string        `json:"key"`
	Items         []models.Song `json:"items"`
	HasMore       bool          `json:"has_more"`
	IsLoadingMore bool          `json:"is_loading_more"`
	Unlimited     bool          `json:"unlimited"`
}

// Accumulator maintains a growing, deduplicated list of songs for one key
// (query, chart id, artist id), advancing a page counter in response to
// scroll-proximity triggers. All mutations happen under a single mutex; the
// isLoadingMore flag is a re-entrancy guard, not a lock: a second scroll
// trigger while a fetch is in flight is a no-op. Late results for a stale key
// are discarded via an epoch check on completion.
type Accumulator struct {
	pager Pager
	opts  Options

	mutex           sync.Mutex
	key             string
	epoch           uint64
	items           []models.Song
	seen            map[string]struct{}
	page            int
	hasMore         bool
	isLoadingMore   bool
	unlimited       bool
	cancelUnlimited context.CancelFunc

	notifications chan Snapshot
}

func New(pager Pager, opts Options) *Accumulator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MinBatch <= 0 {
		opts.MinBatch = DefaultMinBatch
	}
	if opts.LookbackWindow <= 0 {
		opts.LookbackWindow = DefaultLookbackWindow
	}
	if opts.UnlimitedCeiling <= 0 {
		opts.UnlimitedCeiling = DefaultUnlimitedCeiling
	}
	return &Accumulator{
		pager:         pager,
		opts:          opts,
		seen:          make(map[string]struct{}),
		page:          1,
		hasMore:       true,
		notifications: make(chan Snapshot, 100),
	}
}

// Notifications exposes the snapshot stream for subscribers. Sends are
// non-blocking; a slow consumer misses intermediate snapshots, never blocks
// the accumulator.
func (a *Accumulator) Notifications() <-chan Snapshot {
	return a.notifications
}

// Reset clears all state for a new key: empty items, page 1, hasMore true.
// Any in-flight fetch is logically abandoned (its epoch no longer matches)
// and a running unlimited stream is cancelled. Synchronous, no external call.
func (a *Accumulator) Reset(key string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.key = key
	a.epoch++
	a.items = nil
	a.seen = make(map[string]struct{})
	a.page = 1
	a.hasMore = true
	a.isLoadingMore = false
	if a.cancelUnlimited != nil {
		a.cancelUnlimited()
		a.cancelUnlimited = nil
	}
	a.unlimited = false

	a.notify()
}

// SeedInitial replaces items with an already-available local batch,
// deduplicated by id in first-seen order. No external call.
func (a *Accumulator) SeedInitial(items []models.Song) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.items = nil
	a.seen = make(map[string]struct{})
	a.mergeUnique(items)

	a.notify()
}

// OnScroll maps a list position onto the near-end trigger: the trigger fires
// when the last visible row index is within the lookback window of the end.
func (a *Accumulator) OnScroll(lastVisibleIndex int) bool {
	a.mutex.Lock()
	nearEnd := lastVisibleIndex >= len(a.items)-a.opts.LookbackWindow
	a.mutex.Unlock()

	if !nearEnd {
		return false
	}
	return a.OnScrollNearEnd()
}

// OnScrollNearEnd requests the next page if more results may exist and no
// fetch is already in flight. Returns whether a fetch was triggered.
func (a *Accumulator) OnScrollNearEnd() bool {
	a.mutex.Lock()

	if !a.hasMore || a.isLoadingMore || a.unlimited || a.key == "" {
		a.mutex.Unlock()
		return false
	}

	a.page++
	a.isLoadingMore = true
	key, page, epoch := a.key, a.page, a.epoch
	a.notify()
	a.mutex.Unlock()

	go a.fetchNextPage(key, page, epoch)
	return true
}

func (a *Accumulator) fetchNextPage(key string, page int, epoch uint64) {
	logger := log.WithFields(log.Fields{
		"module": "accumulator",
		"method": "fetchNextPage",
		"key":    key,
		"page":   page,
	})

	batch, err := a.pager.SearchPaged(context.Background(), key, page, a.opts.PageSize)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if epoch != a.epoch {
		logger.Tracef("discarding stale page result (epoch %d != %d)", epoch, a.epoch)
		return
	}

	if err != nil {
		// A failed page is terminal for this key: stop paging, keep what we
		// have, never surface the error to the consumer.
		logger.Warnf("page fetch failed, ending pagination: %v", err)
		sentry.CaptureException(err)
		a.hasMore = false
		a.isLoadingMore = false
		a.notify()
		return
	}

	unique := a.mergeUnique(batch)
	a.hasMore = unique >= a.opts.MinBatch
	a.isLoadingMore = false
	logger.Tracef("merged %d unique of %d fetched, hasMore=%t", unique, len(batch), a.hasMore)

	a.notify()
}

// ToggleUnlimitedMode switches between fixed-size paging and a streamed result
// set capped at the unlimited ceiling. Toggling off (or Reset) cancels the
// stream. Returns whether unlimited mode is now on.
func (a *Accumulator) ToggleUnlimitedMode() bool {
	a.mutex.Lock()

	if a.unlimited {
		if a.cancelUnlimited != nil {
			a.cancelUnlimited()
			a.cancelUnlimited = nil
		}
		a.unlimited = false
		a.isLoadingMore = false
		a.notify()
		a.mutex.Unlock()
		return false
	}

	if a.key == "" {
		a.mutex.Unlock()
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelUnlimited = cancel
	a.unlimited = true
	a.isLoadingMore = true
	key, epoch := a.key, a.epoch
	a.notify()
	a.mutex.Unlock()

	go a.consumeUnlimited(ctx, key, epoch)
	return true
}

func (a *Accumulator) consumeUnlimited(ctx context.Context, key string, epoch uint64) {
	logger := log.WithFields(log.Fields{
		"module": "accumulator",
		"method": "consumeUnlimited",
		"key":    key,
	})

	batches, err := a.pager.SearchUnlimited(ctx, key, a.opts.UnlimitedCeiling)
	if err != nil {
		logger.Warnf("unlimited stream failed to open: %v", err)
		sentry.CaptureException(err)
		a.mutex.Lock()
		if epoch == a.epoch {
			a.hasMore = false
			a.isLoadingMore = false
			a.unlimited = false
			a.notify()
		}
		a.mutex.Unlock()
		return
	}

	for batch := range batches {
		a.mutex.Lock()
		if epoch != a.epoch {
			a.mutex.Unlock()
			logger.Trace("discarding stale unlimited batch")
			return
		}
		unique := a.mergeUnique(batch)
		logger.Tracef("unlimited batch: %d unique of %d", unique, len(batch))
		a.notify()
		a.mutex.Unlock()
	}

	a.mutex.Lock()
	if epoch == a.epoch {
		// Stream drained: nothing further to page through for this key.
		a.hasMore = false
		a.isLoadingMore = false
		a.notify()
	}
	a.mutex.Unlock()
}

// Snapshot returns a copy of the current state.
func (a *Accumulator) Snapshot() Snapshot {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.snapshotLocked()
}

// Key returns the currently active key.
func (a *Accumulator) Key() string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.key
}

// mergeUnique appends items whose id has not been seen, preserving the order
// received, and returns the count of new unique items. Caller holds the mutex.
func (a *Accumulator) mergeUnique(batch []models.Song) int {
	unique := 0
	for _, song := range batch {
		if song.ID == "" {
			continue
		}
		if _, ok := a.seen[song.ID]; ok {
			continue
		}
		a.seen[song.ID] = struct{}{}
		a.items = append(a.items, song)
		unique++
	}
	return unique
}

func (a *Accumulator) snapshotLocked() Snapshot {
	items := make([]models.Song, len(a.items))
	copy(items, a.items)
	return Snapshot{
		Key:           a.key,
		Items:         items,
		HasMore:       a.hasMore,
		IsLoadingMore: a.isLoadingMore,
		Unlimited:     a.unlimited,
	}
}

// notify pushes a snapshot to subscribers without blocking. Caller holds the
// mutex.
func (a *Accumulator) notify() {
	select {
	case a.notifications <- a.snapshotLocked():
	default:
		msg := "accumulator notifications channel is full for key " + a.key
		sentry.CaptureMessage(msg)
		log.Warn(msg)
	}
}
