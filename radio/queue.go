package radio

import (
	"context"
	"sync"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"reon/accumulator"
	"reon/models"
)

type QueueEventType string

const (
	EventAdd    QueueEventType = "add"
	EventSkip   QueueEventType = "skip"
	EventClear  QueueEventType = "clear"
	EventRefill QueueEventType = "refill"
)

type QueueEvent struct {
	Type QueueEventType
	Item *QueueItem
}

type QueueItem struct {
	Song     models.Song
	AddedAt  time.Time
	ViaRadio bool
}

// Recommender derives a continuation query from listening context. Optional;
// without one the queue falls back to an artist-based query.
type Recommender interface {
	ContinuationQuery(ctx context.Context, last models.Song, recent []SongHistoryEntry) string
}

// Options tunes radio continuation.
type Options struct {
	LowWaterMark int // refill when the queue shrinks to this many items
	RefillCount  int // how many songs one refill adds
	HistorySize  int
}

// Queue is the now-playing queue. With radio mode on, draining it below the
// low-water mark triggers a background fetch of similar songs, deduplicated
// against recent history and the queue itself. The refilling flag is a
// re-entrancy guard like the accumulator's isLoadingMore: one refill at a
// time, further triggers are no-ops.
type Queue struct {
	pager       accumulator.Pager
	recommender Recommender
	opts        Options

	mutex         sync.Mutex
	items         []*QueueItem
	radioOn       bool
	refilling     bool
	history       *SongHistory
	notifications chan QueueEvent
}

func NewQueue(pager accumulator.Pager, recommender Recommender, opts Options) *Queue {
	if opts.LowWaterMark <= 0 {
		opts.LowWaterMark = 2
	}
	if opts.RefillCount <= 0 {
		opts.RefillCount = 5
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 50
	}
	return &Queue{
		pager:         pager,
		recommender:   recommender,
		opts:          opts,
		history:       NewSongHistory(opts.HistorySize),
		notifications: make(chan QueueEvent, 100),
	}
}

func (q *Queue) Notifications() <-chan QueueEvent {
	return q.notifications
}

// Add appends a song the listener picked.
func (q *Queue) Add(song models.Song) {
	q.mutex.Lock()
	item := &QueueItem{Song: song, AddedAt: time.Now()}
	q.items = append(q.items, item)
	q.mutex.Unlock()

	q.notifyEvent(QueueEvent{Type: EventAdd, Item: item})
}

// Next pops the head of the queue, records it in history, and kicks off a
// radio refill if the queue has drained. Returns nil when the queue is empty.
func (q *Queue) Next() *QueueItem {
	q.mutex.Lock()
	if len(q.items) == 0 {
		q.mutex.Unlock()
		q.maybeRefill()
		return nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.mutex.Unlock()

	q.history.Add(SongHistoryEntry{
		SongID: item.Song.ID,
		Title:  item.Song.Title,
		Artist: item.Song.Artist,
	})
	q.notifyEvent(QueueEvent{Type: EventSkip, Item: item})
	q.maybeRefill()
	return item
}

// Peek returns the head without popping it.
func (q *Queue) Peek() *QueueItem {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Remove drops the item at the 1-based index and returns its title.
func (q *Queue) Remove(index int) string {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if index < 1 || index > len(q.items) {
		return ""
	}
	removed := q.items[index-1]
	q.items = append(q.items[:index-1], q.items[index:]...)
	return removed.Song.Title
}

func (q *Queue) Clear() {
	q.mutex.Lock()
	q.items = nil
	q.mutex.Unlock()
	q.notifyEvent(QueueEvent{Type: EventClear})
}

func (q *Queue) IsEmpty() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items) == 0
}

func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

// Songs returns a copy of the queued songs in play order.
func (q *Queue) Songs() []models.Song {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	out := make([]models.Song, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, item.Song)
	}
	return out
}

// ToggleRadio flips radio mode and returns the new state. Turning it on with
// a drained queue refills immediately.
func (q *Queue) ToggleRadio() bool {
	q.mutex.Lock()
	q.radioOn = !q.radioOn
	on := q.radioOn
	q.mutex.Unlock()

	if on {
		q.maybeRefill()
	}
	return on
}

func (q *Queue) RadioOn() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.radioOn
}

// History exposes the recently played ring buffer.
func (q *Queue) History() *SongHistory {
	return q.history
}

func (q *Queue) maybeRefill() {
	q.mutex.Lock()
	if !q.radioOn || q.refilling || len(q.items) > q.opts.LowWaterMark {
		q.mutex.Unlock()
		return
	}
	q.refilling = true
	q.mutex.Unlock()

	go q.refill()
}

func (q *Queue) refill() {
	logger := log.WithFields(log.Fields{"module": "radio", "method": "refill"})

	defer func() {
		q.mutex.Lock()
		q.refilling = false
		q.mutex.Unlock()
	}()

	recent := q.history.GetRecent(5)
	if len(recent) == 0 {
		logger.Trace("nothing played yet, radio has no seed")
		return
	}
	last := recent[len(recent)-1]
	seed := models.Song{ID: last.SongID, Title: last.Title, Artist: last.Artist}

	query := q.continuationQuery(seed, recent)
	logger.Tracef("radio continuation query: %s", query)

	// Over-fetch so dedup against history and the queue still leaves enough.
	batch, err := q.pager.SearchPaged(context.Background(), query, 1, q.opts.RefillCount*3)
	if err != nil {
		logger.Warnf("radio refill failed: %v", err)
		sentry.CaptureException(err)
		return
	}

	played := q.history.GetAllIDs()

	q.mutex.Lock()
	queued := make(map[string]bool, len(q.items))
	for _, item := range q.items {
		queued[item.Song.ID] = true
	}

	added := 0
	for _, song := range batch {
		if added >= q.opts.RefillCount {
			break
		}
		if song.ID == "" || played[song.ID] || queued[song.ID] {
			continue
		}
		q.items = append(q.items, &QueueItem{Song: song, AddedAt: time.Now(), ViaRadio: true})
		queued[song.ID] = true
		added++
	}
	q.mutex.Unlock()

	if added > 0 {
		logger.Debugf("radio queued %d songs", added)
		q.notifyEvent(QueueEvent{Type: EventRefill})
	}
}

func (q *Queue) continuationQuery(last models.Song, recent []SongHistoryEntry) string {
	if q.recommender != nil {
		if query := q.recommender.ContinuationQuery(context.Background(), last, recent); query != "" {
			return query
		}
	}
	if last.Artist != "" {
		return last.Artist + " songs"
	}
	return last.Title
}

func (q *Queue) notifyEvent(event QueueEvent) {
	select {
	case q.notifications <- event:
	default:
		msg := "radio queue notifications channel is full"
		sentry.CaptureMessage(msg)
		log.Warn(msg)
	}
}
