package controller

import (
	"sync"
	"time"

	"reon/accumulator"
	"reon/config"
	"reon/radio"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Surface names one browse screen of a client. Each surface accumulates
// results independently, so paging the search screen never disturbs a
// chart or artist screen in the same session.
type Surface string

const (
	SurfaceSearch Surface = "search"
	SurfaceChart  Surface = "chart"
	SurfaceArtist Surface = "artist"
)

type BrowseSession struct {
	ID        string
	CreatedAt time.Time

	pager       accumulator.Pager
	recommender radio.Recommender

	Queue *radio.Queue

	mutex        sync.Mutex
	lastSeenAt   time.Time
	accumulators map[Surface]*accumulator.Accumulator
}

// Controller owns the map of sessionID to browse session.
type Controller struct {
	sessions    map[string]*BrowseSession
	pager       accumulator.Pager
	recommender radio.Recommender
	mutex       sync.Mutex
}

func NewController(pager accumulator.Pager, recommender radio.Recommender) *Controller {
	return &Controller{
		sessions:    make(map[string]*BrowseSession),
		pager:       pager,
		recommender: recommender,
	}
}

// CreateSession mints a new session with a fresh id.
func (c *Controller) CreateSession() *BrowseSession {
	return c.GetSession(uuid.NewString())
}

// GetSession returns the session for the given id, creating it on first
// use. The map is only ever touched under the mutex; concurrent requests
// for one id resolve to the same session.
func (c *Controller) GetSession(sessionID string) *BrowseSession {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if session, ok := c.sessions[sessionID]; ok {
		session.touch()
		return session
	}

	now := time.Now()
	session := &BrowseSession{
		ID:          sessionID,
		CreatedAt:   now,
		lastSeenAt:  now,
		pager:       c.pager,
		recommender: c.recommender,
		Queue: radio.NewQueue(c.pager, c.recommender, radio.Options{
			HistorySize: 50,
		}),
		accumulators: make(map[Surface]*accumulator.Accumulator),
	}

	c.sessions[sessionID] = session
	log.Debugf("created browse session %s", sessionID)
	return session
}

// DropSession removes a session and cancels any unlimited streams its
// accumulators still hold.
func (c *Controller) DropSession(sessionID string) {
	c.mutex.Lock()
	session, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mutex.Unlock()

	if ok {
		session.close()
	}
}

func (c *Controller) SessionCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.sessions)
}

// PruneIdle drops every session that has not been touched within ttl.
// Returns how many were dropped.
func (c *Controller) PruneIdle(ttl time.Duration) int {
	c.mutex.Lock()
	var stale []*BrowseSession
	for id, session := range c.sessions {
		if session.idleFor() > ttl {
			stale = append(stale, session)
			delete(c.sessions, id)
		}
	}
	c.mutex.Unlock()

	for _, session := range stale {
		session.close()
	}
	if len(stale) > 0 {
		log.WithFields(log.Fields{
			"module": "controller",
			"method": "PruneIdle",
		}).Debugf("dropped %d idle sessions", len(stale))
	}
	return len(stale)
}

// StartPruning prunes idle sessions on a fixed interval until the
// returned stop function is called.
func (c *Controller) StartPruning(interval time.Duration, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				c.PruneIdle(ttl)
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// Accumulator returns the session's accumulator for a surface, creating
// it on first use with the configured browse options.
func (s *BrowseSession) Accumulator(surface Surface) *accumulator.Accumulator {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if acc, ok := s.accumulators[surface]; ok {
		return acc
	}

	acc := accumulator.New(s.pager, browseOptions())
	s.accumulators[surface] = acc
	return acc
}

// LeaveSurface resets a surface's accumulator when the client leaves the
// screen, discarding accumulated items and cancelling in-flight work.
func (s *BrowseSession) LeaveSurface(surface Surface) {
	s.mutex.Lock()
	acc, ok := s.accumulators[surface]
	s.mutex.Unlock()
	if ok {
		acc.Reset("")
	}
}

func (s *BrowseSession) touch() {
	s.mutex.Lock()
	s.lastSeenAt = time.Now()
	s.mutex.Unlock()
}

func (s *BrowseSession) idleFor() time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return time.Since(s.lastSeenAt)
}

func (s *BrowseSession) close() {
	s.mutex.Lock()
	accs := make([]*accumulator.Accumulator, 0, len(s.accumulators))
	for _, acc := range s.accumulators {
		accs = append(accs, acc)
	}
	s.accumulators = make(map[Surface]*accumulator.Accumulator)
	s.mutex.Unlock()

	for _, acc := range accs {
		acc.Reset("")
	}
}

func browseOptions() accumulator.Options {
	if config.Config == nil {
		return accumulator.Options{}
	}
	return accumulator.Options{
		PageSize:         config.Config.Browse.PageSize,
		MinBatch:         config.Config.Browse.MinBatch,
		LookbackWindow:   config.Config.Browse.LookbackWindow,
		UnlimitedCeiling: config.Config.Browse.UnlimitedCeiling,
	}
}
