package handlers

// handlers expose the browse sessions over HTTP. Every route except
// POST /session expects the session id minted at session creation, via
// the X-Session-ID header or the session query param.

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"reon/charts"
	"reon/config"
	"reon/controller"
	"reon/database"
	"reon/lyrics"
	"reon/models"
	"reon/spotify"
	"reon/youtube"
)

type Manager struct {
	Controller *controller.Controller
	DB         *database.Database
	Youtube    *youtube.Client
	Lyrics     *lyrics.Client
}

func NewManager(ctrl *controller.Controller, db *database.Database, yt *youtube.Client) *Manager {
	return &Manager{
		Controller: ctrl,
		DB:         db,
		Youtube:    yt,
		Lyrics:     lyrics.New(),
	}
}

func (m *Manager) RegisterRoutes(router *gin.Engine) {
	router.POST("/session", m.CreateSession)
	router.DELETE("/session", m.DropSession)

	router.GET("/search", m.Search)
	router.GET("/search/more", m.moreHandler(controller.SurfaceSearch))
	router.GET("/search/results", m.resultsHandler(controller.SurfaceSearch))
	router.POST("/search/unlimited", m.ToggleUnlimited)

	router.GET("/charts", m.ChartByURL)
	router.GET("/charts/:id", m.Chart)
	router.GET("/charts/:id/more", m.moreHandler(controller.SurfaceChart))
	router.GET("/artists", m.ArtistByURL)
	router.GET("/artists/:id", m.Artist)
	router.GET("/artists/:id/more", m.moreHandler(controller.SurfaceArtist))

	router.GET("/songs/:id", m.Song)
	router.GET("/lyrics", m.SongLyrics)

	router.GET("/favorites", m.Favorites)
	router.POST("/favorites", m.AddFavorite)
	router.GET("/favorites/:id", m.FavoriteStatus)
	router.DELETE("/favorites/:id", m.RemoveFavorite)

	router.GET("/history", m.History)
	router.GET("/history/recent", m.RecentSongs)
	router.GET("/history/most-played", m.MostPlayed)

	router.GET("/queue", m.Queue)
	router.POST("/queue", m.QueueAdd)
	router.POST("/queue/next", m.QueueNext)
	router.DELETE("/queue/:index", m.QueueRemove)
	router.DELETE("/queue", m.QueueClear)
	router.POST("/radio/toggle", m.ToggleRadio)
}

func (m *Manager) CreateSession(c *gin.Context) {
	session := m.Controller.CreateSession()
	c.JSON(http.StatusCreated, gin.H{"session_id": session.ID})
}

func (m *Manager) DropSession(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
		return
	}
	m.Controller.DropSession(id)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Search starts a new result set for the query: resets the search
// surface, fetches the first page synchronously and returns the snapshot.
// Further pages arrive through /search/more and /search/results.
func (m *Manager) Search(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	acc := session.Accumulator(controller.SurfaceSearch)

	// a pasted video url resolves to that one song, no paging
	if videoID := youtube.ParseYoutubeUrl(query); videoID != "" {
		song, err := m.Youtube.GetSongByID(c.Request.Context(), videoID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		acc.Reset("")
		acc.SeedInitial([]models.Song{song})
		c.JSON(http.StatusOK, acc.Snapshot())
		return
	}

	acc.Reset(query)
	songs, err := m.Youtube.SearchPaged(c.Request.Context(), query, 1, config.Config.Browse.PageSize)
	if err != nil {
		log.WithFields(log.Fields{
			"module": "handlers",
			"method": "Search",
		}).Errorf("first page failed for %q: %v", query, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
		return
	}
	acc.SeedInitial(songs)

	c.JSON(http.StatusOK, acc.Snapshot())
}

// moreHandler reports a scroll position on a surface. The page fetch, if
// one is triggered, runs in the background; clients poll the results
// route or watch the snapshot they already hold.
func (m *Manager) moreHandler(surface controller.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := m.session(c)
		if !ok {
			return
		}

		acc := session.Accumulator(surface)

		var fetching bool
		if raw := c.Query("last_visible"); raw != "" {
			lastVisible, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_visible"})
				return
			}
			fetching = acc.OnScroll(lastVisible)
		} else {
			fetching = acc.OnScrollNearEnd()
		}

		c.JSON(http.StatusOK, gin.H{
			"fetching": fetching,
			"snapshot": acc.Snapshot(),
		})
	}
}

func (m *Manager) resultsHandler(surface controller.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := m.session(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, session.Accumulator(surface).Snapshot())
	}
}

func (m *Manager) ToggleUnlimited(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}
	on := session.Accumulator(controller.SurfaceSearch).ToggleUnlimitedMode()
	c.JSON(http.StatusOK, gin.H{"unlimited": on})
}

// Chart scrapes an Apple Music chart page and seeds the chart surface
// with its songs. Scrolling past the seed pages in more results keyed by
// the chart name.
func (m *Manager) Chart(c *gin.Context) {
	m.serveChart(c, c.DefaultQuery("country", "us"), c.Param("id"))
}

// ChartByURL accepts a pasted Apple Music chart/playlist URL via the url
// query param, the same way Search accepts a pasted video URL.
func (m *Manager) ChartByURL(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}

	req, err := charts.ParseChartURL(rawURL)
	if err != nil || req.PlaylistID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a chart playlist url"})
		return
	}

	country := req.Country
	if country == "" {
		country = "us"
	}
	m.serveChart(c, country, req.PlaylistID)
}

func (m *Manager) serveChart(c *gin.Context, country, playlistID string) {
	session, ok := m.session(c)
	if !ok {
		return
	}

	chart, err := charts.GetChart(c.Request.Context(), country, playlistID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load chart"})
		return
	}

	acc := session.Accumulator(controller.SurfaceChart)
	acc.Reset(chart.Name)
	acc.SeedInitial(chart.Songs)

	c.JSON(http.StatusOK, gin.H{
		"chart":    chart,
		"snapshot": acc.Snapshot(),
	})
}

// Artist returns Spotify artist metadata and seeds the artist surface
// with their top songs.
func (m *Manager) Artist(c *gin.Context) {
	m.serveArtist(c, c.Param("id"))
}

// ArtistByURL accepts a pasted open.spotify.com artist URL via the url
// query param.
func (m *Manager) ArtistByURL(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}

	req, err := spotify.ParseSpotifyURL(rawURL)
	if err != nil || req.ArtistID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not an artist url"})
		return
	}
	m.serveArtist(c, req.ArtistID)
}

func (m *Manager) serveArtist(c *gin.Context, artistID string) {
	session, ok := m.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	artist, err := spotify.GetArtist(ctx, artistID)
	if errors.Is(err, spotify.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "artist pages disabled"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load artist"})
		return
	}

	top, err := spotify.GetArtistTopSongs(ctx, artistID)
	if err != nil {
		log.Warnf("top songs failed for artist %s: %v", artistID, err)
		top = nil
	}

	acc := session.Accumulator(controller.SurfaceArtist)
	acc.Reset(artist.Name + " songs")
	acc.SeedInitial(top)

	c.JSON(http.StatusOK, gin.H{
		"artist":   artist,
		"snapshot": acc.Snapshot(),
	})
}

func (m *Manager) Song(c *gin.Context) {
	song, err := m.Youtube.GetSongByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "song not found"})
		return
	}
	c.JSON(http.StatusOK, song)
}

func (m *Manager) SongLyrics(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	text, attribution, err := m.Lyrics.Search(query)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no lyrics found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lyrics":      text,
		"attribution": attribution,
	})
}

// Favorites lists saved songs, optionally filtered locally by a query
// over title and artist.
func (m *Manager) Favorites(c *gin.Context) {
	favorites, err := m.DB.GetFavorites(limitParam(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load favorites"})
		return
	}

	if query := c.Query("query"); query != "" {
		filtered := make([]database.FavoriteRecord, 0, len(favorites))
		for _, record := range favorites {
			if record.Song.MatchesQuery(query) {
				filtered = append(filtered, record)
			}
		}
		favorites = filtered
	}

	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

func (m *Manager) FavoriteStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"favorite": m.DB.IsFavorite(c.Param("id"))})
}

func (m *Manager) AddFavorite(c *gin.Context) {
	var song models.Song
	if err := c.ShouldBindJSON(&song); err != nil || song.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid song"})
		return
	}
	if err := m.DB.AddFavorite(song); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save favorite"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (m *Manager) RemoveFavorite(c *gin.Context) {
	title, err := m.DB.RemoveFavorite(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": title})
}

func (m *Manager) History(c *gin.Context) {
	history, err := m.DB.GetHistory(limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (m *Manager) RecentSongs(c *gin.Context) {
	songs, err := m.DB.GetRecentSongs(limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load recent songs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}

func (m *Manager) MostPlayed(c *gin.Context) {
	songs, err := m.DB.GetMostPlayed(limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load most played"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}

func (m *Manager) Queue(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"songs":   session.Queue.Songs(),
		"radio":   session.Queue.RadioOn(),
		"history": session.Queue.History().GetRecent(10),
	})
}

func (m *Manager) QueueAdd(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}
	var song models.Song
	if err := c.ShouldBindJSON(&song); err != nil || song.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid song"})
		return
	}
	session.Queue.Add(song)
	c.JSON(http.StatusCreated, gin.H{"ok": true, "length": session.Queue.Len()})
}

// QueueNext pops the next song and records the play. With radio on, the
// queue refills itself in the background as it drains.
func (m *Manager) QueueNext(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}

	item := session.Queue.Next()
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"song": nil})
		return
	}

	if err := m.DB.RecordPlay(item.Song); err != nil {
		log.Warnf("failed to record play for %s: %v", item.Song.ID, err)
	}

	response := gin.H{
		"song":      item.Song,
		"duration":  item.Song.FormatDuration(),
		"watch_url": item.Song.WatchURL(),
		"via_radio": item.ViaRadio,
	}
	if upNext := session.Queue.Peek(); upNext != nil {
		response["up_next"] = upNext.Song
	}
	c.JSON(http.StatusOK, response)
}

func (m *Manager) QueueRemove(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	removed := session.Queue.Remove(index)
	if removed == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no song at that position"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (m *Manager) QueueClear(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}
	session.Queue.Clear()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (m *Manager) ToggleRadio(c *gin.Context) {
	session, ok := m.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"radio": session.Queue.ToggleRadio()})
}

func (m *Manager) session(c *gin.Context) (*controller.BrowseSession, bool) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
		return nil, false
	}
	return m.Controller.GetSession(id), true
}

func sessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	return c.Query("session")
}

func limitParam(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
