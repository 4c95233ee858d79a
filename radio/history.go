package radio

import "sync"

// SongHistoryEntry is one recently played song.
type SongHistoryEntry struct {
	SongID string
	Title  string
	Artist string
}

// SongHistory is a fixed-size ring buffer of recently played songs, used to
// keep radio continuation from re-queueing what was just heard.
type SongHistory struct {
	mutex   sync.Mutex
	entries []SongHistoryEntry
	size    int
	next    int
	full    bool
}

func NewSongHistory(size int) *SongHistory {
	if size <= 0 {
		size = 50
	}
	return &SongHistory{
		entries: make([]SongHistoryEntry, size),
		size:    size,
	}
}

func (h *SongHistory) Add(entry SongHistoryEntry) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.entries[h.next] = entry
	h.next = (h.next + 1) % h.size
	if h.next == 0 {
		h.full = true
	}
}

func (h *SongHistory) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.full {
		return h.size
	}
	return h.next
}

// GetRecent returns up to n entries, oldest first among the returned window.
func (h *SongHistory) GetRecent(n int) []SongHistoryEntry {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	count := h.next
	if h.full {
		count = h.size
	}
	if n > count {
		n = count
	}
	out := make([]SongHistoryEntry, 0, n)
	for i := count - n; i < count; i++ {
		idx := i
		if h.full {
			idx = (h.next + h.size - count + i) % h.size
		}
		out = append(out, h.entries[idx])
	}
	return out
}

// GetAllIDs returns the set of song ids currently held.
func (h *SongHistory) GetAllIDs() map[string]bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	count := h.next
	if h.full {
		count = h.size
	}
	ids := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		idx := i
		if h.full {
			idx = (h.next + i) % h.size
		}
		ids[h.entries[idx].SongID] = true
	}
	return ids
}
