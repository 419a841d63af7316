package core

import (
	"sync"
	"time"
)

// DefaultHistorySize is used when NewHistory is given a non-positive size.
const DefaultHistorySize = 50

// ImportRecord is one finished import attempt as kept in history.
type ImportRecord struct {
	ID        string        `json:"id"`
	Request   ImportRequest `json:"request"`
	Stage     Stage         `json:"stage"`
	Outcome   Outcome       `json:"outcome"`
	Code      string        `json:"code,omitempty"`
	Message   string        `json:"message"`
	ClientIP  string        `json:"client_ip,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// History is a bounded in-memory ring of recent import attempts.
type History struct {
	mu      sync.RWMutex
	records []ImportRecord
	next    int
	full    bool
}

// NewHistory creates a history keeping at most size records.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{records: make([]ImportRecord, size)}
}

// Add stores rec, evicting the oldest record when full.
func (h *History) Add(rec ImportRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.next] = rec
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
}

// List returns all records, newest first.
func (h *History) List() []ImportRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.records)
	}

	out := make([]ImportRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.records)) % len(h.records)
		out = append(out, h.records[idx])
	}
	return out
}

// Get returns the record with the given ID.
func (h *History) Get(id string) (ImportRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, rec := range h.records {
		if rec.ID == id && id != "" {
			return rec, true
		}
	}
	return ImportRecord{}, false
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.records)
	}
	return h.next
}
