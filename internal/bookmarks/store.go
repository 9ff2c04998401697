// Package bookmarks keeps per-viewer bookmarks and reading history on top of
// a small key-value store.
package bookmarks

import (
	"encoding/json"
	"sync"
)

// HistoryLimit caps how many read episodes are remembered per viewer.
const HistoryLimit = 100

// Store is the key-value persistence used by the reader helpers.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// list is a JSON-encoded slug list stored under one key per viewer.
type list struct {
	store  Store
	prefix string
	mu     sync.Mutex
}

func (l *list) key(viewer string) string {
	return l.prefix + viewer
}

func (l *list) load(viewer string) []string {
	raw, ok := l.store.Get(l.key(viewer))
	if !ok || raw == "" {
		return []string{}
	}
	var slugs []string
	if err := json.Unmarshal([]byte(raw), &slugs); err != nil || slugs == nil {
		return []string{}
	}
	return slugs
}

func (l *list) save(viewer string, slugs []string) {
	data, err := json.Marshal(slugs)
	if err != nil {
		return
	}
	l.store.Set(l.key(viewer), string(data))
}

func indexOf(slugs []string, slug string) int {
	for i, s := range slugs {
		if s == slug {
			return i
		}
	}
	return -1
}

// Bookmarks tracks the episodes each viewer has saved.
type Bookmarks struct {
	list list
}

// NewBookmarks stores bookmarks in store.
func NewBookmarks(store Store) *Bookmarks {
	return &Bookmarks{list: list{store: store, prefix: "bookmarks:"}}
}

// Toggle adds slug when absent and removes it when present. It reports
// whether slug is bookmarked afterwards.
func (b *Bookmarks) Toggle(viewer, slug string) bool {
	b.list.mu.Lock()
	defer b.list.mu.Unlock()

	slugs := b.list.load(viewer)
	if i := indexOf(slugs, slug); i >= 0 {
		slugs = append(slugs[:i], slugs[i+1:]...)
		b.list.save(viewer, slugs)
		return false
	}
	b.list.save(viewer, append(slugs, slug))
	return true
}

// List returns the viewer's bookmarks in the order they were added.
func (b *Bookmarks) List(viewer string) []string {
	b.list.mu.Lock()
	defer b.list.mu.Unlock()
	return b.list.load(viewer)
}

// Contains reports whether slug is bookmarked.
func (b *Bookmarks) Contains(viewer, slug string) bool {
	return indexOf(b.List(viewer), slug) >= 0
}

// History tracks what each viewer has read, newest first.
type History struct {
	list list
}

// NewHistory stores reading history in store.
func NewHistory(store Store) *History {
	return &History{list: list{store: store, prefix: "history:"}}
}

// MarkRead moves slug to the front of the viewer's history.
func (h *History) MarkRead(viewer, slug string) {
	h.list.mu.Lock()
	defer h.list.mu.Unlock()

	slugs := h.list.load(viewer)
	if i := indexOf(slugs, slug); i >= 0 {
		slugs = append(slugs[:i], slugs[i+1:]...)
	}
	slugs = append([]string{slug}, slugs...)
	if len(slugs) > HistoryLimit {
		slugs = slugs[:HistoryLimit]
	}
	h.list.save(viewer, slugs)
}

// List returns the viewer's history, most recent first.
func (h *History) List(viewer string) []string {
	h.list.mu.Lock()
	defer h.list.mu.Unlock()
	return h.list.load(viewer)
}

// IsRead reports whether slug is in the viewer's history.
func (h *History) IsRead(viewer, slug string) bool {
	return indexOf(h.List(viewer), slug) >= 0
}
