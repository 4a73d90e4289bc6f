package collector

import (
	"sync"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

// ring holds the most recent readings of one site, oldest first.
type ring struct {
	readings []model.TelemetryReading
	next     int
	full     bool
}

func newRing(capacity int) *ring {
	return &ring{readings: make([]model.TelemetryReading, capacity)}
}

func (r *ring) add(reading model.TelemetryReading) {
	r.readings[r.next] = reading
	r.next = (r.next + 1) % len(r.readings)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) list() []model.TelemetryReading {
	if !r.full {
		return append([]model.TelemetryReading(nil), r.readings[:r.next]...)
	}
	list := make([]model.TelemetryReading, 0, len(r.readings))
	list = append(list, r.readings[r.next:]...)
	return append(list, r.readings[:r.next]...)
}

// Snapshot is a copy of the collector state at one point in time.
type Snapshot struct {
	Latest  map[string]model.TelemetryReading   `json:"latest"`
	History map[string][]model.TelemetryReading `json:"history"`
}

// Store keeps a bounded history and the latest reading of every site.
type Store struct {
	mu        sync.RWMutex
	capacity  int
	latest    map[string]model.TelemetryReading
	histories map[string]*ring
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity:  capacity,
		latest:    make(map[string]model.TelemetryReading),
		histories: make(map[string]*ring),
	}
}

func (store *Store) Add(reading model.TelemetryReading) {
	store.mu.Lock()
	defer store.mu.Unlock()

	history, ok := store.histories[reading.SiteId]
	if !ok {
		history = newRing(store.capacity)
		store.histories[reading.SiteId] = history
	}
	history.add(reading)
	store.latest[reading.SiteId] = reading
}

func (store *Store) Latest(siteId string) (model.TelemetryReading, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	reading, ok := store.latest[siteId]
	return reading, ok
}

func (store *Store) History(siteId string) []model.TelemetryReading {
	store.mu.RLock()
	defer store.mu.RUnlock()

	history, ok := store.histories[siteId]
	if !ok {
		return nil
	}
	return history.list()
}

func (store *Store) Snapshot() Snapshot {
	store.mu.RLock()
	defer store.mu.RUnlock()

	snapshot := Snapshot{
		Latest:  make(map[string]model.TelemetryReading, len(store.latest)),
		History: make(map[string][]model.TelemetryReading, len(store.histories)),
	}
	for siteId, reading := range store.latest {
		snapshot.Latest[siteId] = reading
	}
	for siteId, history := range store.histories {
		snapshot.History[siteId] = history.list()
	}
	return snapshot
}
