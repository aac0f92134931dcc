package annotate

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Mirror is the local keyed copy of one server-side collection.
// It is the single source of truth for the map layer and for rank
// lookups. Replacement happens in one locked step so readers never
// observe a torn collection.
//
// Freshness is governed by the kind's CollectionCache, not by the
// mirror itself.
type Mirror[E any] struct {
	stateLock sync.Mutex
	entries   map[string]E
}

func NewMirror[E any]() *Mirror[E] {
	return &Mirror[E]{
		entries: map[string]E{},
	}
}

// ReplaceAll clears the mirror and repopulates it from `entries`.
// The mirror is never merged on reload.
func (self *Mirror[E]) ReplaceAll(entries map[string]E) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.entries = maps.Clone(entries)
	if self.entries == nil {
		self.entries = map[string]E{}
	}
}

func (self *Mirror[E]) Put(id string, entry E) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.entries[id] = entry
}

func (self *Mirror[E]) Delete(id string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	delete(self.entries, id)
}

func (self *Mirror[E]) Get(id string) (E, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	entry, ok := self.entries[id]
	return entry, ok
}

// Values returns a snapshot in stable id order. Mutating the result
// does not affect the mirror.
func (self *Mirror[E]) Values() []E {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	values := make([]E, 0, len(self.entries))
	for _, id := range sortedKeys(self.entries) {
		values = append(values, self.entries[id])
	}
	return values
}

func sortedKeys[E any](entries map[string]E) []string {
	keys := maps.Keys(entries)
	slices.Sort(keys)
	return keys
}

func (self *Mirror[E]) Len() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return len(self.entries)
}
