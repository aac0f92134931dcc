package annotate

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/paulmach/orb/geojson"
)

// Renderer is the rendering collaborator. The core supplies the data,
// the renderer owns pixel-level placement. Hooks fire after successful
// mutations and accepted reloads only.
type Renderer interface {
	RefreshLayer(kind EntityKind, collection *geojson.FeatureCollection)
	RevertPosition(kind EntityKind, entityId string, position Position)
	ReorderLayers()
}

type callbackEntry[T any] struct {
	callbackId Id
	callback   T
}

// makes a copy of the list on update
type CallbackList[T any] struct {
	mutex   sync.Mutex
	entries []callbackEntry[T]
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{}
}

func (self *CallbackList[T]) Get() []T {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	callbacks := make([]T, len(self.entries))
	for i, entry := range self.entries {
		callbacks[i] = entry.callback
	}
	return callbacks
}

// Add returns a remove function for the added callback.
func (self *CallbackList[T]) Add(callback T) func() {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbackId := NewId()
	nextEntries := slices.Clone(self.entries)
	nextEntries = append(nextEntries, callbackEntry[T]{
		callbackId: callbackId,
		callback:   callback,
	})
	self.entries = nextEntries

	return func() {
		self.remove(callbackId)
	}
}

func (self *CallbackList[T]) remove(callbackId Id) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	i := slices.IndexFunc(self.entries, func(entry callbackEntry[T]) bool {
		return entry.callbackId == callbackId
	})
	if i < 0 {
		// not present
		return
	}
	nextEntries := slices.Clone(self.entries)
	nextEntries = slices.Delete(nextEntries, i, i+1)
	self.entries = nextEntries
}
