package annotate

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

type LoadFunction[T any] func(ctx context.Context) (T, error)

// CollectionCache is a single-flight memoized loader.
// It holds at most one cached value and at most one in-flight load.
// Concurrent `Get` calls during a load all join the same load and observe
// the same eventual result, so the underlying fetch happens exactly once.
//
// A failed load resolves to the fallback value and the cache is considered
// populated after either outcome. There is no automatic retry until
// `Invalidate`.
//
// Each value is tagged with the generation active when its load started.
// `Invalidate` bumps the generation, so a result arriving for a load that
// was invalidated mid-flight is discarded instead of overwriting the
// cache. Callers already waiting on that load still observe its value.
type CollectionCache[T any] struct {
	ctx      context.Context
	tag      string
	loader   LoadFunction[T]
	fallback func() T
	// called with each value accepted into the cache, after the
	// generation check. stale in-flight arrivals never reach it.
	onStore func(T)

	stateLock  sync.Mutex
	populated  bool
	value      T
	generation uint64
	load       *cacheLoad[T]
}

type cacheLoad[T any] struct {
	generation uint64
	done       chan struct{}
	value      T
}

func NewCollectionCache[T any](
	ctx context.Context,
	tag string,
	loader LoadFunction[T],
	fallback func() T,
	onStore func(T),
) *CollectionCache[T] {
	return &CollectionCache[T]{
		ctx:      ctx,
		tag:      tag,
		loader:   loader,
		fallback: fallback,
		onStore:  onStore,
	}
}

// Get returns the cached value, joins the in-flight load, or starts a
// new load. Waiting is channel-based. A canceled `ctx` resolves to the
// fallback value without disturbing the load, which other callers may
// still be waiting on.
func (self *CollectionCache[T]) Get(ctx context.Context) T {
	self.stateLock.Lock()
	if self.populated {
		value := self.value
		self.stateLock.Unlock()
		return value
	}
	if self.load == nil {
		load := &cacheLoad[T]{
			generation: self.generation,
			done:       make(chan struct{}),
		}
		self.load = load
		go self.run(load)
	}
	load := self.load
	self.stateLock.Unlock()

	select {
	case <-load.done:
		return load.value
	case <-ctx.Done():
		return self.fallback()
	case <-self.ctx.Done():
		return self.fallback()
	}
}

func (self *CollectionCache[T]) run(load *cacheLoad[T]) {
	value, err := self.loader(self.ctx)
	if err != nil {
		glog.Infof("[cache]%s load failed, resolving to fallback (%s)", self.tag, err)
		value = self.fallback()
	}
	load.value = value

	self.stateLock.Lock()
	stored := false
	if load.generation == self.generation {
		self.populated = true
		self.value = value
		stored = true
	} else {
		// invalidated while this load was in flight. the arrival is stale.
		glog.Infof("[cache]%s discarding stale in-flight result (generation %d < %d)", self.tag, load.generation, self.generation)
	}
	if self.load == load {
		self.load = nil
	}
	self.stateLock.Unlock()

	if stored && self.onStore != nil && err == nil {
		self.onStore(value)
	}

	close(load.done)
}

// Invalidate clears the cached value and bumps the generation so that an
// in-flight load, if any, is discarded on arrival. The next `Get` starts
// a genuinely fresh load.
func (self *CollectionCache[T]) Invalidate() {
	self.stateLock.Lock()
	self.generation += 1
	self.populated = false
	var empty T
	self.value = empty
	// detach the in-flight load so the next Get does not join it
	self.load = nil
	self.stateLock.Unlock()
}

func (self *CollectionCache[T]) IsPopulated() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.populated
}
