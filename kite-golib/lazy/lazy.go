package lazy

import (
	"sync"
)

// Loader loads a resource on first use and can release it again. Users hold a read lock
// while they use the resource, so an Unload waits for them.
type Loader struct {
	load   func() error
	unload func()

	lock    sync.RWMutex
	once    sync.Once
	loadErr error
	loaded  bool
}

// NewLoader creates a new Loader
func NewLoader(load func() error, unload func()) *Loader {
	return &Loader{
		load:   load,
		unload: unload,
	}
}

// LoadAndLock runs load if it has not run yet and takes a read lock that blocks Unload
// until Unlock is called. The lock is only held when the returned error is nil, so
// callers defer Unlock after checking it.
func (l *Loader) LoadAndLock() error {
	// release the lock if load panics or fails
	release := true
	l.lock.RLock()
	defer func() {
		if release {
			l.lock.RUnlock()
		}
	}()

	l.once.Do(func() {
		l.loadErr = l.load()
		l.loaded = l.loadErr == nil
	})
	if l.loadErr == nil {
		release = false
	}
	return l.loadErr
}

// Unlock releases the lock taken by LoadAndLock
func (l *Loader) Unlock() {
	l.lock.RUnlock()
}

// Do runs f with the resource loaded
func (l *Loader) Do(f func() error) error {
	if err := l.LoadAndLock(); err != nil {
		return err
	}
	defer l.Unlock()
	return f()
}

// Unload releases the resource once current users are done; the next LoadAndLock
// loads it again. A failed load is retried after Unload.
func (l *Loader) Unload() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.loaded {
		l.unload()
	}
	l.once = sync.Once{}
	l.loadErr = nil
	l.loaded = false
}
