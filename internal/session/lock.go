package session

import (
	"context"
	"sync"
)

// Locker is implemented by stores that can serialize requests for one
// session across processes. RedisStore implements it.
type Locker interface {
	// Lock blocks until the caller holds the lock for id or ctx is done.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// lockTable serializes requests that share a session id within the process.
// Entries are dropped once nobody holds or waits for them.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (t *lockTable) lock(ctx context.Context, id string) (func(), error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		t.entries[id] = e
	}
	e.refs++
	t.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		t.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			t.release(id, e)
		})
	}, nil
}

func (t *lockTable) release(id string, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, id)
	}
}

// size returns the number of ids currently locked or waited on.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
