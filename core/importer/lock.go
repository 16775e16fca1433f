package importer

import (
	"context"
	"sync"

	"github.com/trezcool/gradebook/core/grade"
)

type lockKey struct {
	offeringID int
	cycleID    int
	period     grade.Period
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Locker serializes imports targeting the same (offering, cycle, period) within one process.
// The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[lockKey]*lockEntry
}

// Lock blocks until the target is free or `ctx` is done. The returned func releases it.
func (l *Locker) Lock(ctx context.Context, offeringID, cycleID int, period grade.Period) (func(), error) {
	key := lockKey{offeringID: offeringID, cycleID: cycleID, period: period}

	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[lockKey]*lockEntry)
	}
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

func (l *Locker) release(key lockKey, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
