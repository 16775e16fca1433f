package importer

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocker_SerializesSameTarget(t *testing.T) {
	var (
		l       Locker
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxRun  int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 1, 1, 1)
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			mu.Lock()
			running++
			if running > maxRun {
				maxRun = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxRun != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxRun)
	}
	if n := l.size(); n != 0 {
		t.Errorf("size() = %d after all unlocks, want 0", n)
	}
}

func TestLocker_IndependentTargets(t *testing.T) {
	var l Locker
	unlock1, err := l.Lock(context.Background(), 1, 1, 1)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer unlock1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock2, err := l.Lock(ctx, 1, 1, 3)
	if err != nil {
		t.Fatalf("Lock() on another period error = %v", err)
	}
	unlock2()
}

func TestLocker_ContextDone(t *testing.T) {
	var l Locker
	unlock, err := l.Lock(context.Background(), 2, 1, 1)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 2, 1, 1); err != context.DeadlineExceeded {
		t.Errorf("Lock() error = %v, want %v", err, context.DeadlineExceeded)
	}

	unlock()
	unlock() // releasing twice is a no-op
	if n := l.size(); n != 0 {
		t.Errorf("size() = %d, want 0", n)
	}
}
