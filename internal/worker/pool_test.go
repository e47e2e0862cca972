package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(2, nil)
	p.Start(context.Background())
	defer p.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		if err := p.Submit(func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			seen++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	if seen != 5 {
		t.Fatalf("want 5 tasks run, got %d", seen)
	}
}

func TestPoolSubmitErrors(t *testing.T) {
	p := NewPool(1, nil)
	if err := p.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Fatalf("want ErrNilTask, got %v", err)
	}
	// not started: queue holds workers*4 tasks
	noop := func(context.Context) error { return nil }
	for i := 0; i < 4; i++ {
		if err := p.Submit(noop); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := p.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := NewPool(1, nil)
	p.Start(context.Background())
	defer p.Stop()

	_ = p.Submit(func(context.Context) error { panic("boom") })
	done := make(chan struct{})
	_ = p.Submit(func(context.Context) error { close(done); return nil })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker died after panic")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := NewPool(1, nil)
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
