package screen

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoadStoresDataOrError(t *testing.T) {
	ok := Load(context.Background(), func(context.Context) (int, error) { return 7, nil })
	if !ok.OK() || ok.Data != 7 || ok.Loading {
		t.Fatalf("view = %+v", ok)
	}

	failed := Load(context.Background(), func(context.Context) (int, error) { return 0, errors.New("down") })
	if failed.OK() || failed.Err == nil || failed.Loading {
		t.Fatalf("view = %+v", failed)
	}
}

func TestPollerCallsImmediatelyAndStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		Poller{
			Interval: 5 * time.Millisecond,
			Fn:       func(context.Context) { calls.Add(1) },
		}.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("calls = %d, want at least 3", calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not stop after cancel")
	}

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("poller kept running after cancel")
	}
}

func TestPollerPushTicks(t *testing.T) {
	var calls atomic.Int32
	ticks := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Poller{
			Interval: time.Hour,
			Fn:       func(context.Context) { calls.Add(1) },
			Ticks:    ticks,
		}.Run(ctx)
	}()

	ticks <- struct{}{}
	ticks <- struct{}{}
	close(ticks)
	cancel()
	<-done

	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 pushes)", got)
	}
}
