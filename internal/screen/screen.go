package screen

import (
	"context"
	"time"
)

// View is the state every screen holds: whether it is loading, the last
// error and the last data loaded.
type View[T any] struct {
	Loading bool
	Err     error
	Data    T
}

// Load runs fn the way a screen mount does: loading is set for the duration
// of the call, then either the data or the error is kept.
func Load[T any](ctx context.Context, fn func(context.Context) (T, error)) View[T] {
	view := View[T]{Loading: true}
	data, err := fn(ctx)
	view.Loading = false
	if err != nil {
		view.Err = err
		return view
	}
	view.Data = data
	return view
}

func (v View[T]) OK() bool {
	return !v.Loading && v.Err == nil
}

// Poller calls Fn immediately and then on every Interval tick until the
// context is done. Ticks are taken from Ticks when set, which lets a push
// source trigger the same refresh as the timer.
type Poller struct {
	Interval time.Duration
	Fn       func(context.Context)
	Ticks    <-chan struct{}
}

func (p Poller) Run(ctx context.Context) {
	if p.Fn == nil {
		return
	}
	p.Fn(ctx)

	var tick <-chan time.Time
	if p.Interval > 0 {
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			p.Fn(ctx)
		case _, ok := <-p.Ticks:
			if !ok {
				p.Ticks = nil
				continue
			}
			p.Fn(ctx)
		}
	}
}
