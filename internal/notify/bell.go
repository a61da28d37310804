package notify

import (
	"context"
	"sync"
	"time"

	"github.com/najibrashidabdi/newkaabe/internal/logging"
	"github.com/najibrashidabdi/newkaabe/internal/screen"
)

const DefaultBellInterval = 30 * time.Second

// Bell keeps the unread count current and calls OnChange after every
// refresh. grew is true when the count went up since the previous refresh,
// which is when a user should be alerted.
type Bell struct {
	Feed     *Feed
	Interval time.Duration
	Push     <-chan struct{}
	OnChange func(unread int, grew bool)
	Log      logging.Logger

	mu   sync.Mutex
	prev int
	seen bool
}

// Check refreshes the feed once. The first refresh never reports growth.
func (b *Bell) Check(ctx context.Context) (unread int, grew bool, err error) {
	if err := b.Feed.Refresh(ctx); err != nil {
		return 0, false, err
	}
	unread = b.Feed.Unread()

	b.mu.Lock()
	grew = b.seen && unread > b.prev
	b.prev = unread
	b.seen = true
	b.mu.Unlock()
	return unread, grew, nil
}

// Run polls until ctx is done. Failures are logged and the previous count
// is kept.
func (b *Bell) Run(ctx context.Context) {
	interval := b.Interval
	if interval <= 0 {
		interval = DefaultBellInterval
	}
	log := b.Log
	if log == nil {
		log = logging.Nop
	}
	screen.Poller{
		Interval: interval,
		Ticks:    b.Push,
		Fn: func(ctx context.Context) {
			unread, grew, err := b.Check(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("notifications refresh failed", "err", err)
				}
				return
			}
			if b.OnChange != nil {
				b.OnChange(unread, grew)
			}
		},
	}.Run(ctx)
}
