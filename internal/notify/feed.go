package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
)

const (
	TabAll    = "all"
	TabUnread = "unread"
)

type API interface {
	Notifications(ctx context.Context) ([]apiclient.Notification, error)
	MarkNotificationRead(ctx context.Context, id apiclient.ID) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Feed is the notifications screen: the last list loaded plus local read
// state. It is safe for use by the bell goroutine and the REPL at once.
type Feed struct {
	api API

	mu    sync.Mutex
	items []apiclient.Notification
}

func NewFeed(api API) *Feed {
	return &Feed{api: api}
}

func (f *Feed) Refresh(ctx context.Context) error {
	items, err := f.api.Notifications(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
	return nil
}

// Items returns the notifications shown under tab: all, unread, or those of
// one notification type.
func (f *Feed) Items(tab string) []apiclient.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]apiclient.Notification, 0, len(f.items))
	for _, n := range f.items {
		switch {
		case tab == "" || tab == TabAll:
		case tab == TabUnread:
			if n.IsRead {
				continue
			}
		default:
			if n.Type != tab {
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return countUnread(f.items)
}

func countUnread(items []apiclient.Notification) int {
	n := 0
	for _, item := range items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

type readState int

const (
	readMissing readState = iota
	readUnchanged
	readFlipped
)

// MarkRead flips the notification to read before the request and flips it
// back if the request fails. An id missing from the loaded list is still
// sent, and the list is reloaded once the server accepts it.
func (f *Feed) MarkRead(ctx context.Context, id apiclient.ID) error {
	switch f.setRead(id, true) {
	case readUnchanged:
		return nil
	case readMissing:
		if err := f.api.MarkNotificationRead(ctx, id); err != nil {
			return err
		}
		return f.Refresh(ctx)
	}
	if err := f.api.MarkNotificationRead(ctx, id); err != nil {
		f.setRead(id, false)
		return err
	}
	return nil
}

func (f *Feed) setRead(id apiclient.ID, read bool) readState {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if f.items[i].IsRead == read {
				return readUnchanged
			}
			f.items[i].IsRead = read
			return readFlipped
		}
	}
	return readMissing
}

func (f *Feed) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	var flipped []int
	for i := range f.items {
		if !f.items[i].IsRead {
			f.items[i].IsRead = true
			flipped = append(flipped, i)
		}
	}
	f.mu.Unlock()

	if err := f.api.MarkAllNotificationsRead(ctx); err != nil {
		f.mu.Lock()
		for _, i := range flipped {
			if i < len(f.items) {
				f.items[i].IsRead = false
			}
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

func TypeLabel(notificationType string) string {
	switch notificationType {
	case "welcome":
		return "Welcome"
	case "inactivity":
		return "Reminder"
	case "pro_expiration":
		return "Pro Subscription"
	case "motivational":
		return "Motivation"
	default:
		return "Notification"
	}
}

// RelativeTime renders created relative to now: "Just now", "5m ago",
// "3h ago", "Yesterday", then the short date.
func RelativeTime(created, now time.Time) string {
	d := now.Sub(created)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 48*time.Hour:
		return "Yesterday"
	}
	if created.Year() != now.Year() {
		return created.Format("Jan 2, 2006")
	}
	return created.Format("Jan 2")
}
