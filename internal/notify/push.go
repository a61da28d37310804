package notify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/najibrashidabdi/newkaabe/internal/logging"
)

// RedisPush turns messages published on a user's notification channel into
// refresh signals for the bell.
type RedisPush struct {
	client *redis.Client
	log    logging.Logger
}

func NewRedisPush(url string, log logging.Logger) (*RedisPush, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis.ParseURL")
	}
	if log == nil {
		log = logging.Nop
	}
	return &RedisPush{client: redis.NewClient(opts), log: log}, nil
}

func Channel(userID int) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// Subscribe returns a channel that receives a signal per published message.
// Bursts collapse into one pending signal. The channel is closed when ctx is
// done or the subscription ends.
func (p *RedisPush) Subscribe(ctx context.Context, userID int) (<-chan struct{}, error) {
	sub := p.client.Subscribe(ctx, Channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrapf(err, "subscribe %s", Channel(userID))
	}

	ticks := make(chan struct{}, 1)
	go func() {
		defer close(ticks)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				p.log.Debug("notification push", "channel", msg.Channel)
				select {
				case ticks <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ticks, nil
}

// Publish signals userID's subscribers. The mock backend uses it when it
// creates a notification.
func (p *RedisPush) Publish(ctx context.Context, userID int, payload string) error {
	return errors.Wrap(p.client.Publish(ctx, Channel(userID), payload).Err(), "redis publish")
}

func (p *RedisPush) Close() error {
	return p.client.Close()
}
