package apiclient

import (
	"context"
	"net/url"
)

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var items []Notification
	if err := c.get(ctx, "/api/notifications/", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id ID) error {
	return c.post(ctx, "/api/notifications/"+url.PathEscape(id.String())+"/mark_as_read/", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.post(ctx, "/api/notifications/mark_all_as_read/", nil, nil)
}
