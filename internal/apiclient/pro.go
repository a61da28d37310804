package apiclient

import (
	"context"
	"net/http"
	"strings"
)

// Activate redeems a Pro activation code.
func (c *Client) Activate(ctx context.Context, code string) error {
	return c.post(ctx, "/api/activate/", map[string]string{"code": strings.TrimSpace(code)}, nil)
}

func (c *Client) AdminMetrics(ctx context.Context) (Metrics, error) {
	var metrics Metrics
	if err := c.get(ctx, "/api/auth/admin/metrics/", &metrics); err != nil {
		return Metrics{}, err
	}
	return metrics, nil
}

func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/api/profile/", &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: "/api/profile/", Body: update}, nil)
}
