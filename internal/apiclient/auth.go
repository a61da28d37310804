package apiclient

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

func (c *Client) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	var tokens TokenPair
	if err := c.post(ctx, "/api/auth/login/", creds, &tokens); err != nil {
		return TokenPair{}, err
	}
	return tokens, nil
}

// StaffLogin starts an admin session. When the result has OTPRequired set,
// finish it with StaffVerify.
func (c *Client) StaffLogin(ctx context.Context, creds Credentials) (StaffLogin, error) {
	var res StaffLogin
	if err := c.post(ctx, "/api/auth/staff-login/", creds, &res); err != nil {
		return StaffLogin{}, err
	}
	return res, nil
}

func (c *Client) StaffVerify(ctx context.Context, email, code string) (TokenPair, error) {
	var tokens TokenPair
	body := map[string]string{"email": email, "code": code}
	if err := c.post(ctx, "/api/auth/staff-login/verify/", body, &tokens); err != nil {
		return TokenPair{}, err
	}
	return tokens, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.post(ctx, "/api/auth/register/", reg, nil)
}

// Verify confirms the emailed code. The backend may answer with a token pair.
func (c *Client) Verify(ctx context.Context, email, code string) (TokenPair, error) {
	var tokens TokenPair
	body := map[string]string{
		"email": strings.ToLower(strings.TrimSpace(email)),
		"code":  strings.TrimSpace(code),
	}
	if err := c.post(ctx, "/api/auth/verify/", body, &tokens); err != nil {
		return TokenPair{}, err
	}
	return tokens, nil
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email))}
	return c.post(ctx, "/api/auth/resend-verification/", body, nil)
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, "/api/auth/password-reset/", map[string]string{"email": email}, nil)
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	body := map[string]string{
		"email":        email,
		"code":         code,
		"new_password": newPassword,
	}
	return c.post(ctx, "/api/auth/password-reset/confirm/", body, nil)
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	return c.post(ctx, "/api/change-password/", body, nil)
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	if err := c.get(ctx, "/api/auth/me/", &me); err != nil {
		return Me{}, err
	}
	return me, nil
}

func (c *Client) CompleteOnboarding(ctx context.Context) error {
	return c.post(ctx, "/api/auth/complete-onboarding/", nil, nil)
}

// UploadProfilePicture sends the image as the profile_picture multipart field.
func (c *Client) UploadProfilePicture(ctx context.Context, filename, contentType string, content io.Reader) error {
	form := NewMultipartForm()
	if err := form.AddFile("profile_picture", filename, contentType, content); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/auth/upload-profile-picture/", Form: form}, nil)
}

// Logout tells the backend to drop the refresh token.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	return c.post(ctx, "/api/auth/logout/", map[string]string{"refresh": refresh}, nil)
}

type Feedback struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

var ErrFeedbackNotReceived = errors.New("feedback was not acknowledged")

func (c *Client) SendFeedback(ctx context.Context, feedback Feedback) error {
	var res detailResponse
	if err := c.post(ctx, "/api/auth/feedback/", feedback, &res); err != nil {
		return err
	}
	if res.Detail != "received" {
		if res.Detail != "" {
			return errors.Wrap(ErrFeedbackNotReceived, res.Detail)
		}
		return ErrFeedbackNotReceived
	}
	return nil
}
