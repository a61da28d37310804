package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/admin"
	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/forms"
	"github.com/najibrashidabdi/newkaabe/internal/session"
)

func (a *app) saveTokens(ctx context.Context, pair apiclient.TokenPair) error {
	return a.store.SaveTokens(ctx, session.Tokens{Access: pair.Access, Refresh: pair.Refresh})
}

func runLogin(ctx context.Context, a *app, args []string) error {
	var form forms.Login
	var err error
	if len(args) > 1 {
		form.Email = args[1]
	} else if form.Email, err = a.prompt("Email: "); err != nil {
		return err
	}
	if form.Password, err = a.promptSecret("Password: "); err != nil {
		return err
	}
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	if err := forms.Check(form); err != nil {
		printValidation(a.out, err)
		return nil
	}

	pair, err := a.api.Login(ctx, apiclient.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		fmt.Fprintf(a.out, "Login failed: %s\n", loginFailure(err))
		return nil
	}
	if err := a.saveTokens(ctx, pair); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful. Type 'dashboard' to continue.")
	return nil
}

func loginFailure(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			return detail
		}
		fields := apiErr.FieldErrors()
		for _, name := range []string{"email", "password"} {
			if msg, ok := fields[name]; ok {
				return msg
			}
		}
		return "Please check your credentials."
	}
	return apiclient.UserMessage(err)
}

func runStaffLogin(ctx context.Context, a *app, args []string) error {
	var creds apiclient.Credentials
	var err error
	if len(args) > 1 {
		creds.Email = args[1]
	} else if creds.Email, err = a.prompt("Staff email: "); err != nil {
		return err
	}
	if creds.Password, err = a.promptSecret("Password: "); err != nil {
		return err
	}

	login := &admin.StaffLogin{API: a.api, Store: a.store}
	otp, err := login.Submit(ctx, creds)
	if err != nil {
		fmt.Fprintln(a.out, admin.ErrBadCredentials.Error())
		a.log.Debug("staff login failed", "err", err)
		return nil
	}
	if otp {
		fmt.Fprintln(a.out, "Code sent! Check your inbox.")
		code, err := a.prompt("6-digit code: ")
		if err != nil {
			return err
		}
		if err := login.Verify(ctx, code); err != nil {
			fmt.Fprintln(a.out, admin.ErrBadCode.Error())
			a.log.Debug("staff verify failed", "err", err)
			return nil
		}
	}
	fmt.Fprintln(a.out, "Staff login successful. Type 'admin' to open the admin panel.")
	return nil
}

func runRegister(ctx context.Context, a *app, _ []string) error {
	var reg forms.Registration
	steps := []struct {
		title string
		ask   func() error
	}{
		{"Step 1 of 3: your details", func() (err error) {
			if reg.FullName, err = a.promptDefault("Full name: ", reg.FullName); err != nil {
				return err
			}
			reg.SchoolName, err = a.promptDefault("School name: ", reg.SchoolName)
			return err
		}},
		{"Step 2 of 3: contact", func() (err error) {
			if reg.Email, err = a.promptDefault("Email: ", reg.Email); err != nil {
				return err
			}
			reg.PhoneNumber, err = a.promptDefault("Phone number: ", reg.PhoneNumber)
			return err
		}},
		{"Step 3 of 3: password", func() (err error) {
			if reg.Password, err = a.promptSecret("Password: "); err != nil {
				return err
			}
			reg.ConfirmPassword, err = a.promptSecret("Confirm password: ")
			return err
		}},
	}

	for i, step := range steps {
		fmt.Fprintln(a.out, step.title)
		for attempt := 1; ; attempt++ {
			if err := step.ask(); err != nil {
				return err
			}
			reg.Normalize()
			err := reg.CheckStep(i + 1)
			if err == nil {
				break
			}
			fmt.Fprintln(a.out, "Please fix the errors:")
			printValidation(a.out, err)
			if attempt >= a.cfg.MaxInvalidAnswers {
				fmt.Fprintln(a.out, "Registration cancelled.")
				return nil
			}
		}
	}

	agree, err := a.promptYesNo("By creating an account, you agree to our Terms of Service ('terms' to read them). Continue? (yes/no): ")
	if err != nil {
		return err
	}
	if !agree {
		fmt.Fprintln(a.out, "Registration cancelled.")
		return nil
	}

	err = a.api.Register(ctx, apiclient.Registration{
		FullName:    reg.FullName,
		SchoolName:  reg.SchoolName,
		Email:       reg.Email,
		PhoneNumber: reg.PhoneNumber,
		Password:    reg.Password,
	})
	if err != nil {
		printFieldErrors(a.out, "Registration failed", err)
		return nil
	}
	if err := a.store.Set(ctx, session.KeyPendingEmail, reg.Email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registration successful! Please check your email for the verification code.")
	fmt.Fprintln(a.out, "Type 'verify' to enter it.")
	return nil
}

// verifyFailure maps a rejected verification to the message shown and the
// command the user should run next ("" to stay).
func verifyFailure(err error) (message, next string) {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return apiclient.UserMessage(err), ""
	}
	text := apiErr.Error()
	lower := strings.ToLower(text)
	switch {
	case apiErr.Status == http.StatusNotFound:
		return "User not found. Please register again.", "register"
	case strings.Contains(lower, "already verified"):
		return "This email is already verified. You can log in now.", "login"
	case strings.Contains(lower, "expired"):
		return "Verification code has expired. Please request a new one.", "resend"
	case apiErr.Status == http.StatusBadRequest && strings.Contains(text, "Invalid verification code"):
		return "Invalid verification code. Please check and try again.", ""
	case strings.TrimSpace(apiErr.Message) != "":
		return apiErr.Message, ""
	}
	return "Verification failed. Please try again.", ""
}

func runVerify(ctx context.Context, a *app, args []string) error {
	email := a.pendingValue(ctx, session.KeyPendingEmail)
	var err error
	if email == "" {
		if email, err = a.prompt("Email: "); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(a.out, "Verifying %s\n", email)
	}

	form := forms.Verification{Email: strings.ToLower(strings.TrimSpace(email))}
	if len(args) > 1 {
		form.Code = args[1]
	} else if form.Code, err = a.prompt("6-digit code: "); err != nil {
		return err
	}
	if err := forms.Check(form); err != nil {
		printValidation(a.out, err)
		return nil
	}

	pair, err := a.api.Verify(ctx, form.Email, form.Code)
	if err != nil {
		msg, next := verifyFailure(err)
		fmt.Fprintln(a.out, msg)
		if next != "" {
			fmt.Fprintf(a.out, "Next: type '%s'.\n", next)
		}
		if next == "login" || next == "register" {
			_ = a.store.Delete(ctx, session.KeyPendingEmail)
		}
		return nil
	}

	if pair.Access != "" {
		if err := a.saveTokens(ctx, pair); err != nil {
			return err
		}
	}
	_ = a.store.Delete(ctx, session.KeyPendingEmail)
	fmt.Fprintln(a.out, "Email verified!")
	if pair.Access != "" {
		fmt.Fprintln(a.out, "Next: add a profile picture with 'avatar <path>' or finish with 'onboarding'.")
	} else {
		fmt.Fprintln(a.out, "You can log in now.")
	}
	return nil
}

func runResend(ctx context.Context, a *app, _ []string) error {
	email := a.pendingValue(ctx, session.KeyPendingEmail)
	var err error
	if email == "" {
		if email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if err := a.api.ResendVerification(ctx, email); err != nil {
		fmt.Fprintf(a.out, "Could not resend the code: %s\n", apiclient.UserMessage(err))
		return nil
	}
	fmt.Fprintln(a.out, "Verification code sent! Check your email and enter the 6-digit code.")
	return nil
}

func runForgot(ctx context.Context, a *app, args []string) error {
	var form forms.PasswordResetRequest
	var err error
	if len(args) > 1 {
		form.Email = args[1]
	} else if form.Email, err = a.prompt("Email: "); err != nil {
		return err
	}
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	if err := forms.Check(form); err != nil {
		printValidation(a.out, err)
		return nil
	}

	if err := a.api.RequestPasswordReset(ctx, form.Email); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", apiclient.UserMessage(err))
		return nil
	}
	if err := a.store.Set(ctx, session.KeyResetEmail, form.Email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Code sent. Check your inbox for the reset code, then type 'reset'.")
	return nil
}

func runReset(ctx context.Context, a *app, _ []string) error {
	email := a.pendingValue(ctx, session.KeyResetEmail)
	if email == "" {
		fmt.Fprintln(a.out, "Start at the forgot-password step: type 'forgot'.")
		return nil
	}

	form := forms.PasswordResetConfirm{Email: email}
	var err error
	if form.Code, err = a.prompt("Reset code: "); err != nil {
		return err
	}
	if form.NewPassword, err = a.promptSecret("New password: "); err != nil {
		return err
	}
	if form.ConfirmPassword, err = a.promptSecret("Confirm new password: "); err != nil {
		return err
	}
	if err := forms.Check(form); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) && verr.Field("confirm_password") == "Passwords don't match" {
			fmt.Fprintln(a.out, "Please make sure your new passwords match.")
			return nil
		}
		printValidation(a.out, err)
		return nil
	}

	if err := a.api.ConfirmPasswordReset(ctx, form.Email, form.Code, form.NewPassword); err != nil {
		printFieldErrors(a.out, "Reset failed", err)
		return nil
	}
	_ = a.store.Delete(ctx, session.KeyResetEmail)
	fmt.Fprintln(a.out, "Password updated. You can log in now.")
	return nil
}

func runChangePassword(ctx context.Context, a *app, _ []string) error {
	var form forms.PasswordChange
	var err error
	if form.OldPassword, err = a.promptSecret("Current password: "); err != nil {
		return err
	}
	if form.NewPassword, err = a.promptSecret("New password: "); err != nil {
		return err
	}
	if form.ConfirmPassword, err = a.promptSecret("Confirm new password: "); err != nil {
		return err
	}
	if err := forms.Check(form); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) && verr.Field("confirm_password") == "Passwords don't match" {
			fmt.Fprintln(a.out, "Please make sure your new passwords match.")
			return nil
		}
		printValidation(a.out, err)
		return nil
	}

	if err := a.api.ChangePassword(ctx, form.OldPassword, form.NewPassword); err != nil {
		printFieldErrors(a.out, "Password change failed", err)
		return nil
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	tokens, err := a.store.Tokens(ctx)
	if err != nil {
		return err
	}
	if tokens.Refresh != "" {
		if err := a.api.Logout(ctx, tokens.Refresh); err != nil {
			a.log.Debug("logout request failed", "err", err)
		}
	}
	if err := a.store.ClearTokens(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "You have been logged out.")
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	tokens, err := a.store.Tokens(ctx)
	if err != nil {
		return err
	}
	if tokens.Empty() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	claims, err := session.Inspect(tokens.Access)
	if err != nil {
		fmt.Fprintf(a.out, "Logged in, but the access token could not be read: %v\n", err)
		return nil
	}
	fmt.Fprintf(a.out, "user_id=%d staff=%t\n", claims.UserID, claims.IsStaff)
	if exp := claims.Expiry(); !exp.IsZero() {
		fmt.Fprintf(a.out, "token expires %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runOnboarding(ctx context.Context, a *app, _ []string) error {
	if err := a.api.CompleteOnboarding(ctx); err != nil {
		fmt.Fprintf(a.out, "Failed to complete setup. Please try again. (%s)\n", describeClientError(err))
		return nil
	}
	fmt.Fprintln(a.out, "Welcome to Kaabe! Your account is ready.")
	fmt.Fprintln(a.out, "Type 'subscribe' to unlock Pro, or 'dashboard' to start studying.")
	return nil
}
