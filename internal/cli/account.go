package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/admin"
	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/forms"
	"github.com/najibrashidabdi/newkaabe/internal/notify"
	"github.com/najibrashidabdi/newkaabe/internal/practice"
)

func runNotifications(ctx context.Context, a *app, args []string) error {
	tab := notify.TabAll
	if len(args) > 1 {
		tab = strings.ToLower(args[1])
	}
	limit, err := parsePositiveLimit(args, 2, a.cfg.ListLimit)
	if err != nil {
		fmt.Fprintf(a.out, "invalid notifications limit: %v\n", err)
		return nil
	}
	if err := a.feed.Refresh(ctx); err != nil {
		return err
	}

	items := a.feed.Items(tab)
	fmt.Fprintf(a.out, "Notifications (%s): %d shown, %d unread\n", tab, len(items), a.feed.Unread())
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No notifications found")
		return nil
	}
	now := time.Now()
	for i, n := range items {
		if i >= limit {
			break
		}
		dot := " "
		if !n.IsRead {
			dot = "*"
		}
		fmt.Fprintf(a.out, "%s [%s] %s (%s, %s)\n", dot, n.ID, n.Title, notify.TypeLabel(n.Type), notify.RelativeTime(n.CreatedAt, now))
		fmt.Fprintf(a.out, "    %s\n", n.Message)
	}
	return nil
}

func runRead(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		usage(a.out, "read")
		return nil
	}
	if len(a.feed.Items(notify.TabAll)) == 0 {
		if err := a.feed.Refresh(ctx); err != nil {
			return err
		}
	}
	if err := a.feed.MarkRead(ctx, apiclient.ID(args[1])); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Marked as read. %d unread left.\n", a.feed.Unread())
	return nil
}

func runReadAll(ctx context.Context, a *app, _ []string) error {
	if err := a.feed.MarkAllRead(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All notifications marked as read.")
	return nil
}

// runWatch keeps the notification bell running until the user presses
// enter.
func runWatch(ctx context.Context, a *app, _ []string) error {
	if !a.loggedIn(ctx) {
		fmt.Fprintln(a.out, "Please log in first.")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bell := &notify.Bell{
		Feed:     a.feed,
		Interval: a.cfg.NotificationInterval,
		Log:      a.log,
		OnChange: func(unread int, grew bool) {
			if grew {
				fmt.Fprintf(a.out, "\a[bell] new notification, %d unread\n", unread)
				return
			}
			fmt.Fprintf(a.out, "[bell] %d unread\n", unread)
		},
	}
	if a.cfg.Push != nil {
		if me, err := a.api.Me(ctx); err == nil {
			ticks, err := a.cfg.Push.Subscribe(ctx, me.ID)
			if err != nil {
				a.log.Warn("notification push unavailable, polling only", "err", err)
			} else {
				bell.Push = ticks
			}
		}
	}

	fmt.Fprintln(a.out, "Watching notifications. Press Enter to stop.")
	done := make(chan struct{})
	go func() {
		defer close(done)
		bell.Run(ctx)
	}()
	a.waitForEnter(ctx)
	cancel()
	<-done
	return nil
}

func runProfile(ctx context.Context, a *app, _ []string) error {
	me, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", me.FullName, me.Email)
	fmt.Fprintf(a.out, "School: %s\n", me.SchoolName)
	if me.PhoneNumber != "" {
		fmt.Fprintf(a.out, "Phone: %s\n", me.PhoneNumber)
	}
	fmt.Fprintf(a.out, "Verified: %t\n", me.IsVerified)

	profile, err := a.api.Profile(ctx)
	if err != nil {
		a.log.Debug("profile endpoint failed", "err", err)
		return nil
	}
	if profile.AvatarURL != nil && *profile.AvatarURL != "" {
		fmt.Fprintf(a.out, "Avatar: %s\n", *profile.AvatarURL)
	} else if me.ProfilePicture != "" {
		fmt.Fprintf(a.out, "Avatar: %s\n", me.ProfilePicture)
	}
	return nil
}

func runProfileEdit(ctx context.Context, a *app, _ []string) error {
	current, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	form := forms.ProfileEdit{}
	if form.FullName, err = a.promptDefault("Full name: ", current.FullName); err != nil {
		return err
	}
	if form.SchoolName, err = a.promptDefault("School name: ", current.SchoolName); err != nil {
		return err
	}
	if err := forms.Check(form); err != nil {
		printValidation(a.out, err)
		return nil
	}
	err = a.api.UpdateProfile(ctx, apiclient.ProfileUpdate{
		FullName:   strings.TrimSpace(form.FullName),
		SchoolName: strings.TrimSpace(form.SchoolName),
	})
	if err != nil {
		printFieldErrors(a.out, "Update failed", err)
		return nil
	}
	fmt.Fprintln(a.out, "Profile updated.")
	return nil
}

func runAvatar(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		usage(a.out, "avatar")
		return nil
	}
	path := args[1]
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintln(a.out, forms.ErrAvatarMissing.Error())
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open image")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "read image")
	}
	contentType := http.DetectContentType(head[:n])
	if err := forms.CheckAvatar(info.Size(), contentType); err != nil {
		printValidation(a.out, err)
		return nil
	}

	content := io.MultiReader(bytes.NewReader(head[:n]), f)
	if err := a.api.UploadProfilePicture(ctx, filepath.Base(path), contentType, content); err != nil {
		fmt.Fprintf(a.out, "Upload failed: %s\n", apiclient.UserMessage(err))
		return nil
	}
	fmt.Fprintln(a.out, "Profile picture uploaded. Your profile picture has been updated successfully.")
	return nil
}

func runSubscribe(ctx context.Context, a *app, args []string) error {
	var form forms.Activation
	if len(args) > 1 {
		form.Code = args[1]
	} else {
		fmt.Fprintln(a.out, "Kaabe Pro: every past paper, full explanations and monthly giveaways.")
		fmt.Fprintln(a.out, "Pay $1 and enter the activation code you receive.")
		var err error
		if form.Code, err = a.prompt("Activation code: "); err != nil {
			return err
		}
	}
	if err := forms.Check(form); err != nil {
		printValidation(a.out, err)
		return nil
	}

	if err := a.api.Activate(ctx, form.Code); err != nil {
		msg := apiclient.UserMessage(err)
		if msg == "" {
			msg = "Invalid or expired code. Please try again."
		}
		fmt.Fprintf(a.out, "Activation failed: %s\n", msg)
		return nil
	}
	fmt.Fprintln(a.out, "Upgrade successful! Enjoy full Pro access.")
	return nil
}

// runAdmin shows the live metrics until the user presses enter.
func runAdmin(ctx context.Context, a *app, _ []string) error {
	if _, err := admin.RequireStaff(ctx, a.api); err != nil {
		fmt.Fprintln(a.out, "Staff only. Type 'staff-login' to sign in as staff.")
		a.log.Debug("admin gate", "err", err)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	monitor := &admin.Monitor{
		API:               a.api,
		Interval:          a.cfg.MetricsInterval,
		RevenuePerProUser: a.cfg.RevenuePerProUser,
		Log:               a.log,
		OnUpdate: func(s admin.Snapshot) {
			printSnapshot(a.out, s)
		},
	}

	fmt.Fprintln(a.out, "Admin metrics. Press Enter to stop.")
	done := make(chan struct{})
	go func() {
		defer close(done)
		monitor.Run(ctx)
	}()
	a.waitForEnter(ctx)
	cancel()
	<-done
	return nil
}

func printSnapshot(out io.Writer, s admin.Snapshot) {
	if s.Err != nil {
		fmt.Fprintln(out, admin.ErrMetrics.Error())
		return
	}
	fmt.Fprintf(out, "[%s] users=%d pro=%d growth=%s%% revenue=%d SLSH\n",
		time.Now().Format("15:04:05"), s.Metrics.TotalUsers, s.Metrics.ProUsers,
		formatScore(s.Metrics.DailyGrowth), s.Revenue)
	if len(s.Series) > 1 {
		first, last := s.Series[0], s.Series[len(s.Series)-1]
		fmt.Fprintf(out, "  trend over %d points: %+d SLSH\n", len(s.Series), last.Revenue-first.Revenue)
	}
}

func runMix(ctx context.Context, a *app, args []string) error {
	var questions []practice.Question
	if len(args) > 1 && strings.EqualFold(args[1], "trivia") {
		if a.cfg.Trivia == nil {
			fmt.Fprintln(a.out, "Trivia questions are not configured.")
			return nil
		}
		raw, err := a.cfg.Trivia.FetchQuestions(ctx, 10)
		if err != nil {
			return err
		}
		questions = practice.FromTrivia(raw, nil)
	} else {
		bank, err := practice.Bank()
		if err != nil {
			return err
		}
		questions = bank
	}
	return practice.Play(ctx, a.reader, a.out, practice.NewRound(questions))
}

func runFeedback(ctx context.Context, a *app, _ []string) error {
	var form forms.Feedback
	var err error
	if form.Name, err = a.prompt("Name: "); err != nil {
		return err
	}
	if form.Email, err = a.prompt("Email: "); err != nil {
		return err
	}
	if form.Message, err = a.prompt("Message: "); err != nil {
		return err
	}
	if err := forms.Check(form); err != nil {
		printValidation(a.out, err)
		return nil
	}

	err = a.api.SendFeedback(ctx, apiclient.Feedback{Name: form.Name, Email: form.Email, Message: form.Message})
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "Waan helnay fariintaada, jawaab celin Inshaa'Allaah waad naga sugin.")
	case errors.Is(err, apiclient.ErrFeedbackNotReceived):
		fmt.Fprintln(a.out, "Wax qalad ah ayaa dhacay.")
	default:
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Detail() != "" {
			fmt.Fprintln(a.out, apiErr.Detail())
			return nil
		}
		fmt.Fprintln(a.out, "Isku day mar kale. Wax baa khaldan.")
	}
	return nil
}
