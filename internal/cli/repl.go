package cli

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/forms"
	"github.com/najibrashidabdi/newkaabe/internal/logging"
	"github.com/najibrashidabdi/newkaabe/internal/notify"
	"github.com/najibrashidabdi/newkaabe/internal/opentdb"
	"github.com/najibrashidabdi/newkaabe/internal/session"
)

const (
	defaultMaxInvalidAnswers = 3
	defaultListLimit         = 10
)

//go:embed terms.txt
var termsText string

// PushSource subscribes to "notifications changed" signals for a user.
type PushSource interface {
	Subscribe(ctx context.Context, userID int) (<-chan struct{}, error)
}

type Config struct {
	API    *apiclient.Client
	Store  session.Store
	Log    logging.Logger
	Trivia *opentdb.Client
	Push   PushSource

	MetricsInterval      time.Duration
	NotificationInterval time.Duration
	RevenuePerProUser    int
	MaxInvalidAnswers    int
	ListLimit            int
}

// readPassword reads a secret without echo when fd is a terminal.
var readPassword = term.ReadPassword

type app struct {
	cfg    Config
	api    *apiclient.Client
	store  session.Store
	log    logging.Logger
	reader *bufio.Reader
	in     io.Reader
	out    io.Writer
	feed   *notify.Feed
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"help", "help", func(_ context.Context, a *app, _ []string) error { printHelp(a.out); return nil }},
		{"login", "login [email]", runLogin},
		{"staff-login", "staff-login [email]", runStaffLogin},
		{"register", "register", runRegister},
		{"verify", "verify [code]", runVerify},
		{"resend", "resend", runResend},
		{"forgot", "forgot [email]", runForgot},
		{"reset", "reset", runReset},
		{"change-password", "change-password", runChangePassword},
		{"dashboard", "dashboard", runDashboard},
		{"subject", "subject <subject_id>", runSubject},
		{"quizzes", "quizzes <subject_id> <year_id>", runQuizzes},
		{"play", "play <subject_id> <year_id> <quiz_id>", runPlay},
		{"result", "result <quiz_id>", runResult},
		{"notifications", "notifications [all|unread|<type>] [limit]", runNotifications},
		{"read", "read <notification_id>", runRead},
		{"read-all", "read-all", runReadAll},
		{"watch", "watch", runWatch},
		{"profile", "profile", runProfile},
		{"profile-edit", "profile-edit", runProfileEdit},
		{"avatar", "avatar <image_path>", runAvatar},
		{"onboarding", "onboarding", runOnboarding},
		{"subscribe", "subscribe [activation_code]", runSubscribe},
		{"admin", "admin", runAdmin},
		{"logout", "logout", runLogout},
		{"mix", "mix [trivia]", runMix},
		{"feedback", "feedback", runFeedback},
		{"terms", "terms", func(_ context.Context, a *app, _ []string) error { fmt.Fprint(a.out, termsText); return nil }},
		{"whoami", "whoami", runWhoami},
		{"exit", "exit", nil},
	}
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	if cfg.API == nil {
		return errors.New("api client is required")
	}
	if cfg.Store == nil {
		cfg.Store = session.NewMemoryStore()
	}
	if cfg.Log == nil {
		cfg.Log = logging.Nop
	}
	if cfg.MaxInvalidAnswers <= 0 {
		cfg.MaxInvalidAnswers = defaultMaxInvalidAnswers
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = defaultListLimit
	}

	a := &app{
		cfg:    cfg,
		api:    cfg.API,
		store:  cfg.Store,
		log:    cfg.Log,
		reader: bufio.NewReader(in),
		in:     in,
		out:    out,
		feed:   notify.NewFeed(cfg.API),
	}

	fmt.Fprintf(out, "kaabe\nserver=%s\n\n", cfg.API.BaseURL())
	printHelp(out)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, "\n> ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		name := strings.ToLower(args[0])
		if name == "exit" || name == "quit" {
			return nil
		}

		cmd, ok := lookup(name)
		if !ok {
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
			continue
		}
		if err := cmd.run(ctx, a, args); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			a.log.Debug("command failed", "command", name, "err", err)
			fmt.Fprintf(out, "error: %s\n", describeClientError(err))
		}
	}
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name && cmd.run != nil {
			return cmd, true
		}
	}
	return command{}, false
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(out, "  %s\n", cmd.usage)
	}
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo on a terminal and falls back to a plain
// line otherwise.
func (a *app) promptSecret(label string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) && a.reader.Buffered() == 0 {
		fmt.Fprint(a.out, label)
		secret, err := readPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return strings.TrimSpace(string(secret)), nil
	}
	return a.prompt(label)
}

// promptDefault returns fallback when the user just presses enter.
func (a *app) promptDefault(label, fallback string) (string, error) {
	if fallback != "" {
		label = fmt.Sprintf("%s[%s] ", label, fallback)
	}
	value, err := a.prompt(label)
	if err != nil {
		return "", err
	}
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

func (a *app) promptYesNo(label string) (bool, error) {
	for {
		answer, err := a.prompt(label)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(a.out, "Please answer yes or no.")
		}
	}
}

// waitForEnter blocks until a line is read or ctx ends.
func (a *app) waitForEnter(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		_, _ = a.reader.ReadString('\n')
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (a *app) pendingValue(ctx context.Context, key string) string {
	value, err := a.store.Get(ctx, key)
	if err != nil {
		return ""
	}
	return value
}

func (a *app) loggedIn(ctx context.Context) bool {
	tokens, err := a.store.Tokens(ctx)
	return err == nil && !tokens.Empty()
}

func printValidation(out io.Writer, err error) bool {
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	if len(verr.Fields) == 0 {
		fmt.Fprintln(out, verr.Error())
		return true
	}
	for _, f := range verr.Fields {
		fmt.Fprintf(out, "  %s: %s\n", forms.Label(f.Field), f.Error)
	}
	return true
}

// printFieldErrors prints the per-field messages of a rejected form, or the
// single message when the backend sent none.
func printFieldErrors(out io.Writer, title string, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if fields, ok := apiErr.Body.(apiclient.FieldErrors); ok {
			fmt.Fprintf(out, "%s:\n", title)
			for _, name := range fields.Names() {
				fmt.Fprintf(out, "  %s: %s\n", apiclient.FieldLabel(name), fields.Fields[name][0])
			}
			return
		}
	}
	fmt.Fprintf(out, "%s: %s\n", title, apiclient.UserMessage(err))
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func describeClientError(err error) string {
	if apiclient.IsUnauthorized(err) {
		return "please log in first (" + apiclient.UserMessage(err) + ")"
	}
	return apiclient.UserMessage(err)
}

func usage(out io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(out, "usage: %s\n", cmd.usage)
			return
		}
	}
}
