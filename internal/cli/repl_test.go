package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/mockapi"
	"github.com/najibrashidabdi/newkaabe/internal/quiz"
	"github.com/najibrashidabdi/newkaabe/internal/session"
)

// scriptReader hands out one line per Read. Lines are produced when read, so
// a line can depend on what earlier commands did.
type scriptReader struct {
	lines   []func() string
	pending []byte
}

func lines(values ...string) []func() string {
	out := make([]func() string, 0, len(values))
	for _, v := range values {
		v := v
		out = append(out, func() string { return v })
	}
	return out
}

func (r *scriptReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		if len(r.lines) == 0 {
			return 0, io.EOF
		}
		r.pending = []byte(r.lines[0]() + "\n")
		r.lines = r.lines[1:]
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

type codes struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *codes) put(kind, email, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[kind+":"+email] = code
}

func (c *codes) line(prefix, kind, email string) func() string {
	return func() string {
		c.mu.Lock()
		defer c.mu.Unlock()
		return prefix + c.m[kind+":"+email]
	}
}

type fixture struct {
	api    *mockapi.Server
	server *httptest.Server
	codes  *codes
	store  session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{codes: &codes{m: make(map[string]string)}, store: session.NewMemoryStore()}
	srv, err := mockapi.NewServer(mockapi.Options{
		JWTSecret:  "cli-test",
		BcryptCost: bcrypt.MinCost,
		OnCode:     f.codes.put,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	f.api = srv
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) run(t *testing.T, script []func() string) string {
	t.Helper()
	var out bytes.Buffer
	api := apiclient.New(f.server.URL, f.server.Client(), session.TokenSource{Store: f.store}, nil)
	cfg := Config{
		API:                  api,
		Store:                f.store,
		MetricsInterval:      time.Hour,
		NotificationInterval: time.Hour,
	}
	if err := Run(context.Background(), &scriptReader{lines: script}, &out, cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String()
}

func assertContains(t *testing.T, output string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}
}

func loginLines() []func() string {
	return lines("login "+mockapi.StudentEmail, mockapi.StudentPassword)
}

func TestRunRequiresAPI(t *testing.T) {
	if err := Run(context.Background(), strings.NewReader(""), io.Discard, Config{}); err == nil {
		t.Fatalf("expected error without api client")
	}
}

func TestRunHelpAndUnknownCommand(t *testing.T) {
	f := newFixture(t)
	output := f.run(t, lines("bogus", "terms", "exit", "help"))

	assertContains(t, output, "Commands:", "play <subject_id> <year_id> <quiz_id>", "unknown command. type 'help' for usage.", "Shuruudaha")
	if strings.Count(output, "Commands:") != 1 {
		t.Fatalf("commands after exit were run:\n%s", output)
	}
}

func TestLoginDashboardAndLogout(t *testing.T) {
	f := newFixture(t)
	script := append(loginLines(), lines("dashboard", "whoami", "logout", "whoami", "dashboard")...)
	output := f.run(t, script)

	assertContains(t, output,
		"Login successful. Type 'dashboard' to continue.",
		"Welcome back, Amina Warsame (Hiiraan Secondary)",
		"Plan: free",
		"[1] Biology 0/7",
		"1. Hodan Ali (Banadir High) 42 pts",
		"user_id=1 staff=false",
		"You have been logged out.",
		"Not logged in.",
		"Please log in again to continue: type 'login'.",
	)
}

func TestLoginFailureShowsDetail(t *testing.T) {
	f := newFixture(t)
	output := f.run(t, lines("login "+mockapi.StudentEmail, "wrong-password", "login", "", ""))

	assertContains(t, output, "Login failed: No active account found with the given credentials")
	tokens, _ := f.store.Tokens(context.Background())
	if !tokens.Empty() {
		t.Fatalf("tokens saved after failed login: %+v", tokens)
	}
}

func TestRegisterThenVerify(t *testing.T) {
	f := newFixture(t)
	email := "faisal@example.com"
	script := lines(
		"register",
		"F", "Mogadishu Secondary",
		"Faisal Omar", "",
		email, "+252 615 550 000",
		"Secret123", "Secret12",
		"Secret123", "Secret123",
		"maybe", "yes",
		"verify 12345",
	)
	script = append(script, f.codes.line("verify ", "verify", email))
	script = append(script, lines("verify 000000", email, "whoami")...)
	output := f.run(t, script)

	assertContains(t, output,
		"Step 1 of 3: your details",
		"Please fix the errors:",
		"Please answer yes or no.",
		"Registration successful! Please check your email for the verification code.",
		"Verifying "+email,
		"Email verified!",
		"This email is already verified. You can log in now.",
		"Next: type 'login'.",
		"staff=false",
	)
}

func TestForgotAndReset(t *testing.T) {
	f := newFixture(t)
	script := lines("reset", "forgot "+mockapi.StudentEmail, "reset", "000000", "NewSecret1", "Other1234", "reset")
	script = append(script, f.codes.line("", "reset", mockapi.StudentEmail))
	script = append(script, lines("NewSecret1", "NewSecret1", "login "+mockapi.StudentEmail, "NewSecret1")...)
	output := f.run(t, script)

	assertContains(t, output,
		"Start at the forgot-password step: type 'forgot'.",
		"Code sent. Check your inbox for the reset code, then type 'reset'.",
		"Please make sure your new passwords match.",
		"Password updated. You can log in now.",
		"Login successful.",
	)
}

func TestBrowseAndPlayQuiz(t *testing.T) {
	f := newFixture(t)
	script := append(loginLines(), lines(
		"subject 1",
		"quizzes 1 10",
		"play 1 10 100",
		"Z", "B",
		"",
		"Chlorophyll",
		"A=aorta|B=left ventricle",
		"osmosis",
		"result 100",
	)...)
	output := f.run(t, script)

	assertContains(t, output,
		"Biology",
		"[11] 2020: 1 quizzes, 0% done (Pro)",
		"> [100] quiz 1: 4 questions, open",
		"Question 1 of 4 (25%)",
		"  B. Mitochondria",
		"Invalid answer: choose one of A, B, C, D. Attempts remaining: 2",
		quiz.ErrNoAnswer.Error(),
		"Halfway there, keep going!",
		"Image: "+f.server.URL+"/media/diagrams/heart.png",
		"Quiz finished!",
		"Congratulations! You passed with 66.67%.",
		"Correct: 3  Incorrect: 1",
		"Correct answer: transpiration",
	)
}

func TestPlayProOnlyThenSubscribe(t *testing.T) {
	f := newFixture(t)
	script := append(loginLines(), lines(
		"play 1 11 110",
		"subscribe WRONG",
		"subscribe "+mockapi.DemoCode,
		"dashboard",
		"play 1 11 110",
		"quit",
	)...)
	output := f.run(t, script)

	assertContains(t, output,
		"This quiz needs Pro. Type 'subscribe' to upgrade.",
		"Activation failed: Invalid or expired activation code.",
		"Upgrade successful! Enjoy full Pro access.",
		"Pro: 30 days left",
		"What carries oxygen in red blood cells?",
		"Quiz left.",
	)
}

func TestNotificationCommands(t *testing.T) {
	f := newFixture(t)
	script := append(loginLines(), lines(
		"notifications",
		"notifications unread 0",
		"read 2",
	)...)
	script = append(script, func() string {
		f.api.Notify(context.Background(), 1, "motivational", "New paper", "Biology 2020 is out.")
		return "read 3"
	})
	script = append(script, lines(
		"read 999",
		"notifications unread",
		"read-all",
		"notifications unread",
	)...)
	output := f.run(t, script)

	assertContains(t, output,
		"Notifications (all): 2 shown, 2 unread",
		"Keep going (Motivation, 3h ago)",
		"invalid notifications limit: must be a positive integer",
		"Marked as read. 1 unread left.",
		"error: Notification not found.",
		"Notifications (unread): 1 shown, 1 unread",
		"All notifications marked as read.",
		"No notifications found",
	)
}

func TestProfileCommands(t *testing.T) {
	f := newFixture(t)
	script := append(loginLines(), lines(
		"profile-edit", "", "Banadir High",
		"profile",
		"avatar /does/not/exist.png",
		"onboarding",
	)...)
	output := f.run(t, script)

	assertContains(t, output,
		"Full name: [Amina Warsame]",
		"Profile updated.",
		"School: Banadir High",
		"Please select a profile picture to upload",
		"Welcome to Kaabe! Your account is ready.",
	)
}

func TestAdminNeedsStaff(t *testing.T) {
	f := newFixture(t)
	output := f.run(t, append(loginLines(), lines("admin")...))
	assertContains(t, output, "Staff only. Type 'staff-login' to sign in as staff.")
}

func TestStaffLoginOpensAdmin(t *testing.T) {
	f := newFixture(t)
	script := lines("staff-login "+mockapi.StaffEmail, mockapi.StaffPassword)
	script = append(script, f.codes.line("", "staff", mockapi.StaffEmail))
	script = append(script, lines("whoami", "admin", "")...)
	output := f.run(t, script)

	assertContains(t, output,
		"Code sent! Check your inbox.",
		"Staff login successful.",
		"staff=true",
		"Admin metrics. Press Enter to stop.",
	)
}

func TestStaffLoginBadCode(t *testing.T) {
	f := newFixture(t)
	output := f.run(t, lines("staff-login "+mockapi.StaffEmail, mockapi.StaffPassword, "111111x"))
	assertContains(t, output, "Wrong or expired code.")

	output = f.run(t, lines("staff-login "+mockapi.StaffEmail, "nope"))
	assertContains(t, output, "Invalid e-mail or password.")
}

func TestFeedbackCommand(t *testing.T) {
	f := newFixture(t)
	output := f.run(t, lines("feedback", "Amina", "not-an-email", "Hi", "feedback", "Amina", "amina@example.com", "Mahadsanid"))
	assertContains(t, output, "Waan helnay fariintaada")
}

func TestMixPractice(t *testing.T) {
	f := newFixture(t)
	script := []func() string{func() string { return "mix" }}
	for i := 0; i < 10; i++ {
		script = append(script, func() string { return "a" })
	}
	output := f.run(t, script)
	assertContains(t, output, "Q1/10", "Quiz completed! You scored")
}

func TestVerifyFailure(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantNext string
		wantMsg  string
	}{
		{"missing user", &apiclient.APIError{Status: http.StatusNotFound, Message: "User not found."}, "register", "User not found. Please register again."},
		{"already verified", &apiclient.APIError{Status: http.StatusBadRequest, Message: "User already verified."}, "login", "This email is already verified. You can log in now."},
		{"expired", &apiclient.APIError{Status: http.StatusBadRequest, Message: "Code expired."}, "resend", "Verification code has expired. Please request a new one."},
		{"invalid", &apiclient.APIError{Status: http.StatusBadRequest, Message: "Invalid verification code."}, "", "Invalid verification code. Please check and try again."},
		{"other", &apiclient.APIError{Status: http.StatusInternalServerError, Message: "boom"}, "", "boom"},
		{"empty", &apiclient.APIError{Status: http.StatusInternalServerError}, "", "Verification failed. Please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, next := verifyFailure(tc.err)
			if msg != tc.wantMsg || next != tc.wantNext {
				t.Fatalf("verifyFailure = (%q, %q), want (%q, %q)", msg, next, tc.wantMsg, tc.wantNext)
			}
		})
	}
}

func TestLoginFailureMessages(t *testing.T) {
	detail := &apiclient.APIError{Status: 401, Body: apiclient.DetailError{Detail: "No active account"}, Message: "No active account"}
	if got := loginFailure(detail); got != "No active account" {
		t.Fatalf("loginFailure(detail) = %q", got)
	}
	fields := &apiclient.APIError{Status: 400, Body: apiclient.FieldErrors{Fields: map[string][]string{"password": {"Too short."}}}}
	if got := loginFailure(fields); got != "Too short." {
		t.Fatalf("loginFailure(fields) = %q", got)
	}
	if got := loginFailure(&apiclient.APIError{Status: 400}); got != "Please check your credentials." {
		t.Fatalf("loginFailure(empty) = %q", got)
	}
}

func TestParsePositiveLimit(t *testing.T) {
	if got, err := parsePositiveLimit([]string{"notifications"}, 2, 10); err != nil || got != 10 {
		t.Fatalf("default = (%d, %v), want (10, nil)", got, err)
	}
	if got, err := parsePositiveLimit([]string{"notifications", "all", "3"}, 2, 10); err != nil || got != 3 {
		t.Fatalf("valid = (%d, %v), want (3, nil)", got, err)
	}
	if _, err := parsePositiveLimit([]string{"notifications", "all", "0"}, 2, 10); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := parsePositiveLimit([]string{"notifications", "all", "x"}, 2, 10); err == nil {
		t.Fatalf("expected error for non-numeric limit")
	}
}

func TestDescribeClientError(t *testing.T) {
	err := &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Token expired"}
	if got := describeClientError(err); got != "please log in first (Token expired)" {
		t.Fatalf("describeClientError = %q", got)
	}
}
