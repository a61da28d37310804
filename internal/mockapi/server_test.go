package mockapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/quiz"
	"github.com/najibrashidabdi/newkaabe/internal/session"
)

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) put(kind, email, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[kind+":"+email] = code
}

func (b *codeBox) get(kind, email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[kind+":"+email]
}

type recordingPublisher struct {
	mu    sync.Mutex
	users []int
}

func (p *recordingPublisher) Publish(_ context.Context, userID int, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

type harness struct {
	srv   *Server
	http  *httptest.Server
	codes *codeBox
	pub   *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{codes: &codeBox{codes: make(map[string]string)}, pub: &recordingPublisher{}}
	srv, err := NewServer(Options{
		JWTSecret:  "test-secret",
		BcryptCost: bcrypt.MinCost,
		OnCode:     h.codes.put,
		Publisher:  h.pub,
	})
	require.NoError(t, err)
	h.srv = srv
	h.http = httptest.NewServer(srv.Handler())
	t.Cleanup(h.http.Close)
	return h
}

// client returns an API client with its own session store.
func (h *harness) client() (*apiclient.Client, session.Store) {
	store := session.NewMemoryStore()
	return apiclient.New(h.http.URL, h.http.Client(), session.TokenSource{Store: store}, nil), store
}

func (h *harness) login(t *testing.T, email, password string) *apiclient.Client {
	t.Helper()
	c, store := h.client()
	tokens, err := c.Login(context.Background(), apiclient.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, store.SaveTokens(context.Background(), session.Tokens{Access: tokens.Access, Refresh: tokens.Refresh}))
	return c
}

func TestNewServerRequiresSecret(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatalf("expected error without jwt secret")
	}
}

func TestLoginAndMe(t *testing.T) {
	h := newHarness(t)
	c := h.login(t, StudentEmail, StudentPassword)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StudentEmail, me.Email)
	assert.False(t, me.IsStaff)
	assert.True(t, me.IsVerified)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newHarness(t)
	c, _ := h.client()

	_, err := c.Login(context.Background(), apiclient.Credentials{Email: StudentEmail, Password: "wrong-password"})
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
	assert.True(t, apiclient.IsUnauthorized(err))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)
	c, _ := h.client()

	_, err := c.Dashboard(context.Background())
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))

	bad := apiclient.New(h.http.URL, h.http.Client(), apiclient.StaticToken("not-a-jwt"), nil)
	_, err = bad.Me(context.Background())
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
}

func TestRegisterVerifyFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, store := h.client()
	email := "faisal@example.com"

	err := c.Register(ctx, apiclient.Registration{
		FullName:    "Faisal Omar",
		SchoolName:  "Mogadishu Secondary",
		Email:       email,
		PhoneNumber: "+252615550000",
		Password:    "Secret123",
	})
	require.NoError(t, err)

	_, err = c.Login(ctx, apiclient.Credentials{Email: email, Password: "Secret123"})
	assert.True(t, apiclient.IsStatus(err, http.StatusForbidden), "unverified login: %v", err)

	_, err = c.Verify(ctx, email, "000000x")
	require.Error(t, err)
	assert.Equal(t, "Invalid verification code.", apiclient.UserMessage(err))

	code := h.codes.get("verify", email)
	require.NotEmpty(t, code)
	tokens, err := c.Verify(ctx, email, code)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.Access)

	claims, err := session.Inspect(tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.TokenType)

	_, err = c.Verify(ctx, email, code)
	assert.Contains(t, strings.ToLower(apiclient.UserMessage(err)), "already verified")

	_, err = c.Verify(ctx, "nobody@example.com", code)
	assert.True(t, apiclient.IsStatus(err, http.StatusNotFound))

	require.NoError(t, store.SaveTokens(ctx, session.Tokens{Access: tokens.Access, Refresh: tokens.Refresh}))
	items, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "welcome", items[0].Type)
	assert.Equal(t, 1, h.pub.count())
}

func TestRegisterRejectsDuplicateAndInvalid(t *testing.T) {
	h := newHarness(t)
	c, _ := h.client()

	err := c.Register(context.Background(), apiclient.Registration{
		FullName: "Amina", SchoolName: "Hiiraan", Email: StudentEmail, PhoneNumber: "1", Password: "Secret123",
	})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.FieldErrors()["email"], "already exists")

	err = c.Register(context.Background(), apiclient.Registration{Email: "x@example.com", Password: "short"})
	require.ErrorAs(t, err, &apiErr)
	fields := apiErr.FieldErrors()
	assert.Equal(t, "This field is required.", fields["full_name"])
	assert.Contains(t, fields["password"], "at least 8")
}

func TestPasswordResetAndChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _ := h.client()

	require.NoError(t, c.RequestPasswordReset(ctx, StudentEmail))
	require.NoError(t, c.RequestPasswordReset(ctx, "nobody@example.com"))

	err := c.ConfirmPasswordReset(ctx, StudentEmail, "bad", "NewSecret1")
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest))

	code := h.codes.get("reset", StudentEmail)
	require.NoError(t, c.ConfirmPasswordReset(ctx, StudentEmail, code, "NewSecret1"))

	authed := h.login(t, StudentEmail, "NewSecret1")
	err = authed.ChangePassword(ctx, "wrong", "Another123")
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Wrong password.", apiErr.FieldErrors()["old_password"])

	require.NoError(t, authed.ChangePassword(ctx, "NewSecret1", "Another123"))
	h.login(t, StudentEmail, "Another123")
}

func TestStaffLoginWithOTP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _ := h.client()

	res, err := c.StaffLogin(ctx, apiclient.Credentials{Email: StaffEmail, Password: StaffPassword})
	require.NoError(t, err)
	assert.True(t, res.OTPRequired)
	assert.Empty(t, res.Access)

	_, err = c.StaffVerify(ctx, StaffEmail, "nope")
	assert.Equal(t, "Wrong or expired code.", apiclient.UserMessage(err))

	tokens, err := c.StaffVerify(ctx, StaffEmail, h.codes.get("staff", StaffEmail))
	require.NoError(t, err)
	claims, err := session.Inspect(tokens.Access)
	require.NoError(t, err)
	assert.True(t, claims.IsStaff)

	_, err = c.StaffLogin(ctx, apiclient.Credentials{Email: StudentEmail, Password: StudentPassword})
	assert.True(t, apiclient.IsStatus(err, http.StatusForbidden))
}

func TestAdminMetrics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	student := h.login(t, StudentEmail, StudentPassword)
	_, err := student.AdminMetrics(ctx)
	assert.True(t, apiclient.IsStatus(err, http.StatusForbidden))

	c, store := h.client()
	_, err = c.StaffLogin(ctx, apiclient.Credentials{Email: StaffEmail, Password: StaffPassword})
	require.NoError(t, err)
	tokens, err := c.StaffVerify(ctx, StaffEmail, h.codes.get("staff", StaffEmail))
	require.NoError(t, err)
	require.NoError(t, store.SaveTokens(ctx, session.Tokens{Access: tokens.Access, Refresh: tokens.Refresh}))

	metrics, err := c.AdminMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.TotalUsers)
	assert.Equal(t, 1, metrics.ProUsers)
	assert.Equal(t, 50.0, metrics.DailyGrowth)
}

func TestDashboardAndContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	dash, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Amina Warsame", dash.Name)
	assert.False(t, dash.IsPro)
	assert.Nil(t, dash.ProExpiresIn)
	assert.Equal(t, 12, dash.TotalQuestions)
	require.Len(t, dash.Subjects, 3)
	require.NotEmpty(t, dash.Leaderboard)
	assert.Equal(t, "Hodan Ali", dash.Leaderboard[0].Name)
	for _, entry := range dash.Leaderboard {
		assert.NotEqual(t, "Kaabe Admin", entry.Name)
	}

	meta, err := c.SubjectMeta(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Biology", meta.Name)

	years, err := c.SubjectYears(ctx, "1")
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.False(t, years[0].Locked)
	assert.True(t, years[1].Locked)
	assert.Equal(t, 2, years[0].QuizCount)

	quizzes, err := c.YearQuizzes(ctx, "1", "10")
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.Equal(t, 4, quizzes[0].TotalQuestions)

	yearMeta, err := c.YearMeta(ctx, "1", "10")
	require.NoError(t, err)
	assert.Equal(t, 2019, yearMeta.Year)

	_, err = c.SubjectMeta(ctx, "99")
	assert.True(t, apiclient.IsStatus(err, http.StatusNotFound))
	_, err = c.YearQuizzes(ctx, "2", "10")
	assert.True(t, apiclient.IsStatus(err, http.StatusNotFound))
}

func playAll(t *testing.T, flow *quiz.Flow, inputs []string) quiz.Outcome {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, flow.Enter(ctx))
	var outcome quiz.Outcome
	for i, input := range inputs {
		answer, err := quiz.ParseInput(flow.Step().QuestionType, flow.Detail(), input)
		require.NoError(t, err, "step %d", i)
		require.NoError(t, flow.SetAnswer(answer))
		outcome, err = flow.Next(ctx)
		require.NoError(t, err, "step %d", i)
	}
	return outcome
}

func TestQuizFlowAgainstServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	flow := quiz.NewFlow(c, "1", "10", "100")
	outcome := playAll(t, flow, []string{
		"B",
		"Chlorophyll",
		"A=Aorta|B=left ventricle",
		"osmosis",
	})
	require.True(t, outcome.Finished)
	assert.Equal(t, "/subjects/1/years/10/quiz/100/result", outcome.ResultRoute)

	result, err := c.QuizResult(ctx, "100")
	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	assert.Equal(t, 66.67, result.Score)
	assert.True(t, result.Items[0].IsCorrect)
	assert.Equal(t, []string{"Nucleus", "Mitochondria", "Ribosome", "Vacuole"}, result.Items[0].Options)
	assert.True(t, result.Items[2].IsCorrect)
	assert.False(t, result.Items[3].IsCorrect)
	assert.Equal(t, "transpiration", result.Items[3].CorrectAnswer)

	quizzes, err := c.YearQuizzes(ctx, "1", "10")
	require.NoError(t, err)
	assert.True(t, quizzes[0].Completed)

	dash, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, dash.CompletedQuestions)
	assert.Equal(t, 75.0, dash.Accuracy)
}

func TestQuizFlowPairsAndWords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	playAll(t, quiz.NewFlow(c, "2", "20", "200"), []string{"Na", "melting boiling"})
	result, err := c.QuizResult(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Score)

	playAll(t, quiz.NewFlow(c, "3", "30", "300"), []string{"quick", "1 3", "My school is big."})
	result, err = c.QuizResult(ctx, "300")
	require.NoError(t, err)
	assert.False(t, result.Items[0].IsCorrect)
	assert.True(t, result.Items[1].IsCorrect)
	assert.True(t, result.Items[2].IsCorrect)
}

func TestQuizResetClearsAnswers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	playAll(t, quiz.NewFlow(c, "1", "10", "101"), []string{"C", "B"})
	require.NoError(t, c.SubmitAttempt(ctx, quiz.ResetAttempt("101")))

	result, err := c.QuizResult(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	assert.Nil(t, result.Items[0].UserAnswer)
}

func TestProOnlyQuizNeedsActivation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	flow := quiz.NewFlow(c, "1", "11", "110")
	err := flow.Enter(ctx)
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, http.StatusPaymentRequired))
	assert.Contains(t, apiclient.UserMessage(err), "limit")

	err = c.Activate(ctx, "NOT-A-CODE")
	assert.Equal(t, "Invalid or expired activation code.", apiclient.UserMessage(err))

	require.NoError(t, c.Activate(ctx, DemoCode))
	err = c.Activate(ctx, DemoCode)
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest), "reused code: %v", err)

	dash, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, dash.IsPro)
	require.NotNil(t, dash.ProExpiresIn)
	assert.Equal(t, 30, *dash.ProExpiresIn)

	require.NoError(t, quiz.NewFlow(c, "1", "11", "110").Enter(ctx))

	code := h.srv.IssueActivationCode()
	require.NoError(t, c.Activate(ctx, code))
	dash, err = c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, *dash.ProExpiresIn)
}

func TestNotificationsReadState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	items, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "motivational", items[0].Type, "newest first")

	require.NoError(t, c.MarkNotificationRead(ctx, items[0].ID))
	err = c.MarkNotificationRead(ctx, apiclient.ID("999"))
	assert.True(t, apiclient.IsStatus(err, http.StatusNotFound))

	assert.Equal(t, 1, h.srv.RemindAll(ctx))
	items, err = c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "inactivity", items[0].Type)

	require.NoError(t, c.MarkAllNotificationsRead(ctx))
	items, err = c.Notifications(ctx)
	require.NoError(t, err)
	for _, n := range items {
		assert.True(t, n.IsRead)
	}
}

func TestProfileAndAvatar(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, StudentEmail, StudentPassword)

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile.AvatarURL)

	require.NoError(t, c.UpdateProfile(ctx, apiclient.ProfileUpdate{FullName: "Amina W.", SchoolName: "Banadir High"}))
	err = c.UpdateProfile(ctx, apiclient.ProfileUpdate{FullName: "A", SchoolName: "Banadir High"})
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest))

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	require.NoError(t, c.UploadProfilePicture(ctx, "me.png", "image/png", bytes.NewReader(png)))
	err = c.UploadProfilePicture(ctx, "notes.txt", "text/plain", strings.NewReader("hello"))
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest))

	profile, err = c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Amina W.", profile.FullName)
	require.NotNil(t, profile.AvatarURL)
	assert.True(t, strings.HasSuffix(*profile.AvatarURL, ".png"))

	require.NoError(t, c.CompleteOnboarding(ctx))
}

func TestFeedbackAndLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, store := h.client()

	require.NoError(t, c.SendFeedback(ctx, apiclient.Feedback{Name: "Amina", Email: "amina@example.com", Message: "Mahadsanid"}))

	tokens, err := c.Login(ctx, apiclient.Credentials{Email: StudentEmail, Password: StudentPassword})
	require.NoError(t, err)
	require.NoError(t, store.SaveTokens(ctx, session.Tokens{Access: tokens.Access, Refresh: tokens.Refresh}))
	require.NoError(t, c.Logout(ctx, tokens.Refresh))

	err = c.Logout(ctx, tokens.Access)
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized), "access token is not a refresh token")
}

func TestExpiredTokenRejected(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	var clock atomic.Int64
	clock.Store(now.UnixNano())
	srv, err := NewServer(Options{
		JWTSecret:  "test-secret",
		BcryptCost: bcrypt.MinCost,
		AccessTTL:  time.Minute,
		Now:        func() time.Time { return time.Unix(0, clock.Load()).UTC() },
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	store := session.NewMemoryStore()
	c := apiclient.New(ts.URL, ts.Client(), session.TokenSource{Store: store}, nil)
	tokens, err := c.Login(context.Background(), apiclient.Credentials{Email: StudentEmail, Password: StudentPassword})
	require.NoError(t, err)
	require.NoError(t, store.SaveTokens(context.Background(), session.Tokens{Access: tokens.Access}))

	clock.Store(now.Add(2 * time.Minute).UnixNano())
	_, err = c.Me(context.Background())
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.login(t, StudentEmail, StudentPassword)

	res, err := h.http.Client().Get(h.http.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	var body bytes.Buffer
	_, _ = body.ReadFrom(res.Body)
	assert.Contains(t, body.String(), "kaabe_mockapi_requests_total")
}
