// Package mockapi is an in-memory stand-in for the Kaabe backend. It serves
// the same routes the client calls, with seeded subjects, quizzes and
// accounts, so the client can be exercised without the real service.
package mockapi

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/najibrashidabdi/newkaabe/internal/logging"
)

// Publisher is told when a user's notifications change.
type Publisher interface {
	Publish(ctx context.Context, userID int, payload string) error
}

type Options struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
	Log        logging.Logger
	Publisher  Publisher
	Now        func() time.Time

	// OnCode receives every code the backend would e-mail: kind is
	// "verify", "reset" or "staff".
	OnCode func(kind, email, code string)
}

type Server struct {
	opts   Options
	log    logging.Logger
	tokens tokenIssuer

	mu sync.Mutex
	st *state
}

func NewServer(opts Options) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Log == nil {
		opts.Log = logging.Nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts: opts,
		log:  opts.Log,
		tokens: tokenIssuer{
			secret:     []byte(opts.JWTSecret),
			accessTTL:  opts.AccessTTL,
			refreshTTL: opts.RefreshTTL,
			now:        opts.Now,
		},
		st: &state{
			users:       make(map[int]*user),
			attempts:    make(map[int]map[int]*attempt),
			activation:  make(map[string]bool),
			verifyCodes: make(map[string]string),
			resetCodes:  make(map[string]string),
			otpCodes:    make(map[string]string),
			revoked:     make(map[string]bool),
		},
	}

	var hashErr error
	hash := func(password string) []byte {
		h, err := s.hashPassword(password)
		if err != nil && hashErr == nil {
			hashErr = err
		}
		return h
	}
	seedContent(s.st)
	seedUsers(s.st, hash, opts.Now())
	if hashErr != nil {
		return nil, hashErr
	}
	return s, nil
}

func (s *Server) hashPassword(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	return h, nil
}

// Handler returns the routed, instrumented API plus /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, instrument(route, s.log, h))
	}

	handle("POST /api/auth/register/{$}", "register", s.handleRegister)
	handle("POST /api/auth/verify/{$}", "verify", s.handleVerify)
	handle("POST /api/auth/resend-verification/{$}", "resend_verification", s.handleResendVerification)
	handle("POST /api/auth/login/{$}", "login", s.handleLogin)
	handle("POST /api/auth/staff-login/{$}", "staff_login", s.handleStaffLogin)
	handle("POST /api/auth/staff-login/verify/{$}", "staff_verify", s.handleStaffVerify)
	handle("POST /api/auth/password-reset/{$}", "password_reset", s.handlePasswordReset)
	handle("POST /api/auth/password-reset/confirm/{$}", "password_reset_confirm", s.handlePasswordResetConfirm)
	handle("POST /api/auth/logout/{$}", "logout", s.handleLogout)
	handle("POST /api/auth/feedback/{$}", "feedback", s.handleFeedback)
	handle("GET /api/auth/me/{$}", "me", s.authed(s.handleMe))
	handle("POST /api/auth/complete-onboarding/{$}", "complete_onboarding", s.authed(s.handleCompleteOnboarding))
	handle("POST /api/auth/upload-profile-picture/{$}", "upload_profile_picture", s.authed(s.handleUploadProfilePicture))
	handle("GET /api/auth/admin/metrics/{$}", "admin_metrics", s.authed(s.handleAdminMetrics))
	handle("POST /api/change-password/{$}", "change_password", s.authed(s.handleChangePassword))

	handle("GET /api/dashboard/{$}", "dashboard", s.authed(s.handleDashboard))
	handle("GET /api/subjects/{subjectId}/meta/{$}", "subject_meta", s.authed(s.handleSubjectMeta))
	handle("GET /api/subjects/{subjectId}/years/{$}", "subject_years", s.authed(s.handleSubjectYears))
	handle("GET /api/subjects/{subjectId}/years/{yearId}/meta/{$}", "year_meta", s.authed(s.handleYearMeta))
	handle("GET /api/subjects/{subjectId}/years/{yearId}/quizzes/{$}", "year_quizzes", s.authed(s.handleYearQuizzes))
	handle("GET /api/quiz/{quizId}/{index}/{$}", "quiz_step", s.authed(s.handleQuizStep))
	handle("GET /api/quiz/{quizId}/result/{$}", "quiz_result", s.authed(s.handleQuizResult))
	handle("POST /api/quiz/attempt/{$}", "quiz_attempt", s.authed(s.handleAttempt))

	handle("GET /api/notifications/{$}", "notifications", s.authed(s.handleNotifications))
	handle("POST /api/notifications/{id}/mark_as_read/{$}", "notification_read", s.authed(s.handleMarkRead))
	handle("POST /api/notifications/mark_all_as_read/{$}", "notifications_read_all", s.authed(s.handleMarkAllRead))

	handle("POST /api/activate/{$}", "activate", s.authed(s.handleActivate))
	handle("GET /api/profile/{$}", "profile", s.authed(s.handleProfile))
	handle("PATCH /api/profile/{$}", "profile_update", s.authed(s.handleUpdateProfile))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	return mux
}

// IssueActivationCode mints a new single-use Pro code.
func (s *Server) IssueActivationCode() string {
	code := "KAABE-" + uuid.New().String()[:8]
	s.mu.Lock()
	s.st.activation[code] = false
	s.mu.Unlock()
	s.log.Info("activation code issued", "code", code)
	return code
}

// Notify adds a notification for userID and publishes the change.
func (s *Server) Notify(ctx context.Context, userID int, kind, title, message string) {
	s.mu.Lock()
	s.st.addNotification(userID, kind, title, message, s.opts.Now())
	s.mu.Unlock()
	s.publish(ctx, userID)
}

func (s *Server) publish(ctx context.Context, userID int) {
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, userID, "changed"); err != nil {
		s.log.Warn("publish notification change failed", "user_id", userID, "err", err)
	}
}

// sendCode stands in for the e-mail the backend would send.
func (s *Server) sendCode(kind, email string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	s.log.Info("code sent", "kind", kind, "email", email, "code", code)
	if s.opts.OnCode != nil {
		s.opts.OnCode(kind, email, code)
	}
	return code
}

// authed resolves the bearer token to a user before calling next.
func (s *Server) authed(next func(w http.ResponseWriter, r *http.Request, u *user)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		claims, err := s.tokens.parse(raw, tokenAccess)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, errBadToken.Error())
			return
		}

		s.mu.Lock()
		u := s.st.users[claims.UserID]
		s.mu.Unlock()
		if u == nil {
			writeDetail(w, http.StatusUnauthorized, "User not found.")
			return
		}
		next(w, r, u)
	}
}
