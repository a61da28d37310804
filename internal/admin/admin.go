package admin

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/logging"
	"github.com/najibrashidabdi/newkaabe/internal/screen"
	"github.com/najibrashidabdi/newkaabe/internal/session"
)

const (
	DefaultInterval          = 15 * time.Second
	DefaultRevenuePerProUser = 10000
	// SeriesLength is how many revenue points the monitor keeps.
	SeriesLength = 30
)

var (
	ErrNotStaff       = errors.New("staff access required, log in with staff-login")
	ErrBadCredentials = errors.New("Invalid e-mail or password.")
	ErrBadCode        = errors.New("Wrong or expired code.")
	ErrMetrics        = errors.New("Failed to fetch metrics.")
)

type MeAPI interface {
	Me(ctx context.Context) (apiclient.Me, error)
}

// RequireStaff gates the admin screens. It is a convenience check for the
// terminal; the backend still enforces access on every request.
func RequireStaff(ctx context.Context, api MeAPI) (apiclient.Me, error) {
	me, err := api.Me(ctx)
	if err != nil {
		return apiclient.Me{}, errors.Wrap(ErrNotStaff, apiclient.UserMessage(err))
	}
	if !me.IsStaff {
		return me, ErrNotStaff
	}
	return me, nil
}

type LoginAPI interface {
	StaffLogin(ctx context.Context, creds apiclient.Credentials) (apiclient.StaffLogin, error)
	StaffVerify(ctx context.Context, email, code string) (apiclient.TokenPair, error)
}

// StaffLogin is the two-step staff sign in: credentials, then the emailed
// code when the backend asks for one.
type StaffLogin struct {
	API   LoginAPI
	Store session.Store

	email string
}

// Submit sends the credentials. It reports whether a code is now required;
// when it is not, the tokens are already saved.
func (l *StaffLogin) Submit(ctx context.Context, creds apiclient.Credentials) (otpRequired bool, err error) {
	res, err := l.API.StaffLogin(ctx, creds)
	if err != nil {
		return false, errors.Wrap(ErrBadCredentials, apiclient.UserMessage(err))
	}
	l.email = creds.Email
	if res.OTPRequired {
		return true, nil
	}
	return false, l.save(ctx, res.TokenPair)
}

func (l *StaffLogin) Verify(ctx context.Context, code string) error {
	if l.email == "" {
		return errors.New("submit staff credentials first")
	}
	pair, err := l.API.StaffVerify(ctx, l.email, code)
	if err != nil {
		return errors.Wrap(ErrBadCode, apiclient.UserMessage(err))
	}
	return l.save(ctx, pair)
}

func (l *StaffLogin) save(ctx context.Context, pair apiclient.TokenPair) error {
	return l.Store.SaveTokens(ctx, session.Tokens{Access: pair.Access, Refresh: pair.Refresh})
}

type MetricsAPI interface {
	AdminMetrics(ctx context.Context) (apiclient.Metrics, error)
}

type Point struct {
	At      time.Time
	Revenue int
}

type Snapshot struct {
	Metrics apiclient.Metrics
	Revenue int
	Series  []Point
	Err     error
}

// Monitor polls the admin metrics and keeps the revenue series.
type Monitor struct {
	API               MetricsAPI
	Interval          time.Duration
	RevenuePerProUser int
	OnUpdate          func(Snapshot)
	Log               logging.Logger
	Now               func() time.Time

	mu      sync.Mutex
	metrics apiclient.Metrics
	series  []Point
	err     error
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Monitor) revenuePer() int {
	if m.RevenuePerProUser > 0 {
		return m.RevenuePerProUser
	}
	return DefaultRevenuePerProUser
}

// Refresh fetches metrics once. A failure keeps the previous metrics and
// series and is reported on the snapshot.
func (m *Monitor) Refresh(ctx context.Context) Snapshot {
	metrics, err := m.API.AdminMetrics(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.err = errors.Wrap(ErrMetrics, apiclient.UserMessage(err))
		return m.snapshotLocked()
	}
	m.err = nil
	m.metrics = metrics
	m.series = append(m.series, Point{At: m.now(), Revenue: metrics.ProUsers * m.revenuePer()})
	if len(m.series) > SeriesLength {
		m.series = append([]Point(nil), m.series[len(m.series)-SeriesLength:]...)
	}
	return m.snapshotLocked()
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() Snapshot {
	return Snapshot{
		Metrics: m.metrics,
		Revenue: m.metrics.ProUsers * m.revenuePer(),
		Series:  append([]Point(nil), m.series...),
		Err:     m.err,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := m.Log
	if log == nil {
		log = logging.Nop
	}
	screen.Poller{
		Interval: interval,
		Fn: func(ctx context.Context) {
			snap := m.Refresh(ctx)
			if snap.Err != nil && ctx.Err() == nil {
				log.Warn("admin metrics refresh failed", "err", snap.Err)
			}
			if m.OnUpdate != nil && ctx.Err() == nil {
				m.OnUpdate(snap)
			}
		},
	}.Run(ctx)
}
