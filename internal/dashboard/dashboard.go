package dashboard

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
)

var (
	// ErrLoginRequired means the token was rejected; the user has to log in.
	ErrLoginRequired = errors.New("please log in again")
	// ErrUpgradeRequired means the free plan limit was reached.
	ErrUpgradeRequired = errors.New("free plan limit reached, upgrade to Pro to continue")
	ErrUnavailable     = errors.New("Unable to load dashboard.")
)

// minutesPerQuestion approximates study time from completed questions.
const minutesPerQuestion = 2.5

type API interface {
	Dashboard(ctx context.Context) (apiclient.Dashboard, error)
	Me(ctx context.Context) (apiclient.Me, error)
}

type Data struct {
	Dashboard apiclient.Dashboard
	Me        apiclient.Me
}

// Load fetches the dashboard and the current user in parallel.
func Load(ctx context.Context, api API) (Data, error) {
	var data Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash, err := api.Dashboard(gctx)
		if err != nil {
			return err
		}
		data.Dashboard = dash
		return nil
	})
	g.Go(func() error {
		me, err := api.Me(gctx)
		if err != nil {
			return err
		}
		data.Me = me
		return nil
	})
	if err := g.Wait(); err != nil {
		return Data{}, Classify(err)
	}
	return data, nil
}

// Classify maps a load failure to what the screen does next: upgrade
// prompt, back to login, or a generic message.
func Classify(err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if strings.Contains(apiErr.Detail(), "limit") {
			return errors.Wrap(ErrUpgradeRequired, apiErr.Detail())
		}
		if apiclient.IsUnauthorized(err) || strings.Contains(apiErr.Message, "Unauthorized") {
			return ErrLoginRequired
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Wrap(ErrUnavailable, apiclient.UserMessage(err))
}

// CompletionPercent is completed over total questions, 0 when there are none.
func CompletionPercent(d apiclient.Dashboard) float64 {
	if d.TotalQuestions <= 0 {
		return 0
	}
	return float64(d.CompletedQuestions) / float64(d.TotalQuestions) * 100
}

type StudyTime struct {
	Subject string
	Minutes float64
}

func StudyTimes(subjects []apiclient.SubjectStat) []StudyTime {
	out := make([]StudyTime, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, StudyTime{Subject: s.Name, Minutes: float64(s.Completed) * minutesPerQuestion})
	}
	return out
}

// ProDaysLeft reports the days left on a Pro plan, if the backend sent them.
func ProDaysLeft(d apiclient.Dashboard) (int, bool) {
	if !d.IsPro || d.ProExpiresIn == nil {
		return 0, false
	}
	return *d.ProExpiresIn, true
}
