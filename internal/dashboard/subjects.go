package dashboard

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
)

type ContentAPI interface {
	SubjectMeta(ctx context.Context, subjectID string) (apiclient.SubjectMeta, error)
	SubjectYears(ctx context.Context, subjectID string) ([]apiclient.YearItem, error)
	YearQuizzes(ctx context.Context, subjectID, yearID string) ([]apiclient.QuizItem, error)
	YearMeta(ctx context.Context, subjectID, yearID string) (apiclient.YearMeta, error)
}

type Subject struct {
	Meta  apiclient.SubjectMeta
	Years []apiclient.YearItem
}

// LoadSubject fetches subject metadata and its years in parallel.
func LoadSubject(ctx context.Context, api ContentAPI, subjectID string) (Subject, error) {
	var subject Subject
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta, err := api.SubjectMeta(gctx, subjectID)
		subject.Meta = meta
		return err
	})
	g.Go(func() error {
		years, err := api.SubjectYears(gctx, subjectID)
		subject.Years = years
		return err
	})
	if err := g.Wait(); err != nil {
		return Subject{}, err
	}
	if subject.Meta.Name == "" {
		subject.Meta.Name = "Subject " + subjectID
	}
	return subject, nil
}

type Year struct {
	SubjectName string
	YearLabel   string
	Quizzes     []apiclient.QuizItem
}

// LoadYear fetches the quizzes of a year. Missing subject or year metadata
// falls back to generic labels instead of failing the screen.
func LoadYear(ctx context.Context, api ContentAPI, subjectID, yearID string) (Year, error) {
	quizzes, err := api.YearQuizzes(ctx, subjectID, yearID)
	if err != nil {
		return Year{}, err
	}
	year := Year{Quizzes: quizzes}

	subject, subjectErr := api.SubjectMeta(ctx, subjectID)
	var meta apiclient.YearMeta
	var yearErr error
	if subjectErr == nil {
		meta, yearErr = api.YearMeta(ctx, subjectID, yearID)
	}
	if subjectErr != nil || yearErr != nil {
		year.SubjectName = "Subject " + subjectID
		year.YearLabel = "Year " + yearID
		return year, nil
	}
	year.SubjectName = subject.Name
	year.YearLabel = strconv.Itoa(meta.Year)
	return year, nil
}

// CurrentQuiz is the index of the first quiz that is neither completed nor
// locked, or -1.
func CurrentQuiz(quizzes []apiclient.QuizItem) int {
	for i, q := range quizzes {
		if !q.Completed && !q.Locked {
			return i
		}
	}
	return -1
}

// QuizID is the id to play a quiz item with. Items without an id are
// addressed by index.
func QuizID(q apiclient.QuizItem) string {
	if q.ID != 0 {
		return strconv.Itoa(q.ID)
	}
	return fmt.Sprint(q.Index)
}
