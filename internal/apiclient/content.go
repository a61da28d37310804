package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/najibrashidabdi/newkaabe/internal/quiz"
)

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var dash Dashboard
	if err := c.get(ctx, "/api/dashboard/", &dash); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (c *Client) SubjectMeta(ctx context.Context, subjectID string) (SubjectMeta, error) {
	var meta SubjectMeta
	if err := c.get(ctx, "/api/subjects/"+url.PathEscape(subjectID)+"/meta/", &meta); err != nil {
		return SubjectMeta{}, err
	}
	return meta, nil
}

func (c *Client) SubjectYears(ctx context.Context, subjectID string) ([]YearItem, error) {
	var years []YearItem
	if err := c.get(ctx, "/api/subjects/"+url.PathEscape(subjectID)+"/years/", &years); err != nil {
		return nil, err
	}
	return years, nil
}

func (c *Client) YearQuizzes(ctx context.Context, subjectID, yearID string) ([]QuizItem, error) {
	var quizzes []QuizItem
	path := fmt.Sprintf("/api/subjects/%s/years/%s/quizzes/", url.PathEscape(subjectID), url.PathEscape(yearID))
	if err := c.get(ctx, path, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (c *Client) YearMeta(ctx context.Context, subjectID, yearID string) (YearMeta, error) {
	var meta YearMeta
	path := fmt.Sprintf("/api/subjects/%s/years/%s/meta/", url.PathEscape(subjectID), url.PathEscape(yearID))
	if err := c.get(ctx, path, &meta); err != nil {
		return YearMeta{}, err
	}
	return meta, nil
}

// QuizStep fetches one question of a quiz by zero-based index.
func (c *Client) QuizStep(ctx context.Context, quizID string, index int) (quiz.Step, error) {
	var step quiz.Step
	path := fmt.Sprintf("/api/quiz/%s/%d/", url.PathEscape(quizID), index)
	if err := c.get(ctx, path, &step); err != nil {
		return quiz.Step{}, err
	}
	return step, nil
}

// SubmitAttempt posts an answer, a reset or a finish signal.
func (c *Client) SubmitAttempt(ctx context.Context, attempt quiz.Attempt) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/quiz/attempt/", Body: attempt}, nil)
}

func (c *Client) QuizResult(ctx context.Context, quizID string) (quiz.Result, error) {
	var result quiz.Result
	if err := c.get(ctx, "/api/quiz/"+url.PathEscape(quizID)+"/result/", &result); err != nil {
		return quiz.Result{}, err
	}
	return result, nil
}

var _ quiz.Backend = (*Client)(nil)
