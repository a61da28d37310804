package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoAnswer = errors.New("pick an answer first")
	ErrFinished = errors.New("quiz already finished")
	ErrNotReady = errors.New("no question is displayed")
)

// Backend is the part of the API the quiz flow talks to. The attempt endpoint
// receives answers as well as the reset and finish signals.
type Backend interface {
	QuizStep(ctx context.Context, quizID string, index int) (Step, error)
	SubmitAttempt(ctx context.Context, attempt Attempt) error
}

type State int

const (
	Idle State = iota
	Loading
	Displaying
	Submitting
	Finishing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Displaying:
		return "displaying"
	case Submitting:
		return "submitting"
	case Finishing:
		return "finishing"
	case Done:
		return "done"
	}
	return "unknown"
}

// Outcome describes what a successful Next did.
type Outcome struct {
	Finished    bool
	ResultRoute string
}

// Flow sequences one attempt at a quiz: reset, then one step at a time,
// each answer submitted before the next step is fetched, then finish.
// Correctness is never computed here; the result comes from the backend.
// A Flow is not safe for concurrent use.
type Flow struct {
	backend   Backend
	subjectID string
	yearID    string
	quizID    string

	// Now is the clock used for per-question and per-quiz timings.
	Now func() time.Time

	state         State
	index         int
	total         int
	step          Step
	detail        Detail
	drafts        map[int]Answer
	submitted     map[int]string
	quizStart     time.Time
	questionStart time.Time
	elapsed       time.Duration
	encourage     bool
}

func NewFlow(backend Backend, subjectID, yearID, quizID string) *Flow {
	return &Flow{
		backend:   backend,
		subjectID: subjectID,
		yearID:    yearID,
		quizID:    quizID,
		Now:       time.Now,
		drafts:    make(map[int]Answer),
		submitted: make(map[int]string),
	}
}

// Enter discards any earlier in-progress attempt on the server and loads the
// first step. The reset is always sent before step 0 is requested.
func (f *Flow) Enter(ctx context.Context) error {
	if f.state != Idle {
		return errors.Errorf("quiz flow already entered (%s)", f.state)
	}

	f.state = Loading
	if err := f.backend.SubmitAttempt(ctx, ResetAttempt(f.quizID)); err != nil {
		f.state = Idle
		return errors.Wrap(err, "reset attempt")
	}

	f.drafts = make(map[int]Answer)
	f.submitted = make(map[int]string)
	f.quizStart = f.Now()
	if err := f.load(ctx, 0); err != nil {
		f.state = Idle
		return err
	}
	return nil
}

func (f *Flow) load(ctx context.Context, index int) error {
	f.state = Loading
	step, err := f.backend.QuizStep(ctx, f.quizID, index)
	if err != nil {
		return err
	}
	detail, err := step.DecodeDetail()
	if err != nil {
		return err
	}

	f.step = step
	f.detail = detail
	f.total = step.Total
	f.index = index
	f.questionStart = f.Now()
	f.encourage = index > 0 && index == f.total/2
	f.state = Displaying
	return nil
}

// SetAnswer records the draft for the displayed step. A nil or empty answer
// clears it.
func (f *Flow) SetAnswer(answer Answer) error {
	if f.state != Displaying {
		return ErrNotReady
	}
	if answer == nil || answer.Empty() {
		delete(f.drafts, f.index)
		return nil
	}
	f.drafts[f.index] = answer
	return nil
}

func (f *Flow) Draft() Answer {
	return f.drafts[f.index]
}

// Submitted reports whether the server holds an answer for the displayed step.
func (f *Flow) Submitted() bool {
	_, ok := f.submitted[f.index]
	return ok
}

func (f *Flow) CanAdvance() bool {
	if f.state != Displaying {
		return false
	}
	answer, ok := f.drafts[f.index]
	return ok && answer != nil && !answer.Empty()
}

// Next submits the current answer and advances. On the last step it sends the
// finish signal instead of fetching another step. Any failure leaves the
// displayed step in place so the caller can retry. An answer the server
// already accepted for this step is not sent again.
func (f *Flow) Next(ctx context.Context) (Outcome, error) {
	switch f.state {
	case Done:
		return Outcome{}, ErrFinished
	case Displaying:
	default:
		return Outcome{}, ErrNotReady
	}
	if !f.CanAdvance() {
		return Outcome{}, ErrNoAnswer
	}

	encoded, err := f.drafts[f.index].Encode()
	if err != nil {
		return Outcome{}, err
	}

	f.state = Submitting
	if prev, ok := f.submitted[f.index]; !ok || prev != encoded {
		secs := int(f.Now().Sub(f.questionStart) / time.Second)
		attempt := AnswerAttempt(f.step.Question.ID, f.step.QuestionType, encoded, secs)
		if err := f.backend.SubmitAttempt(ctx, attempt); err != nil {
			f.state = Displaying
			return Outcome{}, errors.Wrap(err, "submit answer")
		}
		f.submitted[f.index] = encoded
	}

	if f.index < f.total-1 {
		if err := f.load(ctx, f.index+1); err != nil {
			f.state = Displaying
			return Outcome{}, errors.Wrap(err, "load next question")
		}
		return Outcome{}, nil
	}

	f.state = Finishing
	f.elapsed = f.Now().Sub(f.quizStart)
	if err := f.backend.SubmitAttempt(ctx, FinishAttempt(f.quizID, int(f.elapsed/time.Second))); err != nil {
		f.state = Displaying
		return Outcome{}, errors.Wrap(err, "finish quiz")
	}

	f.state = Done
	return Outcome{
		Finished:    true,
		ResultRoute: ResultRoute(f.subjectID, f.yearID, f.quizID),
	}, nil
}

func (f *Flow) State() State   { return f.state }
func (f *Flow) Index() int     { return f.index }
func (f *Flow) Total() int     { return f.total }
func (f *Flow) Step() Step     { return f.step }
func (f *Flow) Detail() Detail { return f.detail }
func (f *Flow) QuizID() string { return f.quizID }

// IsLast reports whether the displayed step is the final one.
func (f *Flow) IsLast() bool {
	return f.total > 0 && f.index == f.total-1
}

// Encouraging is true while the displayed step is the halfway point.
func (f *Flow) Encouraging() bool {
	return f.encourage
}

// Progress is the percentage of steps reached, counting the displayed one.
func (f *Flow) Progress() float64 {
	if f.total == 0 {
		return 0
	}
	return float64(f.index+1) / float64(f.total) * 100
}

// Elapsed is the quiz clock. It stops once the finish signal is sent.
func (f *Flow) Elapsed() time.Duration {
	if f.state == Done {
		return f.elapsed
	}
	if f.quizStart.IsZero() {
		return 0
	}
	return f.Now().Sub(f.quizStart)
}
