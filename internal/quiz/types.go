package quiz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	FillGaps       QuestionType = "FILL_GAPS"
	Structured     QuestionType = "STRUCTURED"
	LabelDrawing   QuestionType = "LABEL_DRAWING"
	Synonym        QuestionType = "SYNONYM"
	WordList       QuestionType = "WORD_LIST"
	MatchWords     QuestionType = "MATCH_WORDS"
	Composition    QuestionType = "COMPOSITION"
)

// Sentinel question ids sent over the attempt endpoint.
const (
	FinishQuestionID = -1
	ResetQuestionID  = -2
)

func (t QuestionType) Known() bool {
	switch t {
	case MultipleChoice, FillGaps, Structured, LabelDrawing, Synonym, WordList, MatchWords, Composition:
		return true
	}
	return false
}

func (t QuestionType) String() string {
	return string(t)
}

type Question struct {
	ID     int     `json:"id"`
	Text   string  `json:"text"`
	Points float64 `json:"points"`
}

// Step is one question of a quiz as served by GET /api/quiz/:quizId/:index/.
// QuestionType decides the shape of Detail.
type Step struct {
	Total        int             `json:"total"`
	QuestionType QuestionType    `json:"question_type"`
	Question     Question        `json:"question"`
	Detail       json.RawMessage `json:"detail"`
}

type Option struct {
	Label string `json:"option_label"`
	Text  string `json:"option_text"`
}

type GapAnswer struct {
	GapIndex int `json:"gap_index"`
}

type Label struct {
	Label  string `json:"label"`
	Answer string `json:"answer,omitempty"`
}

type Word struct {
	Word string `json:"word"`
}

type GapIdentifier struct {
	GapIdentifier string `json:"gap_identifier"`
}

type Pair struct {
	Left  string `json:"left_item"`
	Right string `json:"right_item"`
}

// Detail is the union of every type-specific payload. Only the fields that
// belong to the step's question type are populated.
type Detail struct {
	Options []Option

	QuestionWithGaps string
	GapAnswers       []GapAnswer

	Image  string
	Labels []Label

	TextWithGaps string
	Words        []Word
	Gaps         []GapIdentifier

	Pairs []Pair
}

// DecodeDetail parses Detail according to the step's question type.
func (s Step) DecodeDetail() (Detail, error) {
	var d Detail
	if len(s.Detail) == 0 || string(s.Detail) == "null" {
		return d, nil
	}

	switch s.QuestionType {
	case MultipleChoice:
		var raw struct {
			Options []Option `json:"options"`
		}
		if err := json.Unmarshal(s.Detail, &raw); err != nil {
			return d, errors.Wrap(err, "decode multiple choice detail")
		}
		d.Options = raw.Options
	case FillGaps:
		var raw struct {
			QuestionWithGaps string      `json:"question_with_gaps"`
			Answers          []GapAnswer `json:"answers"`
		}
		if err := json.Unmarshal(s.Detail, &raw); err != nil {
			return d, errors.Wrap(err, "decode fill gaps detail")
		}
		d.QuestionWithGaps = raw.QuestionWithGaps
		d.GapAnswers = raw.Answers
	case LabelDrawing:
		var raw struct {
			Image  string  `json:"image"`
			Labels []Label `json:"labels"`
		}
		if err := json.Unmarshal(s.Detail, &raw); err != nil {
			return d, errors.Wrap(err, "decode label drawing detail")
		}
		d.Image = raw.Image
		d.Labels = raw.Labels
	case WordList:
		var raw struct {
			TextWithGaps string          `json:"text_with_gaps"`
			Options      []Word          `json:"options"`
			Answers      []GapIdentifier `json:"answers"`
		}
		if err := json.Unmarshal(s.Detail, &raw); err != nil {
			return d, errors.Wrap(err, "decode word list detail")
		}
		d.TextWithGaps = raw.TextWithGaps
		d.Words = raw.Options
		d.Gaps = raw.Answers
	case MatchWords:
		var raw struct {
			Pairs []Pair `json:"pairs"`
		}
		if err := json.Unmarshal(s.Detail, &raw); err != nil {
			return d, errors.Wrap(err, "decode match words detail")
		}
		d.Pairs = raw.Pairs
	}
	return d, nil
}

// ImageURL resolves a label-drawing image path against the API base.
func (d Detail) ImageURL(baseURL string) string {
	if d.Image == "" || strings.HasPrefix(d.Image, "http") {
		return d.Image
	}
	return strings.TrimRight(baseURL, "/") + d.Image
}

// ResultRoute is the result screen location for a finished attempt.
func ResultRoute(subjectID, yearID, quizID string) string {
	return fmt.Sprintf("/subjects/%s/years/%s/quiz/%s/result", subjectID, yearID, quizID)
}

// Attempt is the body of POST /api/quiz/attempt/. The same endpoint carries
// answers, the reset signal and the finish signal.
type Attempt struct {
	QuestionID   int          `json:"question_id"`
	Answer       *string      `json:"answer,omitempty"`
	QuestionType QuestionType `json:"question_type,omitempty"`
	TimeSec      *int         `json:"time_sec,omitempty"`
	Restart      bool         `json:"restart,omitempty"`
	Finish       bool         `json:"finish,omitempty"`
	QuizID       string       `json:"quiz_id,omitempty"`
}

func ResetAttempt(quizID string) Attempt {
	return Attempt{QuestionID: ResetQuestionID, Restart: true, QuizID: quizID}
}

func AnswerAttempt(questionID int, questionType QuestionType, answer string, timeSec int) Attempt {
	return Attempt{
		QuestionID:   questionID,
		Answer:       &answer,
		QuestionType: questionType,
		TimeSec:      &timeSec,
	}
}

func FinishAttempt(quizID string, timeSec int) Attempt {
	empty := ""
	return Attempt{
		QuestionID: FinishQuestionID,
		Answer:     &empty,
		TimeSec:    &timeSec,
		Finish:     true,
		QuizID:     quizID,
	}
}
