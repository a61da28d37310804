package practice

import (
	_ "embed"
	"encoding/json"
	"html"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/opentdb"
)

const (
	KindMultipleChoice = "multiple-choice"
	KindFillBlank      = "fill-blank"
	KindImage          = "image"
)

//go:embed bank.json
var bankJSON []byte

// Question is a practice question. Practice rounds are scored locally and
// nothing is sent to the backend.
type Question struct {
	ID            int      `json:"id"`
	Kind          string   `json:"kind"`
	Subject       string   `json:"subject"`
	Prompt        string   `json:"question"`
	ImageURL      string   `json:"image_url,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

func (q Question) HasOptions() bool {
	return len(q.Options) > 0
}

// Bank returns the built-in mixed-subject round.
func Bank() ([]Question, error) {
	var questions []Question
	if err := json.Unmarshal(bankJSON, &questions); err != nil {
		return nil, errors.Wrap(err, "decode practice bank")
	}
	return questions, nil
}

// FromTrivia converts OpenTriviaDB questions, shuffling the options with rng
// (nil uses the global source).
func FromTrivia(raw []opentdb.RawQuestion, rng *rand.Rand) []Question {
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	questions := make([]Question, 0, len(raw))
	for i, item := range raw {
		options := make([]string, 0, len(item.IncorrectAnswers)+1)
		for _, incorrect := range item.IncorrectAnswers {
			options = append(options, html.UnescapeString(incorrect))
		}
		correct := html.UnescapeString(item.CorrectAnswer)
		options = append(options, correct)
		shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})

		questions = append(questions, Question{
			ID:            i + 1,
			Kind:          KindMultipleChoice,
			Subject:       html.UnescapeString(item.Category),
			Prompt:        html.UnescapeString(item.Question),
			Options:       options,
			CorrectAnswer: correct,
			Explanation:   "The correct answer is " + correct + ".",
		})
	}
	return questions
}

// Resolve turns input into an answer for q. Questions with options accept
// the option text, a letter (A-D) or a 1-based number, in that order;
// fill-blank takes the text as typed. ok is false when the input does not
// name an option.
func Resolve(q Question, input string) (answer string, ok bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if !q.HasOptions() {
		return input, true
	}

	for _, option := range q.Options {
		if strings.EqualFold(option, input) {
			return option, true
		}
	}
	if len(input) == 1 {
		c := strings.ToUpper(input)[0]
		if c >= 'A' && int(c-'A') < len(q.Options) {
			return q.Options[c-'A'], true
		}
		if c >= '1' && c <= '9' && int(c-'1') < len(q.Options) {
			return q.Options[c-'1'], true
		}
	}
	return "", false
}

// IsCorrect compares an answer with the expected one. Fill-blank answers
// ignore case and surrounding spaces.
func IsCorrect(q Question, answer string) bool {
	if q.HasOptions() {
		return answer == q.CorrectAnswer
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}
