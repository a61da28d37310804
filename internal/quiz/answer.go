package quiz

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Answer is the learner's draft for one step. It is kept structured while the
// learner edits it and encoded to the wire string only on submission.
type Answer interface {
	Encode() (string, error)
	Empty() bool
}

// TextAnswer covers free text, synonym, composition, gap fill and the chosen
// option text of a multiple choice question.
type TextAnswer string

func (a TextAnswer) Encode() (string, error) {
	return string(a), nil
}

func (a TextAnswer) Empty() bool {
	return strings.TrimSpace(string(a)) == ""
}

// PairsAnswer is an insertion ordered key=value set encoded as
// "k1=v1|k2=v2". Word list answers key by gap identifier, match words
// answers by left item.
type PairsAnswer struct {
	keys   []string
	values map[string]string
}

func NewPairsAnswer() *PairsAnswer {
	return &PairsAnswer{values: make(map[string]string)}
}

// DecodePairs parses a previously encoded pairs string.
func DecodePairs(raw string) *PairsAnswer {
	answer := NewPairsAnswer()
	if raw == "" {
		return answer
	}
	for _, part := range strings.Split(raw, "|") {
		key, value, _ := strings.Cut(part, "=")
		answer.Set(key, value)
	}
	return answer
}

func (a *PairsAnswer) Set(key, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *PairsAnswer) Get(key string) (string, bool) {
	value, ok := a.values[key]
	return value, ok
}

func (a *PairsAnswer) Remove(key string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Toggle selects right for left, or clears the pairing when it is already
// selected.
func (a *PairsAnswer) Toggle(left, right string) {
	if current, ok := a.values[left]; ok && current == right {
		a.Remove(left)
		return
	}
	a.Set(left, right)
}

// FillNextGap puts word into the first gap that has no word yet. It reports
// false when every gap is filled.
func (a *PairsAnswer) FillNextGap(gaps []GapIdentifier, word string) bool {
	for _, gap := range gaps {
		if value, ok := a.values[gap.GapIdentifier]; ok && value != "" {
			continue
		}
		a.Set(gap.GapIdentifier, word)
		return true
	}
	return false
}

func (a *PairsAnswer) Len() int {
	return len(a.keys)
}

func (a *PairsAnswer) Encode() (string, error) {
	parts := make([]string, 0, len(a.keys))
	for _, key := range a.keys {
		parts = append(parts, key+"="+a.values[key])
	}
	return strings.Join(parts, "|"), nil
}

func (a *PairsAnswer) Empty() bool {
	return a == nil || len(a.keys) == 0
}

// LabelAnswer maps each diagram label to the learner's text and is encoded
// as a JSON object.
type LabelAnswer map[string]string

func (a LabelAnswer) Encode() (string, error) {
	encoded, err := json.Marshal(map[string]string(a))
	if err != nil {
		return "", errors.Wrap(err, "encode label answer")
	}
	return string(encoded), nil
}

func (a LabelAnswer) Empty() bool {
	return len(a) == 0
}

// ParseInput turns a line typed by the learner into the answer variant for
// the question type.
//
//	MULTIPLE_CHOICE  option label ("B"), option number ("2") or option text
//	WORD_LIST        "gap=word|gap=word", or words that fill the gaps in order
//	MATCH_WORDS      "left=right|left=right", or pair numbers to select ("1 3")
//	LABEL_DRAWING    "label=text|label=text"
//	anything else    the text as typed
func ParseInput(questionType QuestionType, detail Detail, input string) (Answer, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrNoAnswer
	}

	switch questionType {
	case MultipleChoice:
		return parseChoice(detail.Options, input)
	case WordList:
		if strings.Contains(input, "=") {
			return DecodePairs(input), nil
		}
		answer := NewPairsAnswer()
		for _, word := range strings.FieldsFunc(input, splitWords) {
			if !answer.FillNextGap(detail.Gaps, word) {
				break
			}
		}
		if answer.Empty() {
			return nil, errors.New("no gap left for the given words")
		}
		return answer, nil
	case MatchWords:
		if strings.Contains(input, "=") {
			return DecodePairs(input), nil
		}
		answer := NewPairsAnswer()
		for _, field := range strings.FieldsFunc(input, splitWords) {
			n, err := strconv.Atoi(field)
			if err != nil || n < 1 || n > len(detail.Pairs) {
				return nil, errors.Errorf("pair %q out of range 1-%d", field, len(detail.Pairs))
			}
			pair := detail.Pairs[n-1]
			answer.Toggle(pair.Left, pair.Right)
		}
		return answer, nil
	case LabelDrawing:
		answer := LabelAnswer{}
		for _, part := range strings.Split(input, "|") {
			label, text, ok := strings.Cut(part, "=")
			if !ok {
				return nil, errors.Errorf("expected label=text, got %q", part)
			}
			answer[strings.TrimSpace(label)] = strings.TrimSpace(text)
		}
		return answer, nil
	default:
		return TextAnswer(input), nil
	}
}

func parseChoice(options []Option, input string) (Answer, error) {
	for _, option := range options {
		if strings.EqualFold(option.Label, input) || option.Text == input {
			return TextAnswer(option.Text), nil
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return TextAnswer(options[n-1].Text), nil
	}
	labels := make([]string, 0, len(options))
	for _, option := range options {
		labels = append(labels, option.Label)
	}
	sort.Strings(labels)
	return nil, errors.Errorf("choose one of %s", strings.Join(labels, ", "))
}

func splitWords(r rune) bool {
	return r == ',' || r == ' ' || r == '\t'
}
