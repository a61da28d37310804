package mockapi

import (
	"encoding/json"
	"strings"

	"github.com/najibrashidabdi/newkaabe/internal/quiz"
)

// grade reports whether answer is correct for q. Compositions are marked by
// hand in production; here any non-empty text passes.
func grade(q question, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	switch q.Type {
	case quiz.MultipleChoice:
		return answer == q.Correct
	case quiz.Composition:
		return true
	case quiz.WordList, quiz.MatchWords:
		return sameSet(pairs(answer), pairs(q.Correct))
	case quiz.LabelDrawing:
		var got, want map[string]string
		if json.Unmarshal([]byte(answer), &got) != nil || json.Unmarshal([]byte(q.Correct), &want) != nil {
			return false
		}
		return sameSet(fold(got), fold(want))
	default:
		return strings.EqualFold(answer, q.Correct)
	}
}

func pairs(raw string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, "|") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.ToLower(strings.TrimSpace(value))
	}
	return out
}

func fold(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func sameSet(got, want map[string]string) bool {
	if len(got) != len(want) {
		return false
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// correctText is what the result screen shows as the expected answer.
func correctText(q question) string {
	switch q.Type {
	case quiz.Composition:
		return "Any well formed answer"
	case quiz.LabelDrawing:
		var want map[string]string
		if json.Unmarshal([]byte(q.Correct), &want) != nil {
			return q.Correct
		}
		defs, _ := q.Detail["labels"].([]quiz.Label)
		labels := make([]string, 0, len(want))
		for _, l := range defs {
			labels = append(labels, l.Label+"="+want[l.Label])
		}
		return strings.Join(labels, ", ")
	}
	return q.Correct
}
