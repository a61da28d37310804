package quiz

import (
	"fmt"
	"math"
	"time"
)

const PassMark = 50.0

type ResultItem struct {
	ID            int          `json:"id"`
	QuestionType  QuestionType `json:"question_type"`
	QuestionText  string       `json:"question_text"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	UserAnswer    *string      `json:"user_answer"`
	IsCorrect     bool         `json:"is_correct"`
}

// Result is the graded attempt returned by GET /api/quiz/:quizId/result/.
type Result struct {
	TotalTimeSec int          `json:"total_time_sec"`
	Score        float64      `json:"score"`
	Items        []ResultItem `json:"items"`
}

type Summary struct {
	Passed         bool
	Score          float64
	Items          []ResultItem
	Correct        int
	Incorrect      int
	TotalTime      time.Duration
	AverageTimeSec int
}

func Passed(score float64) bool {
	return score >= PassMark
}

// UniqueItems drops repeated item ids. An id keeps the position of its first
// occurrence and the content of its last one.
func UniqueItems(items []ResultItem) []ResultItem {
	position := make(map[int]int, len(items))
	unique := make([]ResultItem, 0, len(items))
	for _, item := range items {
		if at, ok := position[item.ID]; ok {
			unique[at] = item
			continue
		}
		position[item.ID] = len(unique)
		unique = append(unique, item)
	}
	return unique
}

func Summarize(result Result) Summary {
	items := UniqueItems(result.Items)
	summary := Summary{
		Passed:    Passed(result.Score),
		Score:     result.Score,
		Items:     items,
		TotalTime: time.Duration(result.TotalTimeSec) * time.Second,
	}
	for _, item := range items {
		if item.IsCorrect {
			summary.Correct++
		} else {
			summary.Incorrect++
		}
	}
	if len(items) > 0 {
		summary.AverageTimeSec = int(math.Round(float64(result.TotalTimeSec) / float64(len(items))))
	}
	return summary
}

// Pace is the one-line remark shown under the total time.
func Pace(totalTimeSec int) string {
	switch {
	case totalTimeSec < 60:
		return "Impressive speed!"
	case totalTimeSec < 180:
		return "Good pace!"
	default:
		return "Take your time to learn thoroughly."
	}
}

// FormatDuration renders whole seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
