package practice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"
)

const maxAttempts = 3

// Round is one pass through a list of practice questions.
type Round struct {
	Questions []Question
	answers   []string
}

func NewRound(questions []Question) *Round {
	return &Round{Questions: questions, answers: make([]string, len(questions))}
}

func (r *Round) Answer(index int, answer string) bool {
	if index < 0 || index >= len(r.Questions) {
		return false
	}
	r.answers[index] = answer
	return IsCorrect(r.Questions[index], answer)
}

func (r *Round) Score() int {
	score := 0
	for i, answer := range r.answers {
		if answer != "" && IsCorrect(r.Questions[i], answer) {
			score++
		}
	}
	return score
}

// Play runs the round in the terminal: each question is shown, the answer
// read and the explanation printed. Invalid input is retried a few times
// before the question is skipped.
func Play(ctx context.Context, in io.Reader, out io.Writer, round *Round) error {
	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
	}
	start := time.Now()

	for idx, question := range round.Questions {
		if err := ctx.Err(); err != nil {
			return err
		}
		printQuestion(out, idx+1, len(round.Questions), question)

		answer, ok := readAnswer(reader, out, question)
		fmt.Fprintln(out)
		if !ok {
			fmt.Fprintf(out, "Skipping. Correct answer was %s\n\n", question.CorrectAnswer)
			continue
		}

		if round.Answer(idx, answer) {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Incorrect! Correct answer was %s\n", question.CorrectAnswer)
		}
		fmt.Fprintln(out, question.Explanation)
		fmt.Fprintln(out)
	}

	elapsed := int(time.Since(start).Seconds())
	fmt.Fprintf(out, "\nQuiz completed! You scored %d out of %d in %dm %ds.\n",
		round.Score(), len(round.Questions), elapsed/60, elapsed%60)
	fmt.Fprintln(out, "Upgrade to Pro to unlock full past papers: type 'subscribe'.")
	return nil
}

func printQuestion(out io.Writer, number, total int, question Question) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d [%s]: %s\n\n", number, total, question.Subject, question.Prompt)
	if question.ImageURL != "" {
		fmt.Fprintf(out, "(image: %s)\n", question.ImageURL)
	}
	for i, option := range question.Options {
		fmt.Fprintf(out, "%c. %s\n", 'A'+i, option)
	}
	if !question.HasOptions() {
		fmt.Fprintln(out, "Type the missing word.")
	}
	fmt.Fprintln(out)
}

func readAnswer(reader *bufio.Reader, out io.Writer, question Question) (string, bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", false
		}

		if answer, ok := Resolve(question, line); ok {
			return answer, true
		}

		if attempt < maxAttempts && err == nil {
			if question.HasOptions() {
				fmt.Fprintf(out, "\nInvalid input. Please enter a letter A-%c.\n", 'A'+len(question.Options)-1)
			} else {
				fmt.Fprintln(out, "\nPlease type an answer.")
			}
		}
		if err != nil {
			return "", false
		}
	}
	return "", false
}
