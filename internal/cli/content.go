package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/dashboard"
	"github.com/najibrashidabdi/newkaabe/internal/quiz"
	"github.com/najibrashidabdi/newkaabe/internal/screen"
)

func runDashboard(ctx context.Context, a *app, _ []string) error {
	view := screen.Load(ctx, func(ctx context.Context) (dashboard.Data, error) {
		return dashboard.Load(ctx, a.api)
	})
	if view.Err != nil {
		switch {
		case errors.Is(view.Err, dashboard.ErrUpgradeRequired):
			fmt.Fprintln(a.out, strings.TrimSuffix(view.Err.Error(), ": "+dashboard.ErrUpgradeRequired.Error()))
			fmt.Fprintln(a.out, "Upgrade to Pro to keep practising: type 'subscribe'.")
		case errors.Is(view.Err, dashboard.ErrLoginRequired):
			fmt.Fprintln(a.out, "Please log in again to continue: type 'login'.")
		default:
			fmt.Fprintln(a.out, dashboard.ErrUnavailable.Error())
			a.log.Debug("dashboard load failed", "err", view.Err)
		}
		return nil
	}

	d := view.Data.Dashboard
	fmt.Fprintf(a.out, "Welcome back, %s (%s)\n", d.Name, d.School)
	if days, ok := dashboard.ProDaysLeft(d); ok {
		fmt.Fprintf(a.out, "Pro: %d days left\n", days)
	} else if d.IsPro {
		fmt.Fprintln(a.out, "Pro: active")
	} else {
		fmt.Fprintln(a.out, "Plan: free (type 'subscribe' to upgrade)")
	}
	fmt.Fprintf(a.out, "Progress: %d/%d questions (%.0f%%), accuracy %.0f%%\n",
		d.CompletedQuestions, d.TotalQuestions, dashboard.CompletionPercent(d), d.Accuracy)

	if len(d.Subjects) > 0 {
		fmt.Fprintln(a.out, "\nSubjects:")
		times := dashboard.StudyTimes(d.Subjects)
		for i, s := range d.Subjects {
			fmt.Fprintf(a.out, "  [%d] %s %d/%d (%.0f%%), about %.0f min studied\n",
				s.ID, s.Name, s.Completed, s.Questions, s.Progress, times[i].Minutes)
		}
	}
	if len(d.Leaderboard) > 0 {
		fmt.Fprintln(a.out, "\nLeaderboard:")
		for i, entry := range d.Leaderboard {
			if i >= a.cfg.ListLimit {
				break
			}
			fmt.Fprintf(a.out, "  %d. %s (%s) %s pts\n", i+1, entry.Name, entry.School, formatScore(entry.Points))
		}
	}
	return nil
}

func runSubject(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		usage(a.out, "subject")
		return nil
	}
	subject, err := dashboard.LoadSubject(ctx, a.api, args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\n", subject.Meta.Name)
	if len(subject.Years) == 0 {
		fmt.Fprintln(a.out, "No years available yet.")
		return nil
	}
	for _, year := range subject.Years {
		lock := ""
		if year.Locked {
			lock = " (Pro)"
		}
		fmt.Fprintf(a.out, "  [%d] %d: %d quizzes, %.0f%% done%s\n", year.ID, year.Year, year.QuizCount, year.Progress, lock)
	}
	fmt.Fprintf(a.out, "Type 'quizzes %s <year_id>' to pick a quiz.\n", args[1])
	return nil
}

func runQuizzes(ctx context.Context, a *app, args []string) error {
	if len(args) != 3 {
		usage(a.out, "quizzes")
		return nil
	}
	year, err := dashboard.LoadYear(ctx, a.api, args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s, %s\n", year.SubjectName, year.YearLabel)
	if len(year.Quizzes) == 0 {
		fmt.Fprintln(a.out, "No quizzes in this year.")
		return nil
	}
	current := dashboard.CurrentQuiz(year.Quizzes)
	for i, q := range year.Quizzes {
		status := "open"
		switch {
		case q.Completed:
			status = "done"
		case q.Locked:
			status = "locked"
		}
		marker := " "
		if i == current {
			marker = ">"
		}
		fmt.Fprintf(a.out, "%s [%s] quiz %d: %d questions, %s\n", marker, dashboard.QuizID(q), q.Index+1, q.TotalQuestions, status)
	}
	if current >= 0 {
		fmt.Fprintf(a.out, "Type 'play %s %s %s' to continue.\n", args[1], args[2], dashboard.QuizID(year.Quizzes[current]))
	}
	return nil
}

func runPlay(ctx context.Context, a *app, args []string) error {
	if len(args) != 4 {
		usage(a.out, "play")
		return nil
	}
	subjectID, yearID, quizID := args[1], args[2], args[3]

	flow := quiz.NewFlow(a.api, subjectID, yearID, quizID)
	if err := flow.Enter(ctx); err != nil {
		if apiclient.IsStatus(err, 402) || strings.Contains(strings.ToLower(apiclient.UserMessage(err)), "limit") {
			fmt.Fprintln(a.out, "This quiz needs Pro. Type 'subscribe' to upgrade.")
			return nil
		}
		return err
	}

	fmt.Fprintln(a.out, "Type your answer, or 'quit' to stop.")
	invalid := 0
	show := true
	for flow.State() != quiz.Done {
		if show {
			printStep(a.out, flow, a.api.BaseURL())
			show = false
		}

		line, err := a.prompt("answer> ")
		if err != nil {
			return err
		}
		command := strings.ToLower(line)
		switch command {
		case "quit":
			fmt.Fprintln(a.out, "Quiz left. Progress on the server is reset next time you start it.")
			return nil
		case "":
			fmt.Fprintln(a.out, quiz.ErrNoAnswer.Error())
			continue
		}

		if command != "retry" || !flow.Submitted() {
			answer, err := quiz.ParseInput(flow.Step().QuestionType, flow.Detail(), line)
			if err != nil {
				invalid++
				if invalid >= a.cfg.MaxInvalidAnswers {
					fmt.Fprintln(a.out, "Too many invalid answers, leaving the quiz.")
					return nil
				}
				fmt.Fprintf(a.out, "Invalid answer: %v. Attempts remaining: %d\n", err, a.cfg.MaxInvalidAnswers-invalid)
				continue
			}
			if err := flow.SetAnswer(answer); err != nil {
				return err
			}
		}

		outcome, err := flow.Next(ctx)
		if err != nil {
			if flow.Submitted() {
				fmt.Fprintf(a.out, "Answer saved, but moving on failed: %s. Type 'retry' to continue.\n", describeClientError(err))
			} else {
				fmt.Fprintf(a.out, "Could not submit: %s. Type the answer again to retry.\n", describeClientError(err))
			}
			continue
		}
		invalid = 0
		show = true
		if outcome.Finished {
			fmt.Fprintln(a.out, "\nQuiz finished!")
			a.log.Debug("quiz finished", "route", outcome.ResultRoute)
			return showResult(ctx, a, quizID)
		}
	}
	return nil
}

func printStep(out io.Writer, flow *quiz.Flow, baseURL string) {
	step := flow.Step()
	detail := flow.Detail()
	fmt.Fprintf(out, "\nQuestion %d of %d (%.0f%%)\n", flow.Index()+1, flow.Total(), flow.Progress())
	if flow.Encouraging() {
		fmt.Fprintln(out, "Halfway there, keep going!")
	}
	fmt.Fprintf(out, "%s\n", step.Question.Text)

	switch step.QuestionType {
	case quiz.MultipleChoice:
		for _, option := range detail.Options {
			fmt.Fprintf(out, "  %s. %s\n", option.Label, option.Text)
		}
	case quiz.FillGaps:
		if detail.QuestionWithGaps != "" {
			fmt.Fprintln(out, detail.QuestionWithGaps)
		}
		fmt.Fprintf(out, "(%d gaps, answer with the missing text)\n", len(detail.GapAnswers))
	case quiz.LabelDrawing:
		if url := detail.ImageURL(baseURL); url != "" {
			fmt.Fprintf(out, "Image: %s\n", url)
		}
		labels := make([]string, 0, len(detail.Labels))
		for _, l := range detail.Labels {
			labels = append(labels, l.Label)
		}
		fmt.Fprintf(out, "Labels: %s (answer as label=text|label=text)\n", strings.Join(labels, ", "))
	case quiz.WordList:
		fmt.Fprintln(out, detail.TextWithGaps)
		words := make([]string, 0, len(detail.Words))
		for _, w := range detail.Words {
			words = append(words, w.Word)
		}
		fmt.Fprintf(out, "Words: %s (answer with words in gap order, or gap=word|gap=word)\n", strings.Join(words, ", "))
	case quiz.MatchWords:
		for i, pair := range detail.Pairs {
			fmt.Fprintf(out, "  %d. %s - %s\n", i+1, pair.Left, pair.Right)
		}
		fmt.Fprintln(out, "(answer with the numbers of the matching pairs, or left=right|left=right)")
	}
	if step.Question.Points > 0 {
		fmt.Fprintf(out, "[%s point(s)]\n", formatScore(step.Question.Points))
	}
}

func runResult(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		usage(a.out, "result")
		return nil
	}
	return showResult(ctx, a, args[1])
}

func showResult(ctx context.Context, a *app, quizID string) error {
	result, err := a.api.QuizResult(ctx, quizID)
	if err != nil {
		return err
	}
	summary := quiz.Summarize(result)

	if summary.Passed {
		fmt.Fprintf(a.out, "Congratulations! You passed with %s%%.\n", formatScore(summary.Score))
	} else {
		fmt.Fprintf(a.out, "Keep practising. You scored %s%%; %s%% is needed to pass.\n", formatScore(summary.Score), formatScore(quiz.PassMark))
	}
	fmt.Fprintf(a.out, "Correct: %d  Incorrect: %d\n", summary.Correct, summary.Incorrect)
	fmt.Fprintf(a.out, "Time: %s (%s)  Average per question: %ds\n",
		quiz.FormatDuration(result.TotalTimeSec), quiz.Pace(result.TotalTimeSec), summary.AverageTimeSec)

	for i, item := range summary.Items {
		mark := "x"
		if item.IsCorrect {
			mark = "ok"
		}
		fmt.Fprintf(a.out, "\n%d. [%s] %s\n", i+1, mark, item.QuestionText)
		answer := "(no answer)"
		if item.UserAnswer != nil && *item.UserAnswer != "" {
			answer = *item.UserAnswer
		}
		fmt.Fprintf(a.out, "   Your answer: %s\n", answer)
		if !item.IsCorrect {
			fmt.Fprintf(a.out, "   Correct answer: %s\n", item.CorrectAnswer)
		}
		if item.Explanation != "" {
			fmt.Fprintf(a.out, "   %s\n", item.Explanation)
		}
	}
	return nil
}
