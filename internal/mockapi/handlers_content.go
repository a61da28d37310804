package mockapi

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/najibrashidabdi/newkaabe/internal/quiz"
)

const leaderboardSize = 10

const freePlanLimit = "Free plan limit reached. Upgrade to Pro to open this paper."

type subjectStat struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Questions int     `json:"questions"`
	Completed int     `json:"completed"`
	Progress  float64 `json:"progress"`
}

type leaderboardEntry struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	School         string  `json:"school"`
	Points         float64 `json:"points"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
}

type dashboardResponse struct {
	Name               string             `json:"name"`
	School             string             `json:"school"`
	IsPro              bool               `json:"is_pro"`
	ProExpiresIn       *int               `json:"pro_expires_in,omitempty"`
	TotalQuestions     int                `json:"total_questions"`
	CompletedQuestions int                `json:"completed_questions"`
	Accuracy           float64            `json:"accuracy"`
	Subjects           []subjectStat      `json:"subjects"`
	Leaderboard        []leaderboardEntry `json:"leaderboard"`
	ProfilePicture     string             `json:"profile_picture,omitempty"`
}

type yearResponse struct {
	ID        int     `json:"id"`
	Year      int     `json:"year"`
	Locked    bool    `json:"locked"`
	Progress  float64 `json:"progress"`
	QuizCount int     `json:"quiz_cnt"`
}

type quizResponse struct {
	ID             int  `json:"id"`
	Index          int  `json:"index"`
	Locked         bool `json:"locked"`
	Completed      bool `json:"completed"`
	TotalQuestions int  `json:"total_q"`
}

type stepResponse struct {
	Total        int               `json:"total"`
	QuestionType quiz.QuestionType `json:"question_type"`
	Question     quiz.Question     `json:"question"`
	Detail       map[string]any    `json:"detail"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

// proDaysLeft rounds up so a subscription ending later today still counts
// as one day.
func proDaysLeft(u *user, now time.Time) *int {
	if !u.isPro(now) {
		return nil
	}
	days := int(math.Ceil(u.ProUntil.Sub(now).Hours() / 24))
	return &days
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request, u *user) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := dashboardResponse{
		Name:           u.FullName,
		School:         u.SchoolName,
		IsPro:          u.isPro(now),
		ProExpiresIn:   proDaysLeft(u, now),
		ProfilePicture: u.ProfilePicture,
		Subjects:       []subjectStat{},
	}

	answered, correct := 0, 0
	for _, sub := range s.st.subjects {
		stat := subjectStat{ID: sub.ID, Name: sub.Name, Icon: sub.Icon}
		for _, y := range s.st.yearsOf(sub.ID) {
			for _, qz := range s.st.quizzesOf(y.ID) {
				stat.Questions += len(qz.Questions)
				a := s.st.attempt(u.ID, qz.ID)
				if a == nil {
					continue
				}
				for _, q := range qz.Questions {
					answer, ok := a.Answers[q.ID]
					if !ok {
						continue
					}
					stat.Completed++
					answered++
					if grade(q, answer) {
						correct++
					}
				}
			}
		}
		stat.Progress = percent(stat.Completed, stat.Questions)
		resp.TotalQuestions += stat.Questions
		resp.Subjects = append(resp.Subjects, stat)
	}
	resp.CompletedQuestions = answered
	resp.Accuracy = percent(correct, answered)
	resp.Leaderboard = s.leaderboard()

	writeJSON(w, http.StatusOK, resp)
}

// leaderboard must be called with s.mu held.
func (s *Server) leaderboard() []leaderboardEntry {
	entries := make([]leaderboardEntry, 0, len(s.st.users))
	for _, u := range s.st.users {
		if u.Staff || !u.Verified {
			continue
		}
		entries = append(entries, leaderboardEntry{
			ID:             u.ID,
			Name:           u.FullName,
			School:         u.SchoolName,
			Points:         s.st.points(u),
			ProfilePicture: u.ProfilePicture,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points == entries[j].Points {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Points > entries[j].Points
	})
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries
}

func (s *Server) handleSubjectMeta(w http.ResponseWriter, r *http.Request, _ *user) {
	id, ok := pathInt(r, "subjectId")
	s.mu.Lock()
	sub, found := s.st.subject(id)
	s.mu.Unlock()
	if !ok || !found {
		writeDetail(w, http.StatusNotFound, "Subject not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": sub.ID, "name": sub.Name, "icon": sub.Icon})
}

// locked reports whether u may not open quizzes of y. Must be called with
// s.mu held.
func (s *Server) locked(u *user, y year) bool {
	return y.ProOnly && !u.isPro(s.opts.Now())
}

func (s *Server) handleSubjectYears(w http.ResponseWriter, r *http.Request, u *user) {
	id, ok := pathInt(r, "subjectId")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.st.subject(id); !ok || !found {
		writeDetail(w, http.StatusNotFound, "Subject not found.")
		return
	}

	years := []yearResponse{}
	for _, y := range s.st.yearsOf(id) {
		quizzes := s.st.quizzesOf(y.ID)
		done := 0
		for _, qz := range quizzes {
			if a := s.st.attempt(u.ID, qz.ID); a != nil && a.Finished {
				done++
			}
		}
		years = append(years, yearResponse{
			ID:        y.ID,
			Year:      y.Year,
			Locked:    s.locked(u, y),
			Progress:  percent(done, len(quizzes)),
			QuizCount: len(quizzes),
		})
	}
	writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleYearMeta(w http.ResponseWriter, r *http.Request, _ *user) {
	subjectID, ok1 := pathInt(r, "subjectId")
	yearID, ok2 := pathInt(r, "yearId")
	s.mu.Lock()
	y, found := s.st.year(subjectID, yearID)
	s.mu.Unlock()
	if !ok1 || !ok2 || !found {
		writeDetail(w, http.StatusNotFound, "Year not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"id": y.ID, "year": y.Year})
}

func (s *Server) handleYearQuizzes(w http.ResponseWriter, r *http.Request, u *user) {
	subjectID, ok1 := pathInt(r, "subjectId")
	yearID, ok2 := pathInt(r, "yearId")
	s.mu.Lock()
	defer s.mu.Unlock()
	y, found := s.st.year(subjectID, yearID)
	if !ok1 || !ok2 || !found {
		writeDetail(w, http.StatusNotFound, "Year not found.")
		return
	}

	locked := s.locked(u, y)
	quizzes := []quizResponse{}
	for _, qz := range s.st.quizzesOf(y.ID) {
		a := s.st.attempt(u.ID, qz.ID)
		quizzes = append(quizzes, quizResponse{
			ID:             qz.ID,
			Index:          qz.Index,
			Locked:         locked,
			Completed:      a != nil && a.Finished,
			TotalQuestions: len(qz.Questions),
		})
	}
	writeJSON(w, http.StatusOK, quizzes)
}

// openQuiz finds the quiz and checks the plan allows it. On failure the
// response is written. Must be called with s.mu held.
func (s *Server) openQuiz(w http.ResponseWriter, u *user, quizID int) (quizDef, bool) {
	qz, ok := s.st.quiz(quizID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Quiz not found.")
		return quizDef{}, false
	}
	y, _ := s.st.yearByID(qz.YearID)
	if s.locked(u, y) {
		writeDetail(w, http.StatusPaymentRequired, freePlanLimit)
		return quizDef{}, false
	}
	return qz, true
}

func (s *Server) handleQuizStep(w http.ResponseWriter, r *http.Request, u *user) {
	quizID, ok1 := pathInt(r, "quizId")
	index, ok2 := pathInt(r, "index")
	if !ok1 || !ok2 {
		writeDetail(w, http.StatusNotFound, "Question not found.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	qz, ok := s.openQuiz(w, u, quizID)
	if !ok {
		return
	}
	if index < 0 || index >= len(qz.Questions) {
		writeDetail(w, http.StatusNotFound, "Question not found.")
		return
	}

	q := qz.Questions[index]
	writeJSON(w, http.StatusOK, stepResponse{
		Total:        len(qz.Questions),
		QuestionType: q.Type,
		Question:     quiz.Question{ID: q.ID, Text: q.Text, Points: q.Points},
		Detail:       q.Detail,
	})
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request, u *user) {
	var req quiz.Attempt
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch req.QuestionID {
	case quiz.ResetQuestionID, quiz.FinishQuestionID:
		quizID, err := strconv.Atoi(req.QuizID)
		if err != nil {
			writeFieldError(w, "quiz_id", "A valid quiz id is required.")
			return
		}
		if _, ok := s.openQuiz(w, u, quizID); !ok {
			return
		}
		if req.QuestionID == quiz.ResetQuestionID {
			s.st.resetAttempt(u.ID, quizID)
			writeDetail(w, http.StatusOK, "Attempt reset.")
			return
		}
		a := s.st.attempt(u.ID, quizID)
		if a == nil {
			writeDetail(w, http.StatusBadRequest, "No attempt in progress for this quiz.")
			return
		}
		if req.TimeSec != nil {
			a.TotalTime = *req.TimeSec
		}
		a.Finished = true
		writeDetail(w, http.StatusOK, "Attempt finished.")
		return
	}

	q, qz, ok := s.st.questionByID(req.QuestionID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Question not found.")
		return
	}
	if _, ok := s.openQuiz(w, u, qz.ID); !ok {
		return
	}
	if req.Answer == nil {
		writeFieldError(w, "answer", "This field is required.")
		return
	}
	if req.QuestionType != "" && req.QuestionType != q.Type {
		writeFieldError(w, "question_type", "Does not match the question.")
		return
	}
	a := s.st.attempt(u.ID, qz.ID)
	if a == nil || a.Finished {
		a = s.st.resetAttempt(u.ID, qz.ID)
	}
	a.record(q.ID, *req.Answer)
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (s *Server) handleQuizResult(w http.ResponseWriter, r *http.Request, u *user) {
	quizID, ok := pathInt(r, "quizId")
	s.mu.Lock()
	defer s.mu.Unlock()
	qz, found := s.st.quiz(quizID)
	if !ok || !found {
		writeDetail(w, http.StatusNotFound, "Quiz not found.")
		return
	}
	a := s.st.attempt(u.ID, quizID)
	if a == nil {
		writeDetail(w, http.StatusNotFound, "No attempt found for this quiz.")
		return
	}

	result := quiz.Result{TotalTimeSec: a.TotalTime, Items: []quiz.ResultItem{}}
	var total, earned float64
	for _, q := range qz.Questions {
		total += q.Points
		item := quiz.ResultItem{
			ID:            q.ID,
			QuestionType:  q.Type,
			QuestionText:  q.Text,
			CorrectAnswer: correctText(q),
			Explanation:   q.Explanation,
		}
		for _, o := range q.Options {
			item.Options = append(item.Options, o.Text)
		}
		if answer, ok := a.Answers[q.ID]; ok {
			answer := answer
			item.UserAnswer = &answer
			item.IsCorrect = grade(q, answer)
		}
		if item.IsCorrect {
			earned += q.Points
		}
		result.Items = append(result.Items, item)
	}
	if total > 0 {
		result.Score = round2(earned / total * 100)
	}
	writeJSON(w, http.StatusOK, result)
}
