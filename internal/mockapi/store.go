package mockapi

import (
	"sort"
	"strings"
	"time"

	"github.com/najibrashidabdi/newkaabe/internal/quiz"
)

const proPeriod = 30 * 24 * time.Hour

type user struct {
	ID             int
	Email          string
	FullName       string
	SchoolName     string
	PhoneNumber    string
	PasswordHash   []byte
	Verified       bool
	Staff          bool
	StaffOTP       bool
	Onboarded      bool
	ProfilePicture string
	ProUntil       time.Time
	Joined         time.Time
	BonusPoints    float64
}

func (u *user) isPro(now time.Time) bool {
	return u.ProUntil.After(now)
}

type subject struct {
	ID   int
	Name string
	Icon string
}

type year struct {
	ID        int
	SubjectID int
	Year      int
	ProOnly   bool
}

type quizDef struct {
	ID        int
	YearID    int
	Index     int
	Questions []question
}

// question is a graded item. Detail is served as-is on the step endpoint.
type question struct {
	ID          int
	Type        quiz.QuestionType
	Text        string
	Points      float64
	Options     []quiz.Option
	Correct     string
	Explanation string
	Detail      map[string]any
}

type attempt struct {
	Answers   map[int]string
	Order     []int
	TotalTime int
	Finished  bool
}

func newAttempt() *attempt {
	return &attempt{Answers: make(map[int]string)}
}

func (a *attempt) record(questionID int, answer string) {
	if _, ok := a.Answers[questionID]; !ok {
		a.Order = append(a.Order, questionID)
	}
	a.Answers[questionID] = answer
}

type notification struct {
	ID        int
	UserID    int
	Title     string
	Message   string
	Type      string
	IsRead    bool
	CreatedAt time.Time
}

// state is the whole in-memory backend. Every access goes through Server.mu.
type state struct {
	users         map[int]*user
	subjects      []subject
	years         []year
	quizzes       []quizDef
	attempts      map[int]map[int]*attempt
	notifications []*notification
	activation    map[string]bool
	verifyCodes   map[string]string
	resetCodes    map[string]string
	otpCodes      map[string]string
	revoked       map[string]bool
	feedback      []feedbackRequest
	nextUserID    int
	nextNotifID   int
}

func (s *state) userByEmail(email string) *user {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *state) subject(id int) (subject, bool) {
	for _, sub := range s.subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return subject{}, false
}

func (s *state) year(subjectID, id int) (year, bool) {
	for _, y := range s.years {
		if y.ID == id && y.SubjectID == subjectID {
			return y, true
		}
	}
	return year{}, false
}

func (s *state) yearByID(id int) (year, bool) {
	for _, y := range s.years {
		if y.ID == id {
			return y, true
		}
	}
	return year{}, false
}

func (s *state) yearsOf(subjectID int) []year {
	var out []year
	for _, y := range s.years {
		if y.SubjectID == subjectID {
			out = append(out, y)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func (s *state) quizzesOf(yearID int) []quizDef {
	var out []quizDef
	for _, q := range s.quizzes {
		if q.YearID == yearID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (s *state) quiz(id int) (quizDef, bool) {
	for _, q := range s.quizzes {
		if q.ID == id {
			return q, true
		}
	}
	return quizDef{}, false
}

// questionByID also returns the quiz the question belongs to.
func (s *state) questionByID(id int) (question, quizDef, bool) {
	for _, qz := range s.quizzes {
		for _, q := range qz.Questions {
			if q.ID == id {
				return q, qz, true
			}
		}
	}
	return question{}, quizDef{}, false
}

func (s *state) attempt(userID, quizID int) *attempt {
	byQuiz := s.attempts[userID]
	if byQuiz == nil {
		return nil
	}
	return byQuiz[quizID]
}

func (s *state) resetAttempt(userID, quizID int) *attempt {
	if s.attempts[userID] == nil {
		s.attempts[userID] = make(map[int]*attempt)
	}
	a := newAttempt()
	s.attempts[userID][quizID] = a
	return a
}

func (s *state) addNotification(userID int, kind, title, message string, at time.Time) *notification {
	s.nextNotifID++
	n := &notification{
		ID:        s.nextNotifID,
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		CreatedAt: at,
	}
	s.notifications = append(s.notifications, n)
	return n
}

func (s *state) notificationsOf(userID int) []*notification {
	var out []*notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// points is the leaderboard score: seeded bonus plus the points of every
// correctly answered question.
func (s *state) points(u *user) float64 {
	total := u.BonusPoints
	for quizID, a := range s.attempts[u.ID] {
		qz, ok := s.quiz(quizID)
		if !ok {
			continue
		}
		for _, q := range qz.Questions {
			if answer, ok := a.Answers[q.ID]; ok && grade(q, answer) {
				total += q.Points
			}
		}
	}
	return total
}
