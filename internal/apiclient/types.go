package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID accepts both JSON numbers and strings; the backend is not consistent
// about which one it sends for notification ids.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	FullName    string `json:"full_name"`
	SchoolName  string `json:"school_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type StaffLogin struct {
	TokenPair
	OTPRequired bool   `json:"otp_required"`
	Detail      string `json:"detail,omitempty"`
}

type Me struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	SchoolName     string `json:"school_name"`
	PhoneNumber    string `json:"phone_number"`
	IsVerified     bool   `json:"is_verified"`
	IsStaff        bool   `json:"is_staff"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

type SubjectStat struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Questions int     `json:"questions"`
	Completed int     `json:"completed"`
	Progress  float64 `json:"progress"`
}

type LeaderboardEntry struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	School         string  `json:"school"`
	Points         float64 `json:"points"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
}

type Dashboard struct {
	Name               string             `json:"name"`
	School             string             `json:"school"`
	IsPro              bool               `json:"is_pro"`
	ProExpiresIn       *int               `json:"pro_expires_in,omitempty"`
	TotalQuestions     int                `json:"total_questions"`
	CompletedQuestions int                `json:"completed_questions"`
	Accuracy           float64            `json:"accuracy"`
	Subjects           []SubjectStat      `json:"subjects"`
	Leaderboard        []LeaderboardEntry `json:"leaderboard"`
	ProfilePicture     string             `json:"profile_picture,omitempty"`
}

type SubjectMeta struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type YearItem struct {
	ID        int     `json:"id"`
	Year      int     `json:"year"`
	Locked    bool    `json:"locked"`
	Progress  float64 `json:"progress"`
	QuizCount int     `json:"quiz_cnt"`
}

type YearMeta struct {
	ID   int `json:"id"`
	Year int `json:"year"`
}

type QuizItem struct {
	ID             int  `json:"id"`
	Index          int  `json:"index"`
	Locked         bool `json:"locked"`
	Completed      bool `json:"completed"`
	TotalQuestions int  `json:"total_q"`
}

type Notification struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"notification_type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Metrics struct {
	TotalUsers  int     `json:"total_users"`
	ProUsers    int     `json:"pro_users"`
	DailyGrowth float64 `json:"daily_growth"`
}

type Profile struct {
	FullName   string  `json:"full_name"`
	SchoolName string  `json:"school_name"`
	AvatarURL  *string `json:"avatar_url"`
}

type ProfileUpdate struct {
	FullName   string `json:"full_name"`
	SchoolName string `json:"school_name"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}
