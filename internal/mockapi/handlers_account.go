package mockapi

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type notificationResponse struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"notification_type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type metricsResponse struct {
	TotalUsers  int     `json:"total_users"`
	ProUsers    int     `json:"pro_users"`
	DailyGrowth float64 `json:"daily_growth"`
}

type profileResponse struct {
	FullName   string  `json:"full_name"`
	SchoolName string  `json:"school_name"`
	AvatarURL  *string `json:"avatar_url"`
}

type profileUpdateRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=2"`
	SchoolName *string `json:"school_name" validate:"omitempty,min=2"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	items := s.st.notificationsOf(u.ID)
	resp := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, u *user) {
	id, ok := pathInt(r, "id")
	s.mu.Lock()
	var found *notification
	for _, n := range s.st.notifications {
		if ok && n.ID == id && n.UserID == u.ID {
			found = n
			break
		}
	}
	if found != nil {
		found.IsRead = true
	}
	s.mu.Unlock()

	if found == nil {
		writeDetail(w, http.StatusNotFound, "Notification not found.")
		return
	}
	s.publish(r.Context(), u.ID)
	writeDetail(w, http.StatusOK, "Marked as read.")
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	for _, n := range s.st.notifications {
		if n.UserID == u.ID {
			n.IsRead = true
		}
	}
	s.mu.Unlock()
	s.publish(r.Context(), u.ID)
	writeDetail(w, http.StatusOK, "All notifications marked as read.")
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.Code)
	now := s.opts.Now()

	s.mu.Lock()
	used, exists := s.st.activation[code]
	if !exists || used {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Invalid or expired activation code.")
		return
	}
	s.st.activation[code] = true
	start := now
	if u.isPro(now) {
		start = u.ProUntil
	}
	u.ProUntil = start.Add(proPeriod)
	s.st.addNotification(u.ID, "pro_expiration", "Kaabe Pro activated",
		"Your Pro access runs until "+u.ProUntil.Format("Jan 2, 2006")+".", now)
	s.mu.Unlock()

	activations.Inc()
	s.publish(r.Context(), u.ID)
	writeDetail(w, http.StatusOK, "Pro activated.")
}

func (s *Server) handleAdminMetrics(w http.ResponseWriter, _ *http.Request, u *user) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !u.Staff {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	var resp metricsResponse
	joinedToday := 0
	for _, other := range s.st.users {
		if other.Staff {
			continue
		}
		resp.TotalUsers++
		if other.isPro(now) {
			resp.ProUsers++
		}
		if now.Sub(other.Joined) < 24*time.Hour {
			joinedToday++
		}
	}
	resp.DailyGrowth = percent(joinedToday, resp.TotalUsers-joinedToday)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	resp := profileResponse{FullName: u.FullName, SchoolName: u.SchoolName}
	if u.ProfilePicture != "" {
		avatar := u.ProfilePicture
		resp.AvatarURL = &avatar
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, u *user) {
	var req profileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.SchoolName != nil {
		u.SchoolName = strings.TrimSpace(*req.SchoolName)
	}
	resp := profileResponse{FullName: u.FullName, SchoolName: u.SchoolName}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// RemindAll sends an inactivity reminder to every student account.
func (s *Server) RemindAll(ctx context.Context) int {
	s.mu.Lock()
	var ids []int
	for _, u := range s.st.users {
		if u.Verified && !u.Staff && u.PasswordHash != nil {
			ids = append(ids, u.ID)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Notify(ctx, id, "inactivity", "We miss you",
			"A short quiz today keeps your streak alive.")
	}
	return len(ids)
}
