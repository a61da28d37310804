package mockapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxAvatarBytes = 5 << 20

type registerRequest struct {
	FullName    string `json:"full_name" validate:"required,min=2"`
	SchoolName  string `json:"school_name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
}

type codeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetConfirmRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type feedbackRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

type meResponse struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	SchoolName     string `json:"school_name"`
	PhoneNumber    string `json:"phone_number"`
	IsVerified     bool   `json:"is_verified"`
	IsStaff        bool   `json:"is_staff"`
	Onboarded      bool   `json:"onboarding_completed"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

type staffLoginResponse struct {
	Access      string `json:"access,omitempty"`
	Refresh     string `json:"refresh,omitempty"`
	OTPRequired bool   `json:"otp_required"`
	Detail      string `json:"detail,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		s.log.Error("register failed", "err", err)
		writeDetail(w, http.StatusInternalServerError, "Registration failed.")
		return
	}

	s.mu.Lock()
	if s.st.userByEmail(email) != nil {
		s.mu.Unlock()
		writeFieldError(w, "email", "user with this email already exists.")
		return
	}
	s.st.nextUserID++
	u := &user{
		ID:           s.st.nextUserID,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		SchoolName:   strings.TrimSpace(req.SchoolName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		PasswordHash: hash,
		Joined:       s.opts.Now(),
	}
	s.st.users[u.ID] = u
	s.st.verifyCodes[email] = s.sendCode("verify", email)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, detailResponse{Detail: "Verification code sent."})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	u := s.st.userByEmail(email)
	switch {
	case u == nil:
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	case u.Verified:
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "User already verified.")
		return
	case s.st.verifyCodes[email] != strings.TrimSpace(req.Code):
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Invalid verification code.")
		return
	}
	u.Verified = true
	delete(s.st.verifyCodes, email)
	s.st.addNotification(u.ID, "welcome", "Welcome to Kaabe",
		"Your account is ready. Pick a subject on the dashboard to start.", s.opts.Now())
	pair, err := s.tokens.pair(u)
	s.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
		return
	}
	s.publish(r.Context(), u.ID)
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.userByEmail(email)
	if u == nil {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	if u.Verified {
		writeDetail(w, http.StatusBadRequest, "User already verified.")
		return
	}
	s.st.verifyCodes[email] = s.sendCode("verify", email)
	writeDetail(w, http.StatusOK, "Verification code resent.")
}

// checkCredentials returns the user when the password matches.
func (s *Server) checkCredentials(email, password string) *user {
	s.mu.Lock()
	u := s.st.userByEmail(email)
	s.mu.Unlock()
	if u == nil || u.PasswordHash == nil {
		return nil
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil
	}
	return u
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u := s.checkCredentials(req.Email, req.Password)
	if u == nil {
		loginAttempts.WithLabelValues("student", "failure").Inc()
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	s.mu.Lock()
	verified := u.Verified
	pair, err := s.tokens.pair(u)
	s.mu.Unlock()
	if !verified {
		loginAttempts.WithLabelValues("student", "unverified").Inc()
		writeDetail(w, http.StatusForbidden, "Please verify your email before logging in.")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
		return
	}
	loginAttempts.WithLabelValues("student", "success").Inc()
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u := s.checkCredentials(req.Email, req.Password)
	if u == nil {
		loginAttempts.WithLabelValues("staff", "failure").Inc()
		writeDetail(w, http.StatusUnauthorized, "Invalid e-mail or password.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !u.Staff {
		loginAttempts.WithLabelValues("staff", "forbidden").Inc()
		writeDetail(w, http.StatusForbidden, "Staff access only.")
		return
	}
	if u.StaffOTP {
		s.st.otpCodes[u.Email] = s.sendCode("staff", u.Email)
		writeJSON(w, http.StatusOK, staffLoginResponse{OTPRequired: true, Detail: "Code sent."})
		return
	}
	pair, err := s.tokens.pair(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
		return
	}
	loginAttempts.WithLabelValues("staff", "success").Inc()
	writeJSON(w, http.StatusOK, staffLoginResponse{Access: pair.Access, Refresh: pair.Refresh})
}

func (s *Server) handleStaffVerify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.userByEmail(email)
	code, ok := s.st.otpCodes[email]
	if u == nil || !ok || code != strings.TrimSpace(req.Code) {
		loginAttempts.WithLabelValues("staff", "bad_code").Inc()
		writeDetail(w, http.StatusBadRequest, "Wrong or expired code.")
		return
	}
	delete(s.st.otpCodes, email)
	pair, err := s.tokens.pair(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens.")
		return
	}
	loginAttempts.WithLabelValues("staff", "success").Inc()
	writeJSON(w, http.StatusOK, pair)
}

// handlePasswordReset answers the same way whether or not the account
// exists.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	if s.st.userByEmail(email) != nil {
		s.st.resetCodes[email] = s.sendCode("reset", email)
	}
	s.mu.Unlock()
	writeDetail(w, http.StatusOK, "If the account exists, a reset code has been sent.")
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Password reset failed.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.userByEmail(email)
	code, ok := s.st.resetCodes[email]
	if u == nil || !ok || code != strings.TrimSpace(req.Code) {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired code.")
		return
	}
	delete(s.st.resetCodes, email)
	u.PasswordHash = hash
	writeDetail(w, http.StatusOK, "Password has been reset.")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, u *user) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	current := u.PasswordHash
	s.mu.Unlock()
	if bcrypt.CompareHashAndPassword(current, []byte(req.OldPassword)) != nil {
		writeFieldError(w, "old_password", "Wrong password.")
		return
	}
	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Password change failed.")
		return
	}
	s.mu.Lock()
	u.PasswordHash = hash
	s.mu.Unlock()
	writeDetail(w, http.StatusOK, "Password updated.")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.tokens.parse(req.Refresh, tokenRefresh); err != nil {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	s.mu.Lock()
	s.st.revoked[req.Refresh] = true
	s.mu.Unlock()
	writeDetail(w, http.StatusOK, "Logged out.")
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	s.st.feedback = append(s.st.feedback, req)
	s.mu.Unlock()
	s.log.Info("feedback received", "email", req.Email)
	writeDetail(w, http.StatusOK, "received")
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	resp := meResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		SchoolName:     u.SchoolName,
		PhoneNumber:    u.PhoneNumber,
		IsVerified:     u.Verified,
		IsStaff:        u.Staff,
		Onboarded:      u.Onboarded,
		ProfilePicture: u.ProfilePicture,
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	u.Onboarded = true
	s.mu.Unlock()
	writeDetail(w, http.StatusOK, "Onboarding completed.")
}

func (s *Server) handleUploadProfilePicture(w http.ResponseWriter, r *http.Request, u *user) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+1<<16)
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		writeFieldError(w, "profile_picture", "No file was submitted.")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		writeFieldError(w, "profile_picture", "Upload a valid image.")
		return
	}
	n, err := io.Copy(io.Discard, file)
	if err != nil || n > maxAvatarBytes {
		writeFieldError(w, "profile_picture", "The image must be 5 MB or smaller.")
		return
	}

	url := "/media/avatars/" + uuid.New().String() + strings.ToLower(filepath.Ext(header.Filename))
	s.mu.Lock()
	u.ProfilePicture = url
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"profile_picture": url})
}
