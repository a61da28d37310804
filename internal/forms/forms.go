package forms

import (
	"strings"

	"github.com/pkg/errors"
)

type RegistrationDetails struct {
	FullName   string `json:"full_name" validate:"required,min=2"`
	SchoolName string `json:"school_name" validate:"required,min=2"`
}

type RegistrationContact struct {
	Email       string `json:"email" validate:"required,kaabe_email"`
	PhoneNumber string `json:"phone_number" validate:"required,kaabe_phone"`
}

type RegistrationPassword struct {
	Password        string `json:"password" validate:"required,password_len,password_mix"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Registration is filled in three steps; each step is checked on its own
// before moving on.
type Registration struct {
	RegistrationDetails
	RegistrationContact
	RegistrationPassword
}

func (r *Registration) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.SchoolName = strings.TrimSpace(r.SchoolName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

func (r Registration) CheckStep(step int) error {
	switch step {
	case 1:
		return Check(r.RegistrationDetails)
	case 2:
		return Check(r.RegistrationContact)
	case 3:
		return Check(r.RegistrationPassword)
	}
	return errors.Errorf("registration has no step %d", step)
}

type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Verification struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required,code6"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,kaabe_email"`
}

type PasswordResetConfirm struct {
	Email           string `json:"email" validate:"required"`
	Code            string `json:"code" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type PasswordChange struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type Activation struct {
	Code string `json:"activation_code" validate:"required"`
}

type Feedback struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,kaabe_email"`
	Message string `json:"message" validate:"required"`
}

type ProfileEdit struct {
	FullName   string `json:"full_name" validate:"required,min=2"`
	SchoolName string `json:"school_name"`
}

const MaxAvatarBytes = 5 * 1024 * 1024

var (
	ErrAvatarTooLarge = errors.New("Please select an image under 5MB")
	ErrAvatarNotImage = errors.New("Please select an image file")
	ErrAvatarMissing  = errors.New("Please select a profile picture to upload")
)

// CheckAvatar applies the upload limits: at most 5 MB and an image/* type.
func CheckAvatar(size int64, contentType string) error {
	if size <= 0 {
		return NewValidationError(ErrAvatarMissing, FieldError{Field: "profile_picture", Error: ErrAvatarMissing.Error()})
	}
	if size > MaxAvatarBytes {
		return NewValidationError(ErrAvatarTooLarge, FieldError{Field: "profile_picture", Error: ErrAvatarTooLarge.Error()})
	}
	if !strings.HasPrefix(contentType, "image/") {
		return NewValidationError(ErrAvatarNotImage, FieldError{Field: "profile_picture", Error: ErrAvatarNotImage.Error()})
	}
	return nil
}
