package forms

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T (%v)", err, err)
	return verr
}

func TestRegistrationSteps(t *testing.T) {
	reg := Registration{
		RegistrationDetails: RegistrationDetails{FullName: " A ", SchoolName: ""},
		RegistrationContact: RegistrationContact{Email: "not-an-email", PhoneNumber: "12345"},
		RegistrationPassword: RegistrationPassword{
			Password:        "short",
			ConfirmPassword: "",
		},
	}
	reg.Normalize()

	step1 := validationError(t, reg.CheckStep(1))
	assert.Equal(t, "Full name must be at least 2 characters", step1.Field("full_name"))
	assert.Equal(t, "School name is required", step1.Field("school_name"))

	step2 := validationError(t, reg.CheckStep(2))
	assert.Equal(t, "Please enter a valid email address", step2.Field("email"))
	assert.Equal(t, "Please enter a valid phone number", step2.Field("phone_number"))

	step3 := validationError(t, reg.CheckStep(3))
	assert.Equal(t, "Password must be at least 8 characters long", step3.Field("password"))
	assert.Equal(t, "Please confirm your password", step3.Field("confirm_password"))

	assert.Error(t, reg.CheckStep(4))
}

func TestRegistrationPasswordRules(t *testing.T) {
	cases := []struct {
		password, confirm, field, want string
	}{
		{"alllowercase1", "alllowercase1", "password", "Password must contain uppercase, lowercase, and number"},
		{"NoDigitsHere", "NoDigitsHere", "password", "Password must contain uppercase, lowercase, and number"},
		{"Secret123", "Secret124", "confirm_password", "Passwords don't match"},
	}
	for _, tc := range cases {
		err := Registration{RegistrationPassword: RegistrationPassword{Password: tc.password, ConfirmPassword: tc.confirm}}.CheckStep(3)
		assert.Equal(t, tc.want, validationError(t, err).Field(tc.field), tc.password)
	}

	ok := Registration{RegistrationPassword: RegistrationPassword{Password: "Secret123", ConfirmPassword: "Secret123"}}
	assert.NoError(t, ok.CheckStep(3))
}

func TestRegistrationValid(t *testing.T) {
	reg := Registration{
		RegistrationDetails:  RegistrationDetails{FullName: "Amina Yusuf", SchoolName: "Sheikh Secondary"},
		RegistrationContact:  RegistrationContact{Email: " Amina@Example.com ", PhoneNumber: "+252 63 412 3456"},
		RegistrationPassword: RegistrationPassword{Password: "Secret123", ConfirmPassword: "Secret123"},
	}
	reg.Normalize()
	assert.Equal(t, "amina@example.com", reg.Email)
	for step := 1; step <= 3; step++ {
		assert.NoError(t, reg.CheckStep(step), "step %d", step)
	}
	assert.NoError(t, Check(reg))
}

func TestVerificationCode(t *testing.T) {
	err := Check(Verification{Email: "a@b.so", Code: ""})
	assert.Equal(t, "Please enter the verification code.", validationError(t, err).Field("code"))

	err = Check(Verification{Email: "a@b.so", Code: "12345"})
	assert.Equal(t, "Verification code must be 6 digits.", validationError(t, err).Field("code"))

	assert.NoError(t, Check(Verification{Email: "a@b.so", Code: "123456"}))
}

func TestPasswordChangeMismatch(t *testing.T) {
	err := Check(PasswordChange{OldPassword: "old", NewPassword: "NewPass1", ConfirmPassword: "NewPass2"})
	verr := validationError(t, err)
	assert.Equal(t, "Passwords don't match", verr.Field("confirm_password"))
	assert.Equal(t, "Passwords don't match", verr.Error())
}

func TestActivationRequired(t *testing.T) {
	err := Check(Activation{})
	assert.Equal(t, "Please enter your activation code.", validationError(t, err).Field("activation_code"))
}

func TestCheckAvatar(t *testing.T) {
	assert.NoError(t, CheckAvatar(1024, "image/png"))
	assert.NoError(t, CheckAvatar(MaxAvatarBytes, "image/jpeg"))

	err := CheckAvatar(MaxAvatarBytes+1, "image/png")
	assert.True(t, errors.Is(err, ErrAvatarTooLarge))
	assert.Equal(t, ErrAvatarNotImage, validationError(t, CheckAvatar(10, "application/pdf")).Err)
	assert.Equal(t, ErrAvatarMissing, validationError(t, CheckAvatar(0, "image/png")).Err)
}
