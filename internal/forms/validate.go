package forms

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	emailTag       = "kaabe_email"
	phoneTag       = "kaabe_phone"
	passwordLenTag = "password_len"
	passwordMixTag = "password_mix"
	codeTag        = "code6"

	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^[+]?[0-9\s\-()]{10,}$`)
	codeRegex  = regexp.MustCompile(`^\d{6}$`)
)

// messages that belong to one field rather than to a tag
var fieldMessages = map[string]string{
	"confirm_password.required": "Please confirm your password",
	"code.required":             "Please enter the verification code.",
	"activation_code.required":  "Please enter your activation code.",
}

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(emailTag, regexValidation(emailRegex))
	_ = Validate.RegisterValidation(phoneTag, regexValidation(phoneRegex))
	_ = Validate.RegisterValidation(codeTag, regexValidation(codeRegex))
	_ = Validate.RegisterValidation(passwordLenTag, passwordLenValidation)
	_ = Validate.RegisterValidation(passwordMixTag, passwordMixValidation)

	RegisterCustomTranslation("required", "{0} is required", true)
	RegisterCustomTranslation("min", "{0} must be at least {1} characters", true)
	RegisterCustomTranslation("eqfield", "Passwords don't match", true)
	RegisterCustomTranslation(emailTag, "Please enter a valid email address")
	RegisterCustomTranslation(phoneTag, "Please enter a valid phone number")
	RegisterCustomTranslation(codeTag, "Verification code must be 6 digits.")
	RegisterCustomTranslation(passwordLenTag, "{0} must be at least 8 characters long")
	RegisterCustomTranslation(passwordMixTag, "{0} must contain uppercase, lowercase, and number")
}

// RegisterCustomTranslation registers the message for a validation tag. {0}
// is the field label and {1} the tag parameter.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, Label(fe.Field()), fe.Param())
			return s
		},
	)
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func passwordLenValidation(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) >= 8
}

// passwordMixValidation requires at least one lower case letter, one upper
// case letter and one digit.
func passwordMixValidation(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// Label turns a JSON field name into the text shown to the user.
func Label(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// Check validates a form struct and returns a *ValidationError listing every
// failing field in declaration order.
func Check(form interface{}) error {
	err := Validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Translate(Translator)
		}
		fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return NewValidationError(nil, fields...)
}
