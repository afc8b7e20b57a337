package registration

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailShape.MatchString(strings.TrimSpace(email))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	return v
}

// Validate checks required fields first and the email shape second, returning
// the first rejection that applies.
func Validate(c Candidate) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Kind: KindValidation, Message: "invalid registration", Err: err}
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "notblank" {
			return ErrRequiredFields
		}
	}
	return ErrInvalidEmail
}
