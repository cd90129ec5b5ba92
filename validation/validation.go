package validation

import (
	"errors"

	"postboard/apperrors"

	"github.com/go-playground/validator/v10"
)

const (
	MsgAllFieldsRequired = "All fields are required"
	MsgInvalidEmail      = "Invalid email"
)

var validate = validator.New()

// ContactForm is the body of POST /api/contact. The email check is
// deliberately shallow: any value containing "@" passes.
type ContactForm struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,contains=@"`
	Message string `json:"message" validate:"required"`
}

// Credentials carries a username and password for account operations.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ValidateContactForm reports a missing field before a malformed email.
func ValidateContactForm(form ContactForm) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return apperrors.NewValidationError("", MsgAllFieldsRequired)
		}
	}
	return apperrors.NewValidationError("", MsgInvalidEmail)
}

// ValidateCredentials checks username and password lengths.
func ValidateCredentials(c Credentials) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperrors.NewValidationError(fe.Field(), "is required")
	case "min":
		return apperrors.NewValidationError(fe.Field(), "must be at least "+fe.Param()+" characters")
	case "max":
		return apperrors.NewValidationError(fe.Field(), "must be at most "+fe.Param()+" characters")
	default:
		return apperrors.NewValidationError(fe.Field(), "is invalid")
	}
}
