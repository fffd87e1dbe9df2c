package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"codeauth/internal/utils"

	"github.com/go-playground/validator/v10"
)

const verificationCodeLength = 6

// NewValidator returns a validator that reports fields by their json names
// and knows the strong_password and verification_code tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strong_password", strongPassword)
	_ = v.RegisterValidation("verification_code", verificationCode)
	return v
}

// strongPassword requires a lowercase letter, an uppercase letter and a digit.
func strongPassword(fl validator.FieldLevel) bool {
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

// verificationCode accepts exactly six ASCII digits. The numeric tag would
// also let through signs and decimal points.
func verificationCode(fl validator.FieldLevel) bool {
	return utils.IsNumericCode(fl.Field().String(), verificationCodeLength)
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "verification_code":
		return fmt.Sprintf("must be exactly %d digits", verificationCodeLength)
	case "oneof":
		return "must be one of: " + fe.Param()
	case "strong_password":
		return "must contain a lowercase letter, an uppercase letter and a digit"
	case "nefield":
		return "must differ from the current password"
	default:
		return "is invalid"
	}
}
