package accounts

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"printdock.app/api/internal/apperr"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator with the account rules registered.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister("email_shape", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		mustRegister("username_chars", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		mustRegister("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		mustRegister("password_mix", func(fl validator.FieldLevel) bool {
			return hasCharacterMix(fl.Field().String())
		})
		mustRegister("password_bytes", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= MaxPasswordBytes
		})
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic("accounts: register validation " + tag + ": " + err.Error())
	}
}

func hasCharacterMix(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// fieldMessages maps field -> failed tag -> message shown to the user.
var fieldMessages = map[string]map[string]string{
	"firstname": {
		"required": "First name is required",
		"min":      "First name must be at least 2 characters",
	},
	"lastname": {
		"required": "Last name is required",
		"min":      "Last name must be at least 2 characters",
	},
	"username": {
		"min":            "Username must be at least 3 characters",
		"username_chars": "Username can only contain letters, numbers, and underscores",
	},
	"email": {
		"required":    "Email is required",
		"email_shape": "Please enter a valid email address",
	},
	"phone": {
		"required": "Phone number is required",
		"phone":    "Please enter a valid phone number",
	},
	"password": {
		"required":       "Password is required",
		"min":            "Password must be at least 8 characters",
		"password_mix":   "Password must contain at least one uppercase letter, one lowercase letter, and one number",
		"password_bytes": "Password must be at most 72 bytes",
	},
	"confirmPassword": {
		"eqfield": "Passwords do not match",
	},
	"identifier": {
		"required": "Email, username or phone is required",
	},
}

// validateStruct runs the struct rules and converts failures into a field-keyed
// ValidationError.
func validateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = translate(fe)
	}
	return apperr.Validation("Validation failed", fields)
}

func translate(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()][fe.Tag()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}

// availability rules use shorter wording than the registration form
var availabilityRules = []struct {
	field string
	rules []struct{ tag, message string }
}{
	{"email", []struct{ tag, message string }{
		{"email_shape", "Invalid email format"},
	}},
	{"username", []struct{ tag, message string }{
		{"min=3", "Username must be at least 3 characters"},
		{"username_chars", "Username can only contain letters, numbers, and underscores"},
	}},
	{"phone", []struct{ tag, message string }{
		{"phone", "Invalid phone number format"},
	}},
}

// checkFieldFormat returns the first format message violated by value, or "".
func checkFieldFormat(field, value string) string {
	for _, fr := range availabilityRules {
		if fr.field != field {
			continue
		}
		for _, rule := range fr.rules {
			if getValidator().Var(value, rule.tag) != nil {
				return rule.message
			}
		}
	}
	return ""
}
