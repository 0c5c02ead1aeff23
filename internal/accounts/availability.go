package accounts

import (
	"context"
	"strings"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
)

type AvailabilityInput struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Phone    string `json:"phone" form:"phone"`
}

type Availability struct {
	Available bool            `json:"available"`
	Checks    map[string]bool `json:"checks"`
	Message   string          `json:"message"`
}

type fieldValue struct {
	field, value string
}

func (in AvailabilityInput) provided() []fieldValue {
	var out []fieldValue
	for _, fv := range []fieldValue{
		{"email", strings.TrimSpace(in.Email)},
		{"username", strings.TrimSpace(in.Username)},
		{"phone", strings.TrimSpace(in.Phone)},
	} {
		if fv.value != "" {
			out = append(out, fv)
		}
	}
	return out
}

// CheckAvailability reports which of the provided fields are already held by a user.
// With collectAll unset the first malformed field aborts the check; otherwise every
// format error is returned together.
func (s *Service) CheckAvailability(ctx context.Context, in AvailabilityInput, collectAll bool) (*Availability, error) {
	fields := in.provided()
	if len(fields) == 0 {
		return nil, apperr.Validation("At least one field (email, username, or phone) is required", nil)
	}

	formatErrs := map[string]string{}
	for _, fv := range fields {
		msg := checkFieldFormat(fv.field, fv.value)
		if msg == "" {
			continue
		}
		if !collectAll {
			return nil, apperr.Validation(msg, map[string]string{fv.field: msg})
		}
		formatErrs[fv.field] = msg
	}
	if len(formatErrs) > 0 {
		return nil, apperr.Validation("Validation errors occurred", formatErrs)
	}

	result := &Availability{Available: true, Checks: make(map[string]bool, len(fields))}
	for _, fv := range fields {
		taken, err := database.UserFieldTaken(ctx, s.DB, fv.field, fv.value)
		if err != nil {
			return nil, s.unexpected("check "+fv.field, err)
		}
		result.Checks[fv.field] = taken
		if taken {
			result.Available = false
		}
	}
	if result.Available {
		result.Message = "All fields are available"
	} else {
		result.Message = "One or more fields are already taken"
	}
	return result, nil
}
