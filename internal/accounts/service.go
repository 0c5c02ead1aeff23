// Package accounts implements registration, login and the availability check for the
// identifying fields of a user.
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
)

type RegisterInput struct {
	Firstname       string `json:"firstname" validate:"required,min=2"`
	Lastname        string `json:"lastname" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email_shape"`
	Username        string `json:"username" validate:"omitempty,min=3,username_chars"`
	Phone           string `json:"phone" validate:"required,phone"`
	Password        string `json:"password" validate:"required,min=8,password_mix,password_bytes"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// normalize trims the identifying and name fields. Passwords are used verbatim.
func (in *RegisterInput) normalize() {
	in.Firstname = strings.TrimSpace(in.Firstname)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Phone = strings.TrimSpace(in.Phone)
}

// UserInputs lists the values zxcvbn should penalise when scoring the password.
func (in RegisterInput) UserInputs() []string {
	return []string{in.Firstname, in.Lastname, in.Email, in.Username, in.Phone}
}

type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type Service struct {
	DB         *gorm.DB
	Logger     logrus.FieldLogger
	BcryptCost int
}

func NewService(db *gorm.DB, logger logrus.FieldLogger, bcryptCost int) *Service {
	return &Service{DB: db, Logger: logger, BcryptCost: bcryptCost}
}

// Register validates in, rejects duplicates of email, username or phone and stores the
// new user with a bcrypt hash of the password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*database.User, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	existing, err := database.GetConflictingUser(ctx, s.DB, in.Email, in.Username, in.Phone)
	if err != nil {
		return nil, s.unexpected("look up existing user", err)
	}
	if existing != nil {
		return nil, conflictWith(existing, in)
	}

	hash, err := HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return nil, s.unexpected("hash password", err)
	}

	user := &database.User{
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		Email:     in.Email,
		Phone:     in.Phone,
		Password:  hash,
	}
	if in.Username != "" {
		user.Username = &in.Username
	}

	err = database.CreateUser(ctx, s.DB, user)
	var dup *database.DuplicateKeyError
	if errors.As(err, &dup) {
		// a concurrent registration won the race; report it like the pre-check would
		return nil, s.raceConflict(ctx, dup, in)
	}
	if err != nil {
		return nil, s.unexpected("create user", err)
	}

	s.Logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *Service) raceConflict(ctx context.Context, dup *database.DuplicateKeyError, in RegisterInput) error {
	if field := fieldForConstraint(dup.Constraint); field != "" {
		return conflictOn(field)
	}
	existing, err := database.GetConflictingUser(ctx, s.DB, in.Email, in.Username, in.Phone)
	if err != nil || existing == nil {
		return conflictOn("email")
	}
	return conflictWith(existing, in)
}

func fieldForConstraint(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "email"
	case strings.Contains(constraint, "username"):
		return "username"
	case strings.Contains(constraint, "phone"):
		return "phone"
	}
	return ""
}

// conflictWith names the first identifying field of in that existing already holds,
// checking email, then username, then phone.
func conflictWith(existing *database.User, in RegisterInput) error {
	switch {
	case existing.Email == in.Email:
		return conflictOn("email")
	case in.Username != "" && existing.Username != nil && *existing.Username == in.Username:
		return conflictOn("username")
	case existing.Phone == in.Phone:
		return conflictOn("phone")
	}
	return conflictOn("email")
}

func conflictOn(field string) *apperr.ConflictError {
	label := field
	if field == "phone" {
		label = "phone number"
	}
	return &apperr.ConflictError{Field: field, Message: "User already exists with this " + label}
}

// Login resolves the identifier against email, username and phone and checks the password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*database.User, error) {
	in.Identifier = strings.TrimSpace(in.Identifier)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := database.GetUserByIdentifier(ctx, s.DB, in.Identifier)
	if err != nil {
		return nil, s.unexpected("look up user", err)
	}
	if user == nil {
		return nil, &apperr.AuthenticationError{
			Field:   "identifier",
			Message: "No account found with this email, username or phone number",
		}
	}

	ok, err := ComparePassword(in.Password, user.Password)
	if err != nil {
		return nil, s.unexpected("compare password", err)
	}
	if !ok {
		return nil, &apperr.AuthenticationError{Field: "password", Message: "Incorrect password"}
	}
	return user, nil
}

// CurrentUser returns the user referenced by a session. A missing user yields
// apperr.ErrUnauthenticated so the caller can drop the stale session.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*database.User, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	user, err := database.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		return nil, s.unexpected("look up session user", err)
	}
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return user, nil
}

func (s *Service) unexpected(op string, err error) error {
	s.Logger.WithError(err).Errorf("accounts: %s", op)
	return apperr.Unexpected(op, err)
}
