package accounts

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
	"printdock.app/api/internal/testinfra"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testinfra.OpenSQLite(t), testinfra.Logger(t), bcrypt.MinCost)
}

func validInput() RegisterInput {
	return RegisterInput{
		Firstname:       "Grace",
		Lastname:        "Hopper",
		Email:           "grace@example.com",
		Username:        "grace_h",
		Phone:           "+1 (555) 010-0000",
		Password:        "Cobol1959",
		ConfirmPassword: "Cobol1959",
	}
}

func countUsers(t *testing.T, s *Service) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(&database.User{}).Count(&n).Error)
	return n
}

func TestRegister_Success(t *testing.T) {
	s := newTestService(t)

	user, err := s.Register(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	require.NotNil(t, user.Username)
	assert.Equal(t, "grace_h", *user.Username)
	assert.NotEqual(t, "Cobol1959", user.Password)

	ok, err := ComparePassword("Cobol1959", user.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_LongestHashablePassword(t *testing.T) {
	s := newTestService(t)
	in := validInput()
	in.Password = "Aa1" + strings.Repeat("x", MaxPasswordBytes-3)
	in.ConfirmPassword = in.Password

	user, err := s.Register(context.Background(), in)
	require.NoError(t, err)
	ok, err := ComparePassword(in.Password, user.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_UsernameOptional(t *testing.T) {
	s := newTestService(t)
	in := validInput()
	in.Username = ""

	user, err := s.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, user.Username)
}

func TestRegister_ValidationMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
		want   string
	}{
		{"missing first name", func(in *RegisterInput) { in.Firstname = "  " }, "firstname", "First name is required"},
		{"short last name", func(in *RegisterInput) { in.Lastname = "H" }, "lastname", "Last name must be at least 2 characters"},
		{"short username", func(in *RegisterInput) { in.Username = "gh" }, "username", "Username must be at least 3 characters"},
		{"username chars", func(in *RegisterInput) { in.Username = "grace-h" }, "username", "Username can only contain letters, numbers, and underscores"},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email", "Email is required"},
		{"bad email", func(in *RegisterInput) { in.Email = "grace@example" }, "email", "Please enter a valid email address"},
		{"missing phone", func(in *RegisterInput) { in.Phone = "" }, "phone", "Phone number is required"},
		{"bad phone", func(in *RegisterInput) { in.Phone = "call me" }, "phone", "Please enter a valid phone number"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "Ab1", "Ab1" }, "password", "Password must be at least 8 characters"},
		{"weak password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "alllowercase1", "alllowercase1" }, "password",
			"Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		{"long password", func(in *RegisterInput) {
			in.Password = "Aa1" + strings.Repeat("x", 80)
			in.ConfirmPassword = in.Password
		}, "password", "Password must be at most 72 bytes"},
		{"long multibyte password", func(in *RegisterInput) {
			in.Password = "Aa1" + strings.Repeat("é", 35)
			in.ConfirmPassword = in.Password
		}, "password", "Password must be at most 72 bytes"},
		{"mismatch", func(in *RegisterInput) { in.ConfirmPassword = "Cobol1960" }, "confirmPassword", "Passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := s.Register(context.Background(), in)

			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Fields[tt.field])
			assert.Zero(t, countUsers(t, s))
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   string
	}{
		{"email", func(in *RegisterInput) { in.Username, in.Phone = "other", "+1 555 999" }, "User already exists with this email"},
		{"username", func(in *RegisterInput) { in.Email, in.Phone = "other@example.com", "+1 555 999" }, "User already exists with this username"},
		{"phone", func(in *RegisterInput) { in.Email, in.Username = "other@example.com", "other" }, "User already exists with this phone number"},
		{"email wins", func(in *RegisterInput) {}, "User already exists with this email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t)
			_, err := s.Register(context.Background(), validInput())
			require.NoError(t, err)

			in := validInput()
			tt.mutate(&in)
			_, err = s.Register(context.Background(), in)

			var conflict *apperr.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.want, conflict.Message)
			assert.Equal(t, int64(1), countUsers(t, s))
		})
	}
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	s := newTestService(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Register(context.Background(), validInput())
			mu.Lock()
			defer mu.Unlock()
			var conflict *apperr.ConflictError
			switch {
			case err == nil:
				successes++
			case assert.ErrorAs(t, err, &conflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 3, conflicts)
	assert.Equal(t, int64(1), countUsers(t, s))
}

func TestLogin(t *testing.T) {
	s := newTestService(t)
	registered, err := s.Register(context.Background(), validInput())
	require.NoError(t, err)

	for _, identifier := range []string{"grace@example.com", "grace_h", "+1 (555) 010-0000"} {
		user, err := s.Login(context.Background(), LoginInput{Identifier: identifier, Password: "Cobol1959"})
		require.NoError(t, err, identifier)
		assert.Equal(t, registered.ID, user.ID)
	}

	_, err = s.Login(context.Background(), LoginInput{Identifier: "grace_h", Password: "Cobol1960"})
	var authErr *apperr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "password", authErr.Field)
	assert.Equal(t, "Incorrect password", authErr.Message)

	_, err = s.Login(context.Background(), LoginInput{Identifier: "nobody", Password: "Cobol1959"})
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "identifier", authErr.Field)
	assert.Equal(t, "No account found with this email, username or phone number", authErr.Message)

	_, err = s.Login(context.Background(), LoginInput{})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"identifier": "Email, username or phone is required",
		"password":   "Password is required",
	}, verr.Fields)
}

func TestCurrentUser(t *testing.T) {
	s := newTestService(t)
	registered, err := s.Register(context.Background(), validInput())
	require.NoError(t, err)

	user, err := s.CurrentUser(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)

	_, err = s.CurrentUser(context.Background(), "7d1f7c2e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = s.CurrentUser(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
