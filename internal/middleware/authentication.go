package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
)

const (
	// SessionName is the name of the session cookie.
	SessionName = "userId"
	// SessionUserKey is the session value holding the user id.
	SessionUserKey = "id"

	UserIDKey = "user_id"
	UserKey   = "user"
)

type UserResolver interface {
	CurrentUser(ctx context.Context, userID string) (*database.User, error)
}

// Protected only calls next for requests whose session references an existing user.
// A session pointing at a user that no longer exists is expired.
func Protected(users UserResolver, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(SessionUserKey).(string)
		if !ok || userID == "" {
			Abort(c, apperr.ErrUnauthenticated)
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), userID)
		if errors.Is(err, apperr.ErrUnauthenticated) {
			ExpireSession(c)
			Abort(c, err)
			return
		}
		if err != nil {
			Abort(c, err)
			return
		}

		// Populate request with session values
		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)

		next(c)
	}
}

// ExpireSession clears the session and tells the browser to drop the cookie.
func ExpireSession(c *gin.Context) {
	session := sessions.Default(c)
	session.Options(sessions.Options{
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	session.Clear()
	_ = session.Save()
}

// CurrentUser returns the user stored by Protected.
func CurrentUser(c *gin.Context) *database.User {
	user, _ := c.Get(UserKey)
	u, _ := user.(*database.User)
	return u
}
