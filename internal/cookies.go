package internal

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"printdock.app/api/internal/middleware"
)

// used when ALLOWED_ORIGINS is empty, the front end's dev server
var defaultOrigins = []string{"http://localhost:3000"}

// InitCors creates the cors middleware for the configured origins
func (h *Handler) InitCors() gin.HandlerFunc {
	origins := h.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowCredentials: true,
		AllowHeaders:     []string{"content-type", "accept"},
		MaxAge:           12 * time.Hour,
	})
}

// InitCookieStore creates the signed cookie session store and returns its middleware
func (h *Handler) InitCookieStore() gin.HandlerFunc {
	store := cookie.NewStore([]byte(h.Config.CookieAuthKey))
	return sessions.Sessions(middleware.SessionName, store)
}

// creates the session cookie for userID and writes it on this gin context
func (h *Handler) createCookie(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(h.Config.CookieDuration.Seconds()),
		Secure:   h.Config.Production,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	session.Set(middleware.SessionUserKey, userID)
	return session.Save()
}

// deletes the session cookie for this gin context
func (h *Handler) destroyCookie(c *gin.Context) {
	middleware.ExpireSession(c)
}
