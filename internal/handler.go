package internal

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"printdock.app/api/internal/accounts"
	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/config"
	"printdock.app/api/internal/database"
	"printdock.app/api/internal/events"
	"printdock.app/api/internal/middleware"
	"printdock.app/api/internal/recents"
	"printdock.app/api/internal/uploads"
)

const backgroundTimeout = 30 * time.Second

type Handler struct {
	Logger   *logrus.Logger
	Config   *config.Config
	Accounts *accounts.Service
	Uploads  *uploads.Pipeline
	Recents  *recents.Query
	Events   events.Publisher
	Mailer   Mailer // nil disables mail
	Sockets  *SocketHub
}

func invalidBody(err error) error {
	return apperr.Validation("Invalid request body", map[string]string{"general": err.Error()})
}

func (h *Handler) Register(c *gin.Context) {
	var req accounts.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, invalidBody(err))
		return
	}

	user, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	if err := h.createCookie(c, user.ID); err != nil {
		middleware.Abort(c, apperr.Unexpected("save session", err))
		return
	}
	h.welcome(user)

	c.JSON(http.StatusCreated, RegisterRes{
		Success:          true,
		Data:             UserData{User: user},
		PasswordStrength: accounts.PasswordStrength(req.Password, req.UserInputs()...),
	})
}

// welcome announces a new user and sends the welcome email without holding up the response
func (h *Handler) welcome(user *database.User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		err := h.Events.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
			UserID: user.ID,
			Email:  user.Email,
			At:     user.CreatedAt,
		})
		if err != nil {
			h.Logger.Warnf("Failed to publish %s for user %s: %s", events.UserRegistered, user.ID, err)
		}
		if h.Mailer == nil {
			return
		}
		if err := h.Mailer.SendWelcome(ctx, user); err != nil {
			h.Logger.Warnf("Failed to send welcome email to user %s: %s", user.ID, err)
		}
	}()
}

func (h *Handler) Login(c *gin.Context) {
	var req accounts.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, invalidBody(err))
		return
	}

	user, err := h.Accounts.Login(c.Request.Context(), req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	// Set authentication cookie
	if err := h.createCookie(c, user.ID); err != nil {
		middleware.Abort(c, apperr.Unexpected("save session", err))
		return
	}
	c.JSON(http.StatusOK, UserRes{Success: true, Data: UserData{User: user}})
}

// Session returns the user of the current session. Protected has already rejected
// absent and stale sessions.
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, UserRes{Success: true, Data: UserData{User: middleware.CurrentUser(c)}})
}

func (h *Handler) Logout(c *gin.Context) {
	// Clear authentication cookie
	h.destroyCookie(c)
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, MessageRes{Success: true})
		return
	}
	c.Redirect(http.StatusSeeOther, h.Config.EntryURL)
}

// CheckAvailability reports the first malformed field only; CheckAvailabilityAll
// (the POST form) reports all of them.
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req accounts.AvailabilityInput
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.Abort(c, invalidBody(err))
		return
	}
	h.availability(c, req, false)
}

func (h *Handler) CheckAvailabilityAll(c *gin.Context) {
	var req accounts.AvailabilityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, invalidBody(err))
		return
	}
	h.availability(c, req, true)
}

func (h *Handler) availability(c *gin.Context, req accounts.AvailabilityInput, collectAll bool) {
	res, err := h.Accounts.CheckAvailability(c.Request.Context(), req, collectAll)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, AvailabilityRes{
		Success:   true,
		Available: res.Available,
		Checks:    res.Checks,
		Message:   res.Message,
	})
}

func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.Accounts.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		middleware.Abort(c, apperr.Unexpected("database ping", err))
		return
	}
	c.JSON(http.StatusOK, MessageRes{Success: true, Message: "ok"})
}
