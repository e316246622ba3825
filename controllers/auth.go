package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/session"
)

type AuthController struct {
	Google   services.GoogleServiceProvider
	Sessions *session.Manager
	Config   services.Config
}

func (m *AuthController) AuthRoutes(g *echo.Group, authRequired echo.MiddlewareFunc) {
	g.POST("/google", m.GoogleSignIn)
	g.POST("/guest", m.GuestSignIn)
	g.POST("/logout", m.Logout, authRequired, IdentityMiddleware)
	g.GET("/me", m.Me, authRequired, IdentityMiddleware)
}

func (m *AuthController) GoogleSignIn(c echo.Context) error {
	googleCreds := new(models.GoogleAuthSignIn)
	if err := c.Bind(googleCreds); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if !models.ValidatePlatformRaw(googleCreds.Platform) {
		return message(c, http.StatusForbidden, "Please provide proper platform parameter")
	}
	if err := c.Validate(googleCreds); err != nil {
		return err
	}

	payload, err := m.Google.ValidateIdToken(c.Request().Context(), googleCreds.IdToken, m.Config.GoogleClientID)
	if err != nil {
		logger(c).WithError(err).Warn("Google id token rejected")
		return message(c, http.StatusForbidden, "Couldn't verify credentials")
	}
	profile, err := services.GoogleProfileOf(payload)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("Error when fetching user data: %w", err))
		return message(c, http.StatusForbidden, "Couldn't verify credentials")
	}
	googleId := profile.Subject

	db, ok := database(c)
	if !ok {
		return message(c, http.StatusInternalServerError, "Database connection error")
	}
	now := time.Now()
	var user models.UserAccount
	r := db.Where("uid = ?", googleId).Limit(1).Find(&user)
	if r.Error != nil {
		sentry.CaptureException(fmt.Errorf("[User %v] lookup on sign in: %w", googleId, r.Error))
		return message(c, http.StatusInternalServerError, "Internal server error")
	}
	if r.RowsAffected > 0 && user.Banned {
		return message(c, http.StatusForbidden, "Sorry, your access is blocked")
	}
	user.UID = googleId
	user.Email = profile.Email
	user.Name = profile.Name
	user.AvatarURL = profile.Picture
	user.LastIp = c.RealIP()
	user.Platform = models.Platform(googleCreds.Platform)
	user.LastSeenAt = &now
	if err := db.Save(&user).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[User %v] save on sign in: %w", googleId, err))
		return message(c, http.StatusInternalServerError, "Internal server error")
	}

	identity := user.Identity()
	token, err := GenerateUserToken(identity, m.Config.JWTSecret)
	if err != nil {
		logger(c).WithError(err).Error("Error when signing user token")
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, models.SignInOut{AccessToken: token, User: identity})
}

// GuestSignIn issues a token for the shared guest identity. Each guest gets
// its own session id so concurrent guests do not share a wardrobe.
func (m *AuthController) GuestSignIn(c echo.Context) error {
	identity := models.Identity{
		UID:       models.GuestUID,
		Name:      "Guest",
		Guest:     true,
		SessionID: uuid.NewString(),
	}
	token, err := GenerateUserToken(identity, m.Config.JWTSecret)
	if err != nil {
		logger(c).WithError(err).Error("Error when signing guest token")
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, models.SignInOut{AccessToken: token, User: identity})
}

// Logout flushes the pending snapshot write and drops the live session.
func (m *AuthController) Logout(c echo.Context) error {
	identity := currentIdentity(c)
	closed := m.Sessions.Close(identity)
	logger(c).WithField("user", identity.SessionKey()).WithField("had_session", closed).Info("Logged out")
	return message(c, http.StatusOK, "Logged out")
}

func (m *AuthController) Me(c echo.Context) error {
	identity := currentIdentity(c)
	if identity.IsGuest() {
		return c.JSON(http.StatusOK, map[string]interface{}{"user": identity})
	}
	db, ok := database(c)
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{"user": identity})
	}
	var user models.UserAccount
	err := db.Where("uid = ?", identity.UID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.ErrUnauthorized
	}
	if err != nil {
		return message(c, http.StatusInternalServerError, "Internal server error")
	}
	if user.Banned {
		return message(c, http.StatusForbidden, "Sorry, your access is blocked")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user.Identity(), "account": user})
}
