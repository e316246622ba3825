package controllers

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/session"
)

func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.JWT([]byte(secret))
}

// IdentityMiddleware turns the verified token into a models.Identity.
func IdentityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userRaw := c.Get("user")
		if userRaw == nil {
			return echo.ErrUnauthorized
		}
		token, ok := userRaw.(*jwt.Token)
		if !ok {
			return echo.ErrUnauthorized
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.ErrUnauthorized
		}
		identity, err := identityFromClaims(claims)
		if err != nil {
			logger(c).WithError(err).Warn("Error while getting the token information!")
			return echo.ErrUnauthorized
		}
		c.Set("identity", identity)
		return next(c)
	}
}

// SessionMiddleware attaches the live session of the caller. A failed
// restore is reported but the request continues with an empty session.
func SessionMiddleware(manager *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := currentIdentity(c)
			s, err := manager.Open(c.Request().Context(), identity)
			if err != nil {
				logger(c).WithError(err).WithField("user", identity.SessionKey()).Error("Session restore failed")
				sentry.CaptureException(fmt.Errorf("[User %v] session restore: %w", identity.UID, err))
			}
			c.Set("session", s)
			return next(c)
		}
	}
}

func currentIdentity(c echo.Context) models.Identity {
	identity, _ := c.Get("identity").(models.Identity)
	return identity
}

func currentSession(c echo.Context) *session.Session {
	s, _ := c.Get("session").(*session.Session)
	return s
}
