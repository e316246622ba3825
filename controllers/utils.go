package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/session"
)

const tokenLifetime = 72 * time.Hour

func StrPointer(b string) *string {
	return &b
}

func GenerateUserToken(identity models.Identity, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     identity.UID,
		"name":    identity.Name,
		"picture": identity.Picture,
		"guest":   identity.IsGuest(),
		"exp":     time.Now().Add(tokenLifetime).Unix(),
		"iat":     time.Now().Unix(),
	}
	if identity.SessionID != "" {
		claims["sid"] = identity.SessionID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func identityFromClaims(claims jwt.MapClaims) (models.Identity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Identity{}, errors.New("token has no subject")
	}
	identity := models.Identity{UID: sub}
	identity.Name, _ = claims["name"].(string)
	identity.Picture, _ = claims["picture"].(string)
	identity.Guest, _ = claims["guest"].(bool)
	identity.SessionID, _ = claims["sid"].(string)
	if identity.IsGuest() && identity.SessionID == "" {
		return models.Identity{}, errors.New("guest token without session id")
	}
	return identity, nil
}

func logger(c echo.Context) *logrus.Logger {
	if l, ok := c.Get("__log").(*logrus.Logger); ok && l != nil {
		return l
	}
	return logrus.StandardLogger()
}

func database(c echo.Context) (*gorm.DB, bool) {
	db, ok := c.Get("__db").(*gorm.DB)
	return db, ok && db != nil
}

func message(c echo.Context, code int, text string) error {
	return c.JSON(code, map[string]interface{}{"message": text})
}

// sessionError maps session failures to responses. Collaborator failures
// are reported as 502 with a message the client can show as is.
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrItemNotFound):
		return message(c, http.StatusNotFound, "Item not found")
	case errors.Is(err, session.ErrInvalidImage), errors.Is(err, models.ErrMalformedImage):
		return message(c, http.StatusBadRequest, "Please provide a valid image")
	case errors.Is(err, session.ErrUnknownStyle):
		return message(c, http.StatusBadRequest, "Unknown style")
	case errors.Is(err, session.ErrEmptyWardrobe):
		return message(c, http.StatusUnprocessableEntity, "Your wardrobe is empty, add some clothes first")
	case errors.Is(err, session.ErrNoRecommendation):
		return message(c, http.StatusConflict, "There is no recommendation to apply")
	case errors.Is(err, session.ErrSessionClosed):
		return message(c, http.StatusConflict, "Session was closed, please try again")
	case errors.Is(err, session.ErrExtractionFailed):
		return message(c, http.StatusBadGateway, "Failed to analyze image")
	case errors.Is(err, session.ErrRecommendationFailed):
		return message(c, http.StatusBadGateway, "Failed to generate outfit recommendations")
	}
	identity := currentIdentity(c)
	logger(c).WithError(err).WithField("user", identity.SessionKey()).Error("Unexpected session error")
	sentry.CaptureException(fmt.Errorf("[User %v] %s %s: %w", identity.UID, c.Request().Method, c.Path(), err))
	return message(c, http.StatusInternalServerError, "Internal server error")
}
