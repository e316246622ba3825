package controllers

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
)

const looksPageSize = 50

type SaveLookIn struct {
	Style *string `json:"style" validate:"omitempty,max=100"`
}

type LooksController struct {
	Tasks    tasks.Enqueuer
	URLCache services.URLCacheServiceProvider
}

func (controller *LooksController) LooksRoutes(g *echo.Group) {
	g.POST("", controller.SaveLook)
	g.GET("", controller.ListLooks)
}

// SaveLook archives the current outfit and composite. The upload happens in
// the worker; the row stays pending until then.
func (controller *LooksController) SaveLook(c echo.Context) error {
	identity := currentIdentity(c)
	if identity.IsGuest() {
		return message(c, http.StatusForbidden, "Please sign in to save your looks")
	}
	var req SaveLookIn
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	s := currentSession(c)
	outfit := s.Outfit()
	if len(outfit) == 0 {
		return message(c, http.StatusUnprocessableEntity, "Select some clothes before saving a look")
	}
	db, ok := database(c)
	if !ok {
		return message(c, http.StatusInternalServerError, "Database connection error")
	}

	look := models.ArchivedLook{
		UserID: identity.UID,
		Items:  models.LookItems(outfit),
		Style:  req.Style,
		Status: models.LookPending,
	}
	if err := db.Create(&look).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[User %v] create look: %w", identity.UID, err))
		return message(c, http.StatusInternalServerError, "Internal server error")
	}

	payload := tasks.ArchiveLookPayload{LookID: look.ID, UserID: identity.UID}
	if render := s.RenderState(); render.Image != nil {
		payload.Image = *render.Image
	}
	info, err := tasks.EnqueueArchiveLook(controller.Tasks, payload)
	if err != nil {
		db.Model(&look).Update("status", models.LookFailed)
		logger(c).WithError(err).WithField("look", look.ID).Error("Failed to enqueue look archive")
		sentry.CaptureException(fmt.Errorf("[Look %v] enqueue archive: %w", look.ID, err))
		return message(c, http.StatusBadGateway, "Failed to save look, please try again")
	}
	logger(c).WithField("look", look.ID).WithField("task", info.ID).Info("Look archive enqueued")
	return c.JSON(http.StatusAccepted, look)
}

func (controller *LooksController) ListLooks(c echo.Context) error {
	identity := currentIdentity(c)
	if identity.IsGuest() {
		return c.JSON(http.StatusOK, map[string]interface{}{"looks": []models.ArchivedLookOut{}})
	}
	db, ok := database(c)
	if !ok {
		return message(c, http.StatusInternalServerError, "Database connection error")
	}
	var looks []models.ArchivedLook
	if err := db.Where("user_id = ?", identity.UID).Order("created_at desc").Limit(looksPageSize).Find(&looks).Error; err != nil {
		return message(c, http.StatusInternalServerError, "Internal server error")
	}

	out := make([]models.ArchivedLookOut, 0, len(looks))
	for _, look := range looks {
		item := models.ArchivedLookOut{ArchivedLook: look}
		if look.ImageKey != nil && controller.URLCache != nil {
			url, err := controller.URLCache.GetReadURL(c.Request().Context(), *look.ImageKey)
			if err != nil {
				logger(c).WithError(err).WithField("look", look.ID).Warn("Failed to presign look image")
			}
			item.ImageURL = url
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"looks": out})
}
