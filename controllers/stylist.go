package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
)

type RecommendIn struct {
	Style string `json:"style" validate:"required,max=100"`
}

type RecommendationOut struct {
	Recommendation *models.SmartOutfitResponse `json:"recommendation"`
}

type StylistController struct {
	CallTimeout time.Duration
}

func (controller *StylistController) StylistRoutes(g *echo.Group) {
	g.GET("/styles", controller.ListStyles)
	g.POST("/recommendations", controller.Recommend)
	g.GET("/recommendations", controller.PendingRecommendation)
	g.POST("/recommendations/apply", controller.Apply)
}

func (controller *StylistController) ListStyles(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"styles": currentSession(c).Styles()})
}

func (controller *StylistController) Recommend(c echo.Context) error {
	var req RecommendIn
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if controller.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, controller.CallTimeout)
		defer cancel()
	}
	resp, err := currentSession(c).Recommend(ctx, req.Style)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, RecommendationOut{Recommendation: resp})
}

func (controller *StylistController) PendingRecommendation(c echo.Context) error {
	return c.JSON(http.StatusOK, RecommendationOut{Recommendation: currentSession(c).PendingRecommendation()})
}

func (controller *StylistController) Apply(c echo.Context) error {
	s := currentSession(c)
	if _, err := s.ApplyRecommendation(); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, outfitOut(s))
}
