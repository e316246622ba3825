package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/session"
)

type SelectItemIn struct {
	ItemID string `json:"item_id" validate:"required,max=100"`
}

type PortraitIn struct {
	Image models.ImageData `json:"image" validate:"required,datauri"`
}

type OutfitOut struct {
	Outfit      models.Outfit      `json:"outfit"`
	HasPortrait bool               `json:"has_portrait"`
	Render      models.RenderState `json:"render"`
}

type OutfitController struct {
	Images services.ImageProcessor
}

func (controller *OutfitController) OutfitRoutes(g *echo.Group) {
	g.GET("", controller.GetOutfit)
	g.DELETE("", controller.ClearOutfit)
	g.PUT("/items", controller.SelectItem)
	g.DELETE("/items/:category", controller.RemoveCategory)
	g.PUT("/portrait", controller.SetPortrait)
	g.GET("/portrait", controller.GetPortrait)
	g.DELETE("/portrait", controller.ClearPortrait)
	g.POST("/reset", controller.Reset)
	g.GET("/render", controller.GetRender)
}

func outfitOut(s *session.Session) OutfitOut {
	return OutfitOut{
		Outfit:      s.Outfit(),
		HasPortrait: s.Portrait() != nil,
		Render:      s.RenderState(),
	}
}

func (controller *OutfitController) GetOutfit(c echo.Context) error {
	return c.JSON(http.StatusOK, outfitOut(currentSession(c)))
}

func (controller *OutfitController) SelectItem(c echo.Context) error {
	var req SelectItemIn
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	s := currentSession(c)
	if _, err := s.SelectItem(req.ItemID); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, outfitOut(s))
}

func (controller *OutfitController) RemoveCategory(c echo.Context) error {
	category := models.Category(c.Param("category"))
	if !category.Valid() {
		return message(c, http.StatusBadRequest, "Unknown category")
	}
	s := currentSession(c)
	s.RemoveCategory(category)
	return c.JSON(http.StatusOK, outfitOut(s))
}

func (controller *OutfitController) ClearOutfit(c echo.Context) error {
	s := currentSession(c)
	s.ClearOutfit()
	return c.JSON(http.StatusOK, outfitOut(s))
}

func (controller *OutfitController) SetPortrait(c echo.Context) error {
	var req PortraitIn
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	image, err := controller.Images.Normalize(req.Image)
	if err != nil {
		return sessionError(c, err)
	}
	s := currentSession(c)
	if err := s.SetPortrait(image); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, outfitOut(s))
}

func (controller *OutfitController) GetPortrait(c echo.Context) error {
	portrait := currentSession(c).Portrait()
	if portrait == nil {
		return message(c, http.StatusNotFound, "No portrait uploaded")
	}
	return c.JSON(http.StatusOK, PortraitIn{Image: *portrait})
}

func (controller *OutfitController) ClearPortrait(c echo.Context) error {
	s := currentSession(c)
	s.ClearPortrait()
	return c.JSON(http.StatusOK, outfitOut(s))
}

func (controller *OutfitController) Reset(c echo.Context) error {
	s := currentSession(c)
	s.Reset()
	return c.JSON(http.StatusOK, outfitOut(s))
}

func (controller *OutfitController) GetRender(c echo.Context) error {
	return c.JSON(http.StatusOK, currentSession(c).RenderState())
}
