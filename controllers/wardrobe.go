package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

type ImportPhotoIn struct {
	Image models.ImageData `json:"image" validate:"required,datauri"`
}

type ItemsOut struct {
	Items []models.ClothingItem `json:"items"`
}

type WardrobeController struct {
	Images      services.ImageProcessor
	CallTimeout time.Duration
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.POST("/photos", controller.ImportPhoto)
	g.GET("/items", controller.ListItems)
	g.GET("/items/:id", controller.GetItem)
	g.DELETE("/items/:id", controller.DeleteItem)
}

// ImportPhoto extracts the garments of one photo into the wardrobe and
// returns the new items.
func (controller *WardrobeController) ImportPhoto(c echo.Context) error {
	var req ImportPhotoIn
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

	ctx := c.Request().Context()
	if controller.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, controller.CallTimeout)
		defer cancel()
	}
	items, err := currentSession(c).ImportPhoto(ctx, image)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusCreated, ItemsOut{Items: items})
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	category := models.Category(c.QueryParam("category"))
	if category != "" && category != models.CategoryAll && !category.Valid() {
		return message(c, http.StatusBadRequest, "Unknown category")
	}
	items := currentSession(c).Wardrobe(category)
	if items == nil {
		items = []models.ClothingItem{}
	}
	return c.JSON(http.StatusOK, ItemsOut{Items: items})
}

func (controller *WardrobeController) GetItem(c echo.Context) error {
	item, err := currentSession(c).Item(c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	if err := currentSession(c).RemoveItem(c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
