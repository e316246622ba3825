package controllers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/session"
	"wardrobeapi/tasks"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("datauri", models.ValidateDataURI)
	return &CustomValidator{validator: v}
}

// ServerDeps is everything the http surface needs. DB may be nil only for
// routes that do not touch accounts or looks.
type ServerDeps struct {
	DB         *gorm.DB
	Google     services.GoogleServiceProvider
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
	Sessions   *session.Manager
	Tasks      tasks.Enqueuer
	Images     services.ImageProcessor
	Config     services.Config
	Logger     *logrus.Logger
}

func SetupServer(deps ServerDeps) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.AWSService != nil {
		if err := deps.AWSService.InitPresignClient(context.Background()); err != nil {
			deps.Logger.WithError(err).Fatal("Failed to initialize AWS provider: S3")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", deps.DB)
			c.Set("__log", deps.Logger)
			return next(c)
		}
	})
	// portraits and photos travel as base64 data uris
	e.Use(middleware.BodyLimit("25M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "sessions": deps.Sessions.Len()})
	})

	authRequired := JWTMiddleware(deps.Config.JWTSecret)

	authController := AuthController{Google: deps.Google, Sessions: deps.Sessions, Config: deps.Config}
	authController.AuthRoutes(e.Group("/auth"), authRequired)

	sessionMiddlewares := []echo.MiddlewareFunc{authRequired, IdentityMiddleware, SessionMiddleware(deps.Sessions)}

	wardrobeController := WardrobeController{Images: deps.Images, CallTimeout: deps.Config.CallTimeout}
	wardrobeController.WardrobeRoutes(e.Group("/wardrobe", sessionMiddlewares...))

	outfitController := OutfitController{Images: deps.Images}
	outfitController.OutfitRoutes(e.Group("/outfit", sessionMiddlewares...))

	stylistController := StylistController{CallTimeout: deps.Config.CallTimeout}
	stylistController.StylistRoutes(e.Group("/stylist", sessionMiddlewares...))

	looksController := LooksController{Tasks: deps.Tasks, URLCache: deps.URLCache}
	looksController.LooksRoutes(e.Group("/looks", sessionMiddlewares...))

	return e
}
