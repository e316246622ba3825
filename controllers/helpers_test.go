package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/session"
	"wardrobeapi/test"
)

type api struct {
	e           *echo.Echo
	sessions    *session.Manager
	extractor   *test.ExtractorMock
	renderer    *test.RendererMock
	recommender *test.RecommenderMock
	store       *test.SnapshotStoreMock
	enqueuer    *test.EnqueuerMock
	aws         *test.AWSProviderMock
}

var (
	signedIn = models.Identity{UID: "uid-1", Name: "Ada"}
	guest    = models.Identity{UID: models.GuestUID, Guest: true, SessionID: "guest-session-1"}
)

func newAPI(t *testing.T, db *gorm.DB) *api {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	a := &api{
		extractor:   &test.ExtractorMock{},
		renderer:    test.NewRendererMock(),
		recommender: &test.RecommenderMock{},
		store:       test.NewSnapshotStoreMock(),
		enqueuer:    &test.EnqueuerMock{},
		aws:         &test.AWSProviderMock{},
	}
	a.renderer.Respond = func(portrait models.ImageData, garments []models.ImageData) (models.ImageData, error) {
		return test.FakeImage("composite"), nil
	}
	a.sessions = session.NewManager(session.Collaborators{
		Extractor:   a.extractor,
		Renderer:    a.renderer,
		Recommender: a.recommender,
		Cropper:     test.CropperMock{},
		Store:       a.store,
	}, session.Options{
		SyncDebounce:  time.Hour,
		RenderTimeout: 5 * time.Second,
		Logger:        logger,
	})
	t.Cleanup(a.sessions.Shutdown)

	urlCache, err := services.NewURLCacheService(a.aws, "bucket", logger)
	require.NoError(t, err)

	a.e = SetupServer(ServerDeps{
		DB:         db,
		Google:     test.GoogleServiceMock{},
		AWSService: a.aws,
		URLCache:   urlCache,
		Sessions:   a.sessions,
		Tasks:      a.enqueuer,
		Images:     services.NewImageProcessor(),
		Config:     serverConfig(),
		Logger:     logger,
	})
	return a
}

func serverConfig() services.Config {
	return services.Config{
		JWTSecret:      test.JWTSecret,
		GoogleClientID: "client-id",
		CallTimeout:    5 * time.Second,
	}
}

func (a *api) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) call(identity models.Identity, method, target string, body interface{}) *httptest.ResponseRecorder {
	return a.do(test.NewJSONAuthRequest(method, target, identity, body))
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeJSON[map[string]interface{}](t, rec)["message"].(string)
}

func extracted(category string, color string, subcategory string) models.ExtractedItem {
	return models.ExtractedItem{
		Category:    category,
		Color:       color,
		Subcategory: subcategory,
		Style:       "casual",
		BoundingBox: models.BoundingBox{YMin: 10, XMin: 10, YMax: 60, XMax: 60},
	}
}

// importItems runs one photo import and returns the created items.
func (a *api) importItems(t *testing.T, identity models.Identity, items ...models.ExtractedItem) []models.ClothingItem {
	t.Helper()
	a.extractor.Items = items
	rec := a.call(identity, http.MethodPost, "/wardrobe/photos", ImportPhotoIn{Image: test.TinyPNG})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[ItemsOut](t, rec).Items
}
