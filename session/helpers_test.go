package session

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"wardrobeapi/models"
	"wardrobeapi/test"
)

type fixture struct {
	session     *Session
	clock       *fakeClock
	renderer    *test.RendererMock
	extractor   *test.ExtractorMock
	recommender *test.RecommenderMock
	store       *test.SnapshotStoreMock
}

var signedIn = models.Identity{UID: "uid-1", Name: "Ada"}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("item-%d", atomic.AddInt64(&n, 1))
	}
}

func newFixture(t *testing.T, identity models.Identity, tweak ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		clock:       &fakeClock{},
		renderer:    test.NewRendererMock(),
		extractor:   &test.ExtractorMock{},
		recommender: &test.RecommenderMock{},
		store:       test.NewSnapshotStoreMock(),
	}
	opts := Options{
		Clock:         f.clock,
		SyncDebounce:  2 * time.Second,
		RenderTimeout: 5 * time.Second,
		Logger:        quietLogger(),
		NewID:         sequentialIDs(),
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	f.session = New(identity, f.collaborators(), opts)
	t.Cleanup(func() {
		// fail anything still queued so Wait cannot hang
		go func() {
			for call := range f.renderer.Pending {
				call.Fail(fmt.Errorf("test finished"))
			}
		}()
		f.session.render.Wait()
	})
	return f
}

func (f *fixture) collaborators() Collaborators {
	return Collaborators{
		Extractor:   f.extractor,
		Renderer:    f.renderer,
		Recommender: f.recommender,
		Cropper:     test.CropperMock{},
		Store:       f.store,
	}
}

// seed puts items straight into the wardrobe without going through extraction.
func (f *fixture) seed(items ...models.ClothingItem) {
	f.session.thread.Do(func() {
		f.session.wardrobe.AddItems(items)
	})
}

func (f *fixture) nextRender(t *testing.T) *test.RenderCall {
	t.Helper()
	call, err := f.renderer.Next(2 * time.Second)
	require.NoError(t, err)
	return call
}

func (f *fixture) waitStatus(t *testing.T, status models.RenderStatus) models.RenderState {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.session.RenderState().Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return f.session.RenderState()
}

func portraitImage() models.ImageData {
	return models.NewImageData("image/jpeg", []byte("portrait"))
}
