package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/models"
)

func TestRenderAwaitsPortrait(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop))

	_, err := f.session.SelectItem("t1")
	require.NoError(t, err)
	assert.Equal(t, models.RenderAwaitingPortrait, f.session.RenderState().Status)
	assert.Empty(t, f.renderer.Calls())

	require.NoError(t, f.session.SetPortrait(portraitImage()))
	state := f.session.RenderState()
	assert.Equal(t, models.RenderRendering, state.Status)
	assert.Equal(t, uint64(1), state.Epoch)

	call := f.nextRender(t)
	assert.Equal(t, portraitImage(), call.Portrait)
	call.Succeed(composite("composite-1"))

	state = f.waitStatus(t, models.RenderRendered)
	require.NotNil(t, state.Image)
	assert.Equal(t, composite("composite-1"), *state.Image)
}

func TestRenderGarmentsFollowCanonicalOrder(t *testing.T) {
	f := newFixture(t, signedIn)
	shoes := item("f1", models.CategoryFootwear)
	top := item("t1", models.CategoryTop)
	f.seed(shoes, top)
	require.NoError(t, f.session.SetPortrait(portraitImage()))

	_, err := f.session.SelectItem("f1")
	require.NoError(t, err)
	f.nextRender(t).Succeed(composite("one"))
	f.waitStatus(t, models.RenderRendered)

	_, err = f.session.SelectItem("t1")
	require.NoError(t, err)
	call := f.nextRender(t)
	assert.Equal(t, []models.ImageData{top.ImageBlob, shoes.ImageBlob}, call.Garments)
	call.Succeed(composite("two"))
	f.waitStatus(t, models.RenderRendered)
}

func TestRenderDiscardsStaleResults(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop), item("b1", models.CategoryBottom))
	require.NoError(t, f.session.SetPortrait(portraitImage()))

	_, err := f.session.SelectItem("t1")
	require.NoError(t, err)
	first := f.nextRender(t)

	_, err = f.session.SelectItem("b1")
	require.NoError(t, err)
	second := f.nextRender(t)
	assert.Len(t, second.Garments, 2)
	assert.Equal(t, uint64(2), f.session.RenderState().Epoch)

	second.Succeed(composite("newest"))
	f.waitStatus(t, models.RenderRendered)

	first.Succeed(composite("stale"))
	f.session.render.Wait()

	state := f.session.RenderState()
	assert.Equal(t, models.RenderRendered, state.Status)
	assert.Equal(t, uint64(2), state.Epoch)
	assert.Equal(t, composite("newest"), *state.Image)
}

func TestRenderStaleFailureIsIgnored(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop), item("b1", models.CategoryBottom))
	require.NoError(t, f.session.SetPortrait(portraitImage()))

	f.session.SelectItem("t1")
	first := f.nextRender(t)
	f.session.SelectItem("b1")
	second := f.nextRender(t)

	first.Fail(errors.New("quota"))
	second.Succeed(composite("ok"))
	f.session.render.Wait()

	state := f.session.RenderState()
	assert.Equal(t, models.RenderRendered, state.Status)
	assert.Empty(t, state.Error)
}

func TestRenderFailureKeepsPreviousImage(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop), item("b1", models.CategoryBottom))
	require.NoError(t, f.session.SetPortrait(portraitImage()))

	f.session.SelectItem("t1")
	f.nextRender(t).Succeed(composite("good"))
	f.waitStatus(t, models.RenderRendered)

	f.session.SelectItem("b1")
	f.nextRender(t).Fail(errors.New("No image was generated in the response."))

	state := f.waitStatus(t, models.RenderFailed)
	assert.Equal(t, renderFailedMessage, state.Error)
	require.NotNil(t, state.Image)
	assert.Equal(t, composite("good"), *state.Image)
	assert.Len(t, f.renderer.Calls(), 2, "failures are not retried")
}

func TestRenderEmptyResultIsFailure(t *testing.T) {
	f := newFixture(t, signedIn)
	f.renderer.Respond = func(models.ImageData, []models.ImageData) (models.ImageData, error) {
		return "", nil
	}
	f.seed(item("t1", models.CategoryTop))
	require.NoError(t, f.session.SetPortrait(portraitImage()))
	f.session.SelectItem("t1")

	f.waitStatus(t, models.RenderFailed)
}

func TestRenderEmptyOutfitGoesIdle(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop))
	require.NoError(t, f.session.SetPortrait(portraitImage()))
	f.session.SelectItem("t1")
	f.nextRender(t).Succeed(composite("composite"))
	f.waitStatus(t, models.RenderRendered)

	f.session.ClearOutfit()

	state := f.session.RenderState()
	assert.Equal(t, models.RenderIdle, state.Status)
	assert.Nil(t, state.Image)
	assert.NotNil(t, f.session.Portrait(), "portrait survives an empty outfit")
	assert.Len(t, f.renderer.Calls(), 1)
}

func TestRenderInFlightResultIgnoredAfterOutfitEmptied(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop))
	require.NoError(t, f.session.SetPortrait(portraitImage()))
	f.session.SelectItem("t1")
	call := f.nextRender(t)

	f.session.RemoveCategory(models.CategoryTop)
	call.Succeed(composite("late"))
	f.session.render.Wait()

	state := f.session.RenderState()
	assert.Equal(t, models.RenderIdle, state.Status)
	assert.Nil(t, state.Image)
}

func TestRenderPortraitChangeClearsImage(t *testing.T) {
	f := newFixture(t, signedIn)
	f.seed(item("t1", models.CategoryTop))
	require.NoError(t, f.session.SetPortrait(portraitImage()))
	f.session.SelectItem("t1")
	f.nextRender(t).Succeed(composite("old-portrait"))
	f.waitStatus(t, models.RenderRendered)

	require.NoError(t, f.session.SetPortrait(models.NewImageData("image/jpeg", []byte("new"))))
	state := f.session.RenderState()
	assert.Equal(t, models.RenderRendering, state.Status)
	assert.Nil(t, state.Image)
	f.nextRender(t).Succeed(composite("new-portrait"))
	f.waitStatus(t, models.RenderRendered)

	f.session.ClearPortrait()
	state = f.session.RenderState()
	assert.Equal(t, models.RenderAwaitingPortrait, state.Status)
	assert.Nil(t, state.Image)
}

func TestRenderDebounceWindowCollapsesBursts(t *testing.T) {
	f := newFixture(t, signedIn, func(o *Options) {
		o.RenderDebounce = 300 * time.Millisecond
	})
	f.seed(item("t1", models.CategoryTop), item("b1", models.CategoryBottom), item("o1", models.CategoryOuterwear))
	require.NoError(t, f.session.SetPortrait(portraitImage()))

	f.session.SelectItem("t1")
	f.session.SelectItem("b1")
	f.session.SelectItem("o1")
	assert.Equal(t, models.RenderRendering, f.session.RenderState().Status)
	assert.Empty(t, f.renderer.Calls(), "nothing dispatched inside the window")

	f.clock.Advance(300 * time.Millisecond)
	call := f.nextRender(t)
	assert.Len(t, call.Garments, 3)
	call.Succeed(composite("settled"))
	f.waitStatus(t, models.RenderRendered)
	assert.Len(t, f.renderer.Calls(), 1)
}

func composite(label string) models.ImageData {
	return models.NewImageData("image/png", []byte(label))
}
