package controllers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/models"
	"wardrobeapi/test"
)

func renderStatus(t *testing.T, a *api, identity models.Identity) models.RenderState {
	t.Helper()
	rec := a.call(identity, http.MethodGet, "/outfit/render", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeJSON[models.RenderState](t, rec)
}

func TestSelectItems(t *testing.T) {
	a := newAPI(t, nil)
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"), extracted("top", "grey", "hoodie"), extracted("bottom", "blue", "jeans"))

	rec := a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[0].ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[2].ID})
	require.Equal(t, http.StatusOK, rec.Code)

	// same category replaces the previous pick
	rec = a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[1].ID})
	out := decodeJSON[OutfitOut](t, rec)
	require.Len(t, out.Outfit, 2)
	assert.Equal(t, items[1].ID, out.Outfit[models.CategoryTop].ID)
	assert.Equal(t, items[2].ID, out.Outfit[models.CategoryBottom].ID)
	assert.False(t, out.HasPortrait)
	assert.Equal(t, models.RenderAwaitingPortrait, out.Render.Status)

	rec = a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveCategoryAndClear(t *testing.T) {
	a := newAPI(t, nil)
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"), extracted("bottom", "blue", "jeans"))
	a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[0].ID})
	a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[1].ID})

	rec := a.call(signedIn, http.MethodDelete, "/outfit/items/Top", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON[OutfitOut](t, rec)
	assert.NotContains(t, out.Outfit, models.CategoryTop)
	assert.Contains(t, out.Outfit, models.CategoryBottom)

	rec = a.call(signedIn, http.MethodDelete, "/outfit/items/Hats", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(signedIn, http.MethodDelete, "/outfit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeJSON[OutfitOut](t, rec)
	assert.Empty(t, out.Outfit)
	assert.Equal(t, models.RenderIdle, out.Render.Status)
}

func TestPortraitTriggersRender(t *testing.T) {
	a := newAPI(t, nil)
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"))
	a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[0].ID})

	rec := a.call(signedIn, http.MethodPut, "/outfit/portrait", PortraitIn{Image: test.TinyPNG})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeJSON[OutfitOut](t, rec).HasPortrait)

	assert.Eventually(t, func() bool {
		return renderStatus(t, a, signedIn).Status == models.RenderRendered
	}, 2*time.Second, 10*time.Millisecond)
	state := renderStatus(t, a, signedIn)
	require.NotNil(t, state.Image)
	assert.Equal(t, test.FakeImage("composite"), *state.Image)

	calls := a.renderer.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, []models.ImageData{items[0].ImageBlob}, calls[len(calls)-1].Garments)

	raw, err := models.ImageData(test.TinyPNG).Bytes()
	require.NoError(t, err)
	portrait := a.call(signedIn, http.MethodGet, "/outfit/portrait", nil)
	require.Equal(t, http.StatusOK, portrait.Code)
	assert.Equal(t, models.NewImageData("image/png", raw), decodeJSON[PortraitIn](t, portrait).Image)
}

func TestRenderFailureKeepsOutfit(t *testing.T) {
	a := newAPI(t, nil)
	a.renderer.Respond = func(portrait models.ImageData, garments []models.ImageData) (models.ImageData, error) {
		return "", errors.New("model overloaded")
	}
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"))
	a.call(signedIn, http.MethodPut, "/outfit/portrait", PortraitIn{Image: test.TinyPNG})
	a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[0].ID})

	assert.Eventually(t, func() bool {
		return renderStatus(t, a, signedIn).Status == models.RenderFailed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Failed to generate try-on image", renderStatus(t, a, signedIn).Error)

	out := decodeJSON[OutfitOut](t, a.call(signedIn, http.MethodGet, "/outfit", nil))
	assert.Len(t, out.Outfit, 1)
}

func TestResetKeepsWardrobe(t *testing.T) {
	a := newAPI(t, nil)
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"))
	a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[0].ID})
	a.call(signedIn, http.MethodPut, "/outfit/portrait", PortraitIn{Image: test.TinyPNG})

	rec := a.call(signedIn, http.MethodPost, "/outfit/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON[OutfitOut](t, rec)
	assert.Empty(t, out.Outfit)
	assert.False(t, out.HasPortrait)
	assert.Nil(t, out.Render.Image)

	assert.Len(t, decodeJSON[ItemsOut](t, a.call(signedIn, http.MethodGet, "/wardrobe/items", nil)).Items, 1)
	assert.Equal(t, http.StatusNotFound, a.call(signedIn, http.MethodGet, "/outfit/portrait", nil).Code)
}

func TestClearPortrait(t *testing.T) {
	a := newAPI(t, nil)
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"))
	a.call(signedIn, http.MethodPut, "/outfit/items", SelectItemIn{ItemID: items[0].ID})
	a.call(signedIn, http.MethodPut, "/outfit/portrait", PortraitIn{Image: test.TinyPNG})

	rec := a.call(signedIn, http.MethodDelete, "/outfit/portrait", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON[OutfitOut](t, rec)
	assert.False(t, out.HasPortrait)
	assert.Equal(t, models.RenderAwaitingPortrait, out.Render.Status)
	assert.Len(t, out.Outfit, 1)
}
