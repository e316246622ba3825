package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/test"
)

func TestGuestSignIn(t *testing.T) {
	a := newAPI(t, nil)

	rec := a.do(test.NewJSONRequest(http.MethodPost, "/auth/guest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON[models.SignInOut](t, rec)
	assert.NotEmpty(t, out.AccessToken)
	assert.True(t, out.User.IsGuest())
	assert.NotEmpty(t, out.User.SessionID)

	me := a.do(test.NewJSONAuthRequestCustomAuth(http.MethodGet, "/auth/me", "Bearer "+out.AccessToken, nil))
	require.Equal(t, http.StatusOK, me.Code)
	user := decodeJSON[map[string]models.Identity](t, me)["user"]
	assert.Equal(t, out.User.SessionID, user.SessionID)

	second := decodeJSON[models.SignInOut](t, a.do(test.NewJSONRequest(http.MethodPost, "/auth/guest", nil)))
	assert.NotEqual(t, out.User.SessionID, second.User.SessionID)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t, nil)
	rec := a.do(test.NewJSONRequest(http.MethodGet, "/outfit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(test.NewJSONAuthRequestCustomAuth(http.MethodGet, "/outfit", "Bearer not-a-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, a.sessions.Len())
}

func TestGoogleSignInRejectsBadInput(t *testing.T) {
	a := newAPI(t, nil)

	rec := a.do(test.NewJSONRequest(http.MethodPost, "/auth/google", models.GoogleAuthSignIn{IdToken: "tok", Platform: "windows"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(test.NewJSONRequest(http.MethodPost, "/auth/google", models.GoogleAuthSignIn{Platform: "ios"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleSignInInvalidToken(t *testing.T) {
	a := newAPI(t, nil)
	a.e = SetupServer(ServerDeps{
		Google:   test.GoogleServiceMock{Err: errors.New("expired")},
		Sessions: a.sessions,
		Config:   serverConfig(),
	})
	rec := a.do(test.NewJSONRequest(http.MethodPost, "/auth/google", models.GoogleAuthSignIn{IdToken: "tok", Platform: "ios"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Couldn't verify credentials", messageOf(t, rec))
}

func TestGoogleSignIn(t *testing.T) {
	db := dbhelper.SetupTestDB(t)
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	a := newAPI(t, db)

	rec := a.do(test.NewJSONRequest(http.MethodPost, "/auth/google", models.GoogleAuthSignIn{IdToken: "tok", Platform: "ios"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeJSON[models.SignInOut](t, rec)
	assert.Equal(t, "123googleid", out.User.UID)
	assert.False(t, out.User.IsGuest())

	var user models.UserAccount
	require.NoError(t, db.Where("uid = ?", "123googleid").First(&user).Error)
	assert.Equal(t, "fake@example.com", user.Email)
	assert.Equal(t, models.PlatformIOS, user.Platform)

	// signing in again updates the same row
	rec = a.do(test.NewJSONRequest(http.MethodPost, "/auth/google", models.GoogleAuthSignIn{IdToken: "tok", Platform: "android"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var count int64
	db.Model(&models.UserAccount{}).Where("uid = ?", "123googleid").Count(&count)
	assert.Equal(t, int64(1), count)

	db.Model(&user).Update("banned", true)
	rec = a.do(test.NewJSONRequest(http.MethodPost, "/auth/google", models.GoogleAuthSignIn{IdToken: "tok", Platform: "ios"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogoutFlushesPendingSnapshot(t *testing.T) {
	a := newAPI(t, nil)
	items := a.importItems(t, signedIn, extracted("top", "white", "tee"))
	require.Len(t, items, 1)
	assert.Zero(t, a.store.Saves(), "writes are debounced")

	rec := a.call(signedIn, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, a.sessions.Len())

	saved, ok := a.store.Get(signedIn.UID)
	require.True(t, ok)
	assert.Equal(t, items, saved.WardrobeItems)
}

func TestSessionIsRestoredAfterLogout(t *testing.T) {
	a := newAPI(t, nil)
	a.importItems(t, signedIn, extracted("bottom", "blue", "jeans"))
	a.call(signedIn, http.MethodPost, "/auth/logout", nil)

	rec := a.call(signedIn, http.MethodGet, "/wardrobe/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeJSON[ItemsOut](t, rec).Items
	require.Len(t, items, 1)
	assert.Equal(t, "blue jeans", items[0].Description)
	assert.Equal(t, 2, a.store.Loads(), "one load per session")
}

func TestGuestNeverWrites(t *testing.T) {
	a := newAPI(t, nil)
	a.importItems(t, guest, extracted("top", "white", "tee"))
	a.call(guest, http.MethodPost, "/auth/logout", nil)
	assert.Zero(t, a.store.Saves())
	assert.Zero(t, a.store.Loads())
}
