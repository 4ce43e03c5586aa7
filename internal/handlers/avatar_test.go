package handlers_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPNG renders a small solid-color PNG for upload tests.
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAvatarUploadAndFetch(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	recorder := api.doMultipart(t, "/users/me/avatar", alice.Token, "avatar", "me.png", testPNG(t, 30, 20))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = api.do(t, http.MethodGet, fmt.Sprintf("/users/%d/avatar", alice.User.ID), "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "image/png", recorder.Header().Get("Content-Type"))

	// Stored avatars are always normalized to a 250x250 PNG regardless
	// of the uploaded dimensions.
	img, err := png.Decode(bytes.NewReader(recorder.Body.Bytes()))
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 250, bounds.Dx())
	assert.Equal(t, 250, bounds.Dy())
}

func TestAvatarUploadRejectsUnsupportedExtension(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	recorder := api.doMultipart(t, "/users/me/avatar", alice.Token, "avatar", "me.gif", testPNG(t, 10, 10))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAvatarUploadRejectsOversizedFile(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	oversized := make([]byte, 1_000_001)
	recorder := api.doMultipart(t, "/users/me/avatar", alice.Token, "avatar", "me.png", oversized)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAvatarUploadRejectsCorruptImage(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	recorder := api.doMultipart(t, "/users/me/avatar", alice.Token, "avatar", "me.png", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAvatarUploadRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	recorder := api.doMultipart(t, "/users/me/avatar", "", "avatar", "me.png", testPNG(t, 10, 10))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestDeleteAvatar(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	upload := api.doMultipart(t, "/users/me/avatar", alice.Token, "avatar", "me.png", testPNG(t, 10, 10))
	require.Equal(t, http.StatusOK, upload.Code)

	recorder := api.do(t, http.MethodDelete, "/users/me/avatar", alice.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = api.do(t, http.MethodGet, fmt.Sprintf("/users/%d/avatar", alice.User.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeleteAvatarWithoutOneSucceeds(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	recorder := api.do(t, http.MethodDelete, "/users/me/avatar", alice.Token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestGetAvatarMissing(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "Alice", "alice@example.com", "secret123")

	recorder := api.do(t, http.MethodGet, fmt.Sprintf("/users/%d/avatar", alice.User.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.JSONEq(t, `{"error":"no avatar found"}`, recorder.Body.String())

	recorder = api.do(t, http.MethodGet, "/users/999/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
