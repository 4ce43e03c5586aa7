package handlers

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taskdeck/apiserver/internal/images"
	"github.com/taskdeck/apiserver/internal/store"
)

const (
	maxAvatarBytes     = 1_000_000
	maxMultipartMemory = 8 << 20
	formFieldAvatar    = "avatar"
)

// avatarExtensions is the allowed upload extension set.
var avatarExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// UploadAvatar accepts a multipart image upload, normalizes it to a
// 250x250 PNG, and stores it on the current user.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := parseAvatarFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	normalized, err := images.NormalizeAvatar(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is not a valid image")
		return
	}

	if err := h.userService.SetAvatar(r.Context(), user.ID, normalized); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "avatar uploaded"})
}

// DeleteAvatar clears the current user's avatar. Succeeds even when no
// avatar was stored.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.userService.ClearAvatar(r.Context(), user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to delete avatar")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "avatar deleted"})
}

// GetAvatar serves a user's avatar bytes. Public route.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "no avatar found")
		return
	}

	avatar, err := h.userService.GetAvatar(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no avatar found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch avatar")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(avatar)
}

func parseAvatarFile(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		return nil, errors.New("avatar file is required")
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	if !avatarExtensions[ext] {
		return nil, errors.New("file must be jpeg, jpg, or png")
	}

	return readFileLimited(file, maxAvatarBytes)
}
