package handlers

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taskdeck/apiserver/internal/storage"
)

const (
	maxDocumentBytes = 1_000_000
	formFieldUpload  = "upload"
)

// documentContentTypes is the allowed document extension set with the
// content type stored alongside each object.
var documentContentTypes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// UploadHandler accepts generic document uploads and persists them to
// object storage.
type UploadHandler struct {
	storage *storage.Storage
}

// NewUploadHandler constructs an UploadHandler with the provided storage.
func NewUploadHandler(store *storage.Storage) *UploadHandler {
	return &UploadHandler{storage: store}
}

// UploadRouter registers the document upload routes on the given router.
func UploadRouter(r chi.Router, store *storage.Storage) {
	handler := NewUploadHandler(store)
	r.Post("/", handler.UploadDocument)
	r.Get("/*", handler.DownloadDocument)
}

// UploadDocument stores a doc/docx file and returns its object key.
func (h *UploadHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "upload file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	contentType, ok := documentContentTypes[ext]
	if !ok {
		writeError(w, http.StatusBadRequest, "file must be doc or docx")
		return
	}

	data, err := readFileLimited(file, maxDocumentBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := documentKey(header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	if err := h.storage.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Key: key})
}

// DownloadDocument streams a previously uploaded document back by its
// object key.
func (h *UploadHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, http.StatusNotFound, "no document found")
		return
	}

	object, err := h.storage.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "no document found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	defer object.Close()

	contentType, ok := documentContentTypes[strings.ToLower(path.Ext(key))]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, object)
}

// UploadResponse carries the object key of a stored document.
type UploadResponse struct {
	Key string `json:"key"`
}

func documentKey(filename string) (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.New("failed to generate key")
	}
	return fmt.Sprintf("documents/%s-%s", hex.EncodeToString(buf[:]), path.Base(filename)), nil
}
