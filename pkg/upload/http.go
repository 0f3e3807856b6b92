package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/gorilla/mux"
)

// BlobStore is the slice of the object store the upload path needs.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType, originalName string) error
	Bucket() string
}

type HTTPHandler struct {
	gatekeeper *Gatekeeper
	store      BlobStore
	maxBody    int64
}

func NewHTTPHandler(gatekeeper *Gatekeeper, store BlobStore, maxBody int64) *HTTPHandler {
	return &HTTPHandler{gatekeeper: gatekeeper, store: store, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/upload", h.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/storage/bucket", h.handleBucket).Methods(http.MethodGet)
}

type uploadResponse struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
	OriginalName string `json:"originalName"`
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read uploaded file.")
		return
	}

	originalName := header.Filename
	if originalName == "" {
		originalName = "upload"
	}

	if err := h.gatekeeper.Check(originalName, int64(len(data))); err != nil {
		switch {
		case errors.Is(err, ErrEmptyFile):
			writeError(w, http.StatusBadRequest, "Uploaded file is empty.")
		case errors.Is(err, ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 5 MB.")
		case errors.Is(err, ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := h.gatekeeper.DeriveKey(originalName, time.Now())

	if err := h.store.Put(r.Context(), key, data, contentType, originalName); err != nil {
		logger.Log.WithError(err).WithField("key", key).Error("failed to store upload")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		Bucket:       h.store.Bucket(),
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		OriginalName: originalName,
	})
}

func (h *HTTPHandler) handleBucket(w http.ResponseWriter, r *http.Request) {
	bucket := h.store.Bucket()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"configured": bucket != "",
		"bucket":     bucket,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
