package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/carelytic/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/reports/analyze", h.handleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/reports/history", h.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/reports/{id}", h.handleDetail).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid analyze payload")
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "We couldn't find your account. Please sign out and sign back in before uploading again.")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "User ID is required.")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load history")
		writeJSONError(w, http.StatusInternalServerError, "Failed to load history.")
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"reports": entries})
}

func (h *HTTPHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Report not found.")
			return
		}
		logger.Log.WithError(err).Error("failed to load report")
		writeJSONError(w, http.StatusInternalServerError, "Failed to load report.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"report": detail})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
