package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/carelytic/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/auth/password-login", h.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/users/credits", h.handleGetCredits).Methods(http.MethodGet)
	router.HandleFunc("/users/credits", h.handleAdjustCredits).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Phone number and password are required.")
		return
	}

	result, err := h.service.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		logger.Log.WithError(err).Error("password login failed")
		writeError(w, http.StatusInternalServerError, "We could not log you in. Please try again in a moment.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *HTTPHandler) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required.")
		return
	}

	credits, updatedAt, err := h.service.Credits(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		logger.Log.WithError(err).Error("failed to load user credits")
		writeError(w, http.StatusInternalServerError, "Unable to load credits right now.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"userId":    userID,
		"credits":   credits,
		"updatedAt": updatedAt,
	})
}

func (h *HTTPHandler) handleAdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Delta  int    `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "User ID and a non-zero delta are required.")
		return
	}

	balance, err := h.service.AdjustCredits(r.Context(), req.UserID, req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, ErrInsufficientCredits):
			writeError(w, http.StatusBadRequest, "Not enough credits.")
		default:
			logger.Log.WithError(err).Error("failed to adjust credits")
			writeError(w, http.StatusInternalServerError, "Unable to update credits right now.")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"userId":  req.UserID,
		"credits": balance,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
