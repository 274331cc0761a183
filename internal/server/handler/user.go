package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/questlab/engagehub/internal/domain"
)

// UserService defines the ledger methods the user handler requires from the
// engine.
type UserService interface {
	GetUser(userID string) (domain.User, error)
	GetUserBalance(userID string) (int64, error)
	UpdateUserBalance(ctx context.Context, userID string, delta int64) (domain.User, error)
	UpdateUserExperience(ctx context.Context, userID string, delta int64) (domain.User, error)
}

// UserHandler serves the user ledger endpoints.
type UserHandler struct {
	engine UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler with the given engine and logger.
func NewUserHandler(engine UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		engine: engine,
		logger: logger,
	}
}

// deltaRequest is the body of balance and experience adjustments.
type deltaRequest struct {
	Delta int64 `json:"delta"`
}

// GetUser returns one user's ledger entry.
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.engine.GetUser(pathParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GetBalance returns one user's balance.
// GET /api/users/{id}/balance
func (h *UserHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	bal, err := h.engine.GetUserBalance(userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"balance": bal,
	})
}

// UpdateBalance applies a signed delta to a user's balance. Debits clamp at
// zero; the response carries the resulting ledger entry.
// POST /api/users/{id}/balance
func (h *UserHandler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req deltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.engine.UpdateUserBalance(r.Context(), pathParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update balance")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateExperience applies a signed delta to a user's experience. Level
// gains grant the coin bonus and push a level-up notification.
// POST /api/users/{id}/experience
func (h *UserHandler) UpdateExperience(w http.ResponseWriter, r *http.Request) {
	var req deltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.engine.UpdateUserExperience(r.Context(), pathParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update experience")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
