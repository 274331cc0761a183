package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// FlagService defines the flag methods the flag handler requires from the
// engine.
type FlagService interface {
	Flag(ctx context.Context, name string) (string, bool)
	SetFlag(ctx context.Context, name, value string)
}

// FlagHandler serves the persisted UI flag endpoints (theme and friends).
type FlagHandler struct {
	engine FlagService
	logger *slog.Logger
}

// NewFlagHandler creates a FlagHandler with the given engine and logger.
func NewFlagHandler(engine FlagService, logger *slog.Logger) *FlagHandler {
	return &FlagHandler{
		engine: engine,
		logger: logger,
	}
}

// setFlagRequest is the body of a flag write.
type setFlagRequest struct {
	Value string `json:"value"`
}

// GetFlag returns one flag's value. Unset flags return 404.
// GET /api/flags/{name}
func (h *FlagHandler) GetFlag(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	value, ok := h.engine.Flag(r.Context(), name)
	if !ok {
		writeError(w, http.StatusNotFound, "flag not set")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":  name,
		"value": value,
	})
}

// SetFlag stores one flag's value.
// PUT /api/flags/{name}
func (h *FlagHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	var req setFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.engine.SetFlag(r.Context(), pathParam(r, "name"), req.Value)
	w.WriteHeader(http.StatusNoContent)
}
