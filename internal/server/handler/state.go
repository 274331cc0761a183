package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/questlab/engagehub/internal/domain"
)

// StateService defines the collection submission methods the state handler
// requires from the engine.
type StateService interface {
	SubmitAchievements(ctx context.Context, cur []domain.Achievement, seed bool)
	SubmitTasks(ctx context.Context, cur []domain.Task, seed bool)
	SubmitShopItems(ctx context.Context, cur []domain.ShopItem, seed bool)
	SubmitOrders(ctx context.Context, cur []domain.Order, seed bool)
	SubmitCases(ctx context.Context, cur []domain.CaseType, seed bool)
	SubmitUserCases(ctx context.Context, cur []domain.UserCase, seed bool)
}

// StateHandler accepts full-collection submissions from the upstream system
// of record. Each PUT replaces the tracked snapshot; detected transitions
// surface asynchronously in the notification feed.
type StateHandler struct {
	engine StateService
	logger *slog.Logger
}

// NewStateHandler creates a StateHandler with the given engine and logger.
func NewStateHandler(engine StateService, logger *slog.Logger) *StateHandler {
	return &StateHandler{
		engine: engine,
		logger: logger,
	}
}

// submitResponse wraps the state submission response.
type submitResponse struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
	Seeded     bool   `json:"seeded,omitempty"`
}

// SubmitCollection replaces one tracked collection with the submitted state.
// With ?seed=true the snapshot is replaced without change detection, used to
// initialize a session without replaying history.
// PUT /api/state/{collection}
func (h *StateHandler) SubmitCollection(w http.ResponseWriter, r *http.Request) {
	collection := pathParam(r, "collection")
	seed := r.URL.Query().Get("seed") == "true"
	ctx := r.Context()

	var count int
	switch collection {
	case "achievements":
		var items []domain.Achievement
		if !decodeCollection(w, r, &items) {
			return
		}
		h.engine.SubmitAchievements(ctx, items, seed)
		count = len(items)

	case "tasks":
		var items []domain.Task
		if !decodeCollection(w, r, &items) {
			return
		}
		h.engine.SubmitTasks(ctx, items, seed)
		count = len(items)

	case "shopItems":
		var items []domain.ShopItem
		if !decodeCollection(w, r, &items) {
			return
		}
		h.engine.SubmitShopItems(ctx, items, seed)
		count = len(items)

	case "orders":
		var items []domain.Order
		if !decodeCollection(w, r, &items) {
			return
		}
		h.engine.SubmitOrders(ctx, items, seed)
		count = len(items)

	case "cases":
		var items []domain.CaseType
		if !decodeCollection(w, r, &items) {
			return
		}
		h.engine.SubmitCases(ctx, items, seed)
		count = len(items)

	case "userCases":
		var items []domain.UserCase
		if !decodeCollection(w, r, &items) {
			return
		}
		h.engine.SubmitUserCases(ctx, items, seed)
		count = len(items)

	default:
		writeError(w, http.StatusNotFound, "unknown collection: "+collection)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		Collection: collection,
		Count:      count,
		Seeded:     seed,
	})
}

// decodeCollection decodes the request body into v, writing a 400 and
// reporting false on malformed input.
func decodeCollection(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
