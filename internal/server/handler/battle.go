package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/questlab/engagehub/internal/battle"
	"github.com/questlab/engagehub/internal/domain"
)

// BattleService defines the wager methods the battle handler requires from
// the engine.
type BattleService interface {
	CreateBattleInvitation(ctx context.Context, challengerID, opponentID string, stake int64) (*domain.BattleInvitation, error)
	AcceptBattleInvitation(ctx context.Context, id string) (*domain.Battle, error)
	DeclineBattleInvitation(ctx context.Context, id string) error
	CompleteBattle(ctx context.Context, id, winnerID, callerID string) error
	CancelBattle(ctx context.Context, id string) error
	BattleState() battle.State
}

// BattleHandler serves the battle invitation and settlement endpoints.
type BattleHandler struct {
	engine BattleService
	logger *slog.Logger
}

// NewBattleHandler creates a BattleHandler with the given engine and logger.
func NewBattleHandler(engine BattleService, logger *slog.Logger) *BattleHandler {
	return &BattleHandler{
		engine: engine,
		logger: logger,
	}
}

// createInvitationRequest is the body of an invitation creation.
type createInvitationRequest struct {
	ChallengerID string `json:"challengerId"`
	OpponentID   string `json:"opponentId"`
	Stake        int64  `json:"stake"`
}

// completeBattleRequest is the body of a battle settlement.
type completeBattleRequest struct {
	WinnerID string `json:"winnerId"`
	CallerID string `json:"callerId"`
}

// ListState returns all invitations and battles.
// GET /api/battles
func (h *BattleHandler) ListState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.BattleState())
}

// CreateInvitation issues a stake-backed challenge. When a party cannot
// cover the stake no invitation is created; the failure surfaces as an
// error notification in the feed and the response carries a null invitation.
// POST /api/battles/invitations
func (h *BattleHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.engine.CreateBattleInvitation(r.Context(), req.ChallengerID, req.OpponentID, req.Stake)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid invitation parameters")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create invitation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"invitation": inv})
}

// AcceptInvitation accepts a pending invitation. Unknown or non-pending
// invitations yield a null battle.
// POST /api/battles/invitations/{id}/accept
func (h *BattleHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	b, err := h.engine.AcceptBattleInvitation(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to accept invitation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"battle": b})
}

// DeclineInvitation declines a pending invitation. Unknown ids succeed
// silently.
// POST /api/battles/invitations/{id}/decline
func (h *BattleHandler) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeclineBattleInvitation(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to decline invitation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete settles an active battle in favor of winnerId. Unknown or
// already-settled battles succeed silently.
// POST /api/battles/{id}/complete
func (h *BattleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.CompleteBattle(r.Context(), pathParam(r, "id"), req.WinnerID, req.CallerID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "winner is not a battle participant")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to complete battle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cancel voids an active battle without settlement. Unknown ids succeed
// silently.
// POST /api/battles/{id}/cancel
func (h *BattleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CancelBattle(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel battle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
