// Package api provides the HTTP handlers for the wager engine: condition
// management, staking, oracle resolution, settlement claims, and the
// read-only query surface.
//
// All monetary values use shopspring/decimal — never float64 for money.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
	"github.com/paribet/wager-engine/internal/registry"
)

// Service exposes registry operations over HTTP.
type Service struct {
	reg   *registry.Registry
	wsHub *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates the HTTP service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(reg *registry.Registry, hub *WSHub) *Service {
	return &Service{reg: reg, wsHub: hub}
}

// Routes mounts all handlers on r. Shared between main and tests.
func (s *Service) Routes(r chi.Router) {
	r.Post("/conditions", s.CreateCondition)
	r.Get("/conditions", s.ListConditions)
	r.Get("/conditions/{conditionID}", s.GetCondition)
	r.Post("/conditions/{conditionID}/stakes", s.PlaceStake)
	r.Post("/conditions/{conditionID}/resolve", s.Resolve)
	r.Post("/conditions/{conditionID}/close", s.Close)
	r.Put("/conditions/{conditionID}/end-time", s.UpdateEndTime)
	r.Post("/conditions/{conditionID}/claims/payout", s.ClaimPayout)
	r.Post("/conditions/{conditionID}/claims/refund", s.ClaimRefund)
	r.Get("/conditions/{conditionID}/odds", s.GetOdds)
	r.Get("/conditions/{conditionID}/pools/{outcome}", s.GetOutcomePool)
	r.Get("/conditions/{conditionID}/stakes/{userID}", s.GetUserStake)
	r.Get("/conditions/{conditionID}/claims/{userID}", s.GetClaimStatus)
	r.Get("/conditions/{conditionID}/history", s.GetStakeHistory)
	r.Get("/users/{userID}/conditions", s.GetUserConditions)
	r.Get("/users/{userID}/claims", s.GetUserClaims)
	r.Get("/fees", s.GetFeeBalance)
	r.Put("/fees/rate", s.SetFeeRate)
	r.Post("/fees/withdraw", s.WithdrawFees)
}

// --- Request/Response types ---

// CreateConditionRequest is the JSON body for condition creation.
type CreateConditionRequest struct {
	Caller  string                 `json:"caller"`
	ID      string                 `json:"id"`
	EndTime time.Time              `json:"end_time"`
	Range   *registry.OutcomeRange `json:"outcome_range,omitempty"`
}

// StakeRequest is the JSON body for placing a stake.
type StakeRequest struct {
	Caller  string          `json:"caller"`
	Outcome int64           `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
}

// ResolveRequest is the JSON body for oracle resolution.
type ResolveRequest struct {
	Caller         string `json:"caller"`
	WinningOutcome int64  `json:"winning_outcome"`
}

// CallerRequest carries only the acting participant id (close, claims,
// fee withdrawal).
type CallerRequest struct {
	Caller string `json:"caller"`
}

// UpdateEndTimeRequest is the JSON body for moving a betting deadline.
type UpdateEndTimeRequest struct {
	Caller  string    `json:"caller"`
	EndTime time.Time `json:"end_time"`
}

// FeeRateRequest is the JSON body for updating the global fee rate.
type FeeRateRequest struct {
	Caller string          `json:"caller"`
	Rate   decimal.Decimal `json:"rate"`
}

// ClaimResponse reports a settled claim.
type ClaimResponse struct {
	ConditionID string          `json:"condition_id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// --- Handlers ---

// CreateCondition handles POST /api/v1/conditions
func (s *Service) CreateCondition(w http.ResponseWriter, r *http.Request) {
	var req CreateConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.reg.CreateCondition(r.Context(), req.Caller, req.ID, req.EndTime, req.Range)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// ListConditions handles GET /api/v1/conditions
func (s *Service) ListConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := s.reg.Conditions(r.Context())
	if err != nil {
		writeError(w, "failed to list conditions", http.StatusInternalServerError)
		return
	}
	if conditions == nil {
		conditions = []model.Condition{}
	}
	writeJSON(w, http.StatusOK, conditions)
}

// GetCondition handles GET /api/v1/conditions/{conditionID}
func (s *Service) GetCondition(w http.ResponseWriter, r *http.Request) {
	c, err := s.reg.Condition(r.Context(), chi.URLParam(r, "conditionID"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// PlaceStake handles POST /api/v1/conditions/{conditionID}/stakes
func (s *Service) PlaceStake(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")

	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}

	entry, err := s.reg.PlaceStake(r.Context(), req.Caller, conditionID, req.Outcome, req.Amount)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "stake_placed",
			ConditionID: conditionID,
			Outcome:     &entry.Outcome,
			Amount:      entry.Amount.String(),
		})
	}

	writeJSON(w, http.StatusCreated, entry)
}

// Resolve handles POST /api/v1/conditions/{conditionID}/resolve
func (s *Service) Resolve(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.reg.Resolve(r.Context(), req.Caller, conditionID, req.WinningOutcome)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:           "resolved",
			ConditionID:    conditionID,
			TotalPool:      c.TotalPool.String(),
			WinningOutcome: c.WinningOutcome,
		})
	}

	writeJSON(w, http.StatusOK, c)
}

// Close handles POST /api/v1/conditions/{conditionID}/close
func (s *Service) Close(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")

	var req CallerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.reg.Close(r.Context(), req.Caller, conditionID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "closed",
			ConditionID: conditionID,
			TotalPool:   c.TotalPool.String(),
		})
	}

	writeJSON(w, http.StatusOK, c)
}

// UpdateEndTime handles PUT /api/v1/conditions/{conditionID}/end-time
func (s *Service) UpdateEndTime(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")

	var req UpdateEndTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.reg.UpdateEndTime(r.Context(), req.Caller, conditionID, req.EndTime)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ClaimPayout handles POST /api/v1/conditions/{conditionID}/claims/payout
func (s *Service) ClaimPayout(w http.ResponseWriter, r *http.Request) {
	s.claim(w, r, s.reg.ClaimPayout)
}

// ClaimRefund handles POST /api/v1/conditions/{conditionID}/claims/refund
func (s *Service) ClaimRefund(w http.ResponseWriter, r *http.Request) {
	s.claim(w, r, s.reg.ClaimRefund)
}

func (s *Service) claim(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, caller, id string) (decimal.Decimal, error)) {
	conditionID := chi.URLParam(r, "conditionID")

	var req CallerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}

	amount, err := fn(r.Context(), req.Caller, conditionID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClaimResponse{
		ConditionID: conditionID,
		UserID:      req.Caller,
		Amount:      amount,
	})
}

// GetOdds handles GET /api/v1/conditions/{conditionID}/odds?outcome=N
func (s *Service) GetOdds(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")
	outcome, err := strconv.ParseInt(r.URL.Query().Get("outcome"), 10, 64)
	if err != nil {
		writeError(w, "outcome query parameter is required", http.StatusBadRequest)
		return
	}

	odds, err := s.reg.Odds(r.Context(), conditionID, outcome)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"condition_id": conditionID,
		"outcome":      outcome,
		"odds":         odds,
	})
}

// GetOutcomePool handles GET /api/v1/conditions/{conditionID}/pools/{outcome}
func (s *Service) GetOutcomePool(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")
	outcome, err := strconv.ParseInt(chi.URLParam(r, "outcome"), 10, 64)
	if err != nil {
		writeError(w, "invalid outcome", http.StatusBadRequest)
		return
	}

	pool, err := s.reg.OutcomePool(r.Context(), conditionID, outcome)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcome": outcome, "pool": pool})
}

// GetUserStake handles GET /api/v1/conditions/{conditionID}/stakes/{userID}?outcome=N
func (s *Service) GetUserStake(w http.ResponseWriter, r *http.Request) {
	conditionID := chi.URLParam(r, "conditionID")
	userID := chi.URLParam(r, "userID")
	outcome, err := strconv.ParseInt(r.URL.Query().Get("outcome"), 10, 64)
	if err != nil {
		writeError(w, "outcome query parameter is required", http.StatusBadRequest)
		return
	}

	stake, err := s.reg.UserStake(r.Context(), conditionID, userID, outcome)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"outcome": outcome,
		"stake":   stake,
	})
}

// GetClaimStatus handles GET /api/v1/conditions/{conditionID}/claims/{userID}
func (s *Service) GetClaimStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.reg.ClaimStatus(r.Context(),
		chi.URLParam(r, "conditionID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetStakeHistory handles GET /api/v1/conditions/{conditionID}/history
func (s *Service) GetStakeHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reg.StakeHistory(r.Context(), chi.URLParam(r, "conditionID"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	if entries == nil {
		entries = []model.StakeEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetUserConditions handles GET /api/v1/users/{userID}/conditions?offset=&limit=
func (s *Service) GetUserConditions(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, s.reg.UserConditionHistory)
}

// GetUserClaims handles GET /api/v1/users/{userID}/claims?offset=&limit=
func (s *Service) GetUserClaims(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, s.reg.UserClaimHistory)
}

func (s *Service) history(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID string, offset, limit int) (*model.Page, error)) {
	userID := chi.URLParam(r, "userID")
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := fn(r.Context(), userID, offset, limit)
	if err != nil {
		writeError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetFeeBalance handles GET /api/v1/fees
func (s *Service) GetFeeBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.reg.FeeBalance(r.Context())
	if err != nil {
		writeError(w, "failed to load fee balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// SetFeeRate handles PUT /api/v1/fees/rate
func (s *Service) SetFeeRate(w http.ResponseWriter, r *http.Request) {
	var req FeeRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.reg.SetFeeRate(req.Caller, req.Rate); err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rate": req.Rate})
}

// WithdrawFees handles POST /api/v1/fees/withdraw
func (s *Service) WithdrawFees(w http.ResponseWriter, r *http.Request) {
	var req CallerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := s.reg.WithdrawFees(r.Context(), req.Caller)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": amount})
}

// --- Helpers ---

// writeRegistryError maps the registry error taxonomy to HTTP statuses.
func writeRegistryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch registry.KindOf(err) {
	case registry.KindStructural:
		if errors.Is(err, registry.ErrNotFound) {
			status = http.StatusNotFound
		} else {
			status = http.StatusConflict
		}
	case registry.KindAuthorization:
		status = http.StatusForbidden
	case registry.KindValidation:
		status = http.StatusBadRequest
	case registry.KindEconomic:
		status = http.StatusConflict
	case registry.KindTransfer:
		status = http.StatusBadGateway
	}
	writeError(w, err.Error(), status)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
