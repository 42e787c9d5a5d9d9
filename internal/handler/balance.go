package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/pkg/response"
)

type BalanceHandler struct {
	service   *service.BalanceService
	validator *validator.Validate
}

func NewBalanceHandler(svc *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{
		service:   svc,
		validator: validator.New(),
	}
}

// Get handles GET /balance
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, balance)
}

// Deposit handles POST /balance/deposit
func (h *BalanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Deposit(r.Context(), req.ActorID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, balance)
}

// Withdraw handles POST /balance/withdraw
func (h *BalanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Withdraw(r.Context(), req.ActorID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, balance)
}

// UpdateSettings handles PUT /settings
func (h *BalanceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.UpdateSettings(r.Context(), req.ActorID, &req); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "updated"})
}

// Summary handles GET /dashboard
func (h *BalanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, summary)
}

func (h *BalanceHandler) decodeMutation(w http.ResponseWriter, r *http.Request) (*domain.BalanceMutationRequest, bool) {
	var req domain.BalanceMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return nil, false
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return nil, false
	}

	return &req, true
}
