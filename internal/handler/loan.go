package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(svc *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   svc,
		validator: validator.New(),
	}
}

// Apply handles POST /loans
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, err := h.service.Apply(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, loan)
}

// Review handles PUT /loans/{loanId}
func (h *LoanHandler) Review(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var req domain.ReviewLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, err := h.service.Review(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// Disburse handles POST /loans/{loanId}/disburse
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var req domain.DisburseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, err := h.service.Disburse(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// Reject handles POST /loans/{loanId}/reject
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var req struct {
		ApproverID int64 `json:"approver_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.Reject(r.Context(), loanID, req.ApproverID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "rejected"})
}

// RecordPayment handles POST /loans/{loanId}/payment
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var req domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, payment)
}

// Close handles POST /loans/{loanId}/close
func (h *LoanHandler) Close(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var req domain.CloseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	payment, err := h.service.Close(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, payment)
}

// Account handles GET /loans/{loanId}
func (h *LoanHandler) Account(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	account, err := h.service.Account(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, account)
}

// Payments handles GET /loans/{loanId}/payments
func (h *LoanHandler) Payments(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	payments, err := h.service.Payments(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, payments)
}

// List handles GET /loans
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loans)
}

// ListByMember handles GET /members/{memberId}/loans
func (h *LoanHandler) ListByMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	loans, err := h.service.ListByMember(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loans)
}

func loanIDVar(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["loanId"])
}
