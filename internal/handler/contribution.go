package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/pkg/response"
)

type ContributionHandler struct {
	service   *service.ContributionService
	validator *validator.Validate
}

func NewContributionHandler(svc *service.ContributionService) *ContributionHandler {
	return &ContributionHandler{
		service:   svc,
		validator: validator.New(),
	}
}

// AmountDue handles GET /members/{memberId}/due
func (h *ContributionHandler) AmountDue(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	due, err := h.service.ComputeDue(r.Context(), memberID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, due)
}

// Submit handles POST /contributions
func (h *ContributionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	contribution, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, contribution)
}

// Approve handles POST /contributions/{contributionId}/approve
func (h *ContributionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	contributionID, err := contributionIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid contribution id", err)
		return
	}

	var req domain.ApproveContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	contribution, err := h.service.Approve(r.Context(), contributionID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, contribution)
}

// Reject handles POST /contributions/{contributionId}/reject
func (h *ContributionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	contributionID, err := contributionIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid contribution id", err)
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

	if err := h.service.Reject(r.Context(), contributionID, req.ApproverID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "rejected"})
}

// Delete handles DELETE /contributions/{contributionId}
func (h *ContributionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contributionID, err := contributionIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid contribution id", err)
		return
	}

	if err := h.service.Delete(r.Context(), contributionID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "deleted"})
}

// History handles GET /members/{memberId}/contributions
func (h *ContributionHandler) History(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	contributions, err := h.service.HistoryByMember(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, contributions)
}

// Pending handles GET /contributions/pending
func (h *ContributionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.service.PendingForApproval(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, contributions)
}

// ApprovedForPeriod handles GET /contributions?month=&year=
func (h *ContributionHandler) ApprovedForPeriod(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		response.BadRequest(w, "invalid month", err)
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 {
		response.BadRequest(w, "invalid year", err)
		return
	}

	contributions, err := h.service.ApprovedForPeriod(r.Context(), month, year)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, contributions)
}

func memberIDVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["memberId"], 10, 64)
}

func contributionIDVar(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["contributionId"])
}
