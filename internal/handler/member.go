package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/pkg/response"
)

type MemberHandler struct {
	service   *service.MemberService
	validator *validator.Validate
}

func NewMemberHandler(svc *service.MemberService) *MemberHandler {
	return &MemberHandler{
		service:   svc,
		validator: validator.New(),
	}
}

// Create handles POST /members
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	member, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, member)
}

// List handles GET /members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, members)
}

// Get handles GET /members/{memberId}
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	member, err := h.service.Get(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, member)
}

// Update handles PUT /members/{memberId}
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	var req domain.UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	member, err := h.service.Update(r.Context(), memberID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, member)
}

// Delete handles DELETE /members/{memberId}
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	if err := h.service.Delete(r.Context(), memberID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "deleted"})
}
