package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository"
	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/logger"
)

const pqUniqueViolation = "23505"

// MemberService manages the group roster. Identity fields (username, email,
// PAN, Aadhar) are unique across the group.
type MemberService struct {
	MemberRepo repository.MemberRepository
	now        func() time.Time
}

func NewMemberService(memberRepo repository.MemberRepository) *MemberService {
	return &MemberService{
		MemberRepo: memberRepo,
		now:        time.Now,
	}
}

// Register adds a new member. Role defaults to plain member.
func (s *MemberService) Register(ctx context.Context, req *domain.CreateMemberRequest) (*domain.Member, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}

	member := &domain.Member{
		Name:          strings.TrimSpace(req.Name),
		Username:      strings.TrimSpace(req.Username),
		Email:         strings.TrimSpace(req.Email),
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		PanNumber:     strings.ToUpper(strings.TrimSpace(req.PanNumber)),
		AadharNumber:  strings.TrimSpace(req.AadharNumber),
		Role:          role,
		CreatedAt:     s.now(),
	}

	if err := s.MemberRepo.Create(ctx, member); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.WrapValidation("username, email, PAN or Aadhar number is already registered")
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	logger.Info("member registered", "member_id", member.ID, "username", member.Username, "role", member.Role)
	return member, nil
}

// Get returns a member by id.
func (s *MemberService) Get(ctx context.Context, id int64) (*domain.Member, error) {
	member, err := s.MemberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapNotFound("member", id)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return member, nil
}

// List returns the full roster.
func (s *MemberService) List(ctx context.Context) ([]*domain.Member, error) {
	members, err := s.MemberRepo.List(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return members, nil
}

// Update rewrites a member's profile and role.
func (s *MemberService) Update(ctx context.Context, id int64, req *domain.UpdateMemberRequest) (*domain.Member, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	member.Name = strings.TrimSpace(req.Name)
	member.Username = strings.TrimSpace(req.Username)
	member.Email = strings.TrimSpace(req.Email)
	member.ContactNumber = strings.TrimSpace(req.ContactNumber)
	member.PanNumber = strings.ToUpper(strings.TrimSpace(req.PanNumber))
	member.AadharNumber = strings.TrimSpace(req.AadharNumber)
	member.Role = req.Role

	if err := s.MemberRepo.Update(ctx, member); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.WrapValidation("username, email, PAN or Aadhar number is already registered")
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	return member, nil
}

// Delete removes a member and, through the schema's cascades, their ledger rows.
func (s *MemberService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.MemberRepo.Delete(ctx, id); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	return nil
}

// ReminderTargets returns the members who have not paid for the period and
// the members carrying active loans. The scheduler uses it for the monthly
// reminder scan.
func (s *MemberService) ReminderTargets(ctx context.Context, month, year int) (unpaid, borrowers []*domain.Member, err error) {
	unpaid, err = s.MemberRepo.ListUnpaidForPeriod(ctx, month, year)
	if err != nil {
		return nil, nil, apperrors.WrapDatabaseError(err)
	}

	borrowers, err = s.MemberRepo.ListWithActiveLoans(ctx)
	if err != nil {
		return nil, nil, apperrors.WrapDatabaseError(err)
	}

	return unpaid, borrowers, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
