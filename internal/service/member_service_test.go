package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository/mocks"
	"github.com/bachatgat/ledger/pkg/apperrors"
)

func newMemberService(t *testing.T) (*MemberService, *mocks.MockMemberRepository) {
	t.Helper()

	memberRepo := new(mocks.MockMemberRepository)
	return NewMemberService(memberRepo), memberRepo
}

func createReq() *domain.CreateMemberRequest {
	return &domain.CreateMemberRequest{
		Name:          "Ravi Kulkarni",
		Username:      "ravi",
		Email:         "ravi@example.com",
		ContactNumber: "9876543210",
		PanNumber:     "abcde1234f",
		AadharNumber:  "123456789012",
	}
}

func TestMemberService_Register(t *testing.T) {
	t.Run("defaults the role and normalizes the PAN", func(t *testing.T) {
		svc, memberRepo := newMemberService(t)

		memberRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Member) bool {
			return m.Role == domain.RoleMember && m.PanNumber == "ABCDE1234F"
		})).Return(nil)

		member, err := svc.Register(context.Background(), createReq())

		assert.NoError(t, err)
		assert.Equal(t, domain.RoleMember, member.Role)
		memberRepo.AssertExpectations(t)
	})

	t.Run("maps a unique violation to a validation error", func(t *testing.T) {
		svc, memberRepo := newMemberService(t)

		memberRepo.On("Create", mock.Anything, mock.Anything).
			Return(&pq.Error{Code: pqUniqueViolation})

		_, err := svc.Register(context.Background(), createReq())

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestMemberService_Get_NotFound(t *testing.T) {
	svc, memberRepo := newMemberService(t)

	memberRepo.On("GetByID", mock.Anything, int64(42)).Return(nil, sql.ErrNoRows)

	_, err := svc.Get(context.Background(), 42)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemberService_Update(t *testing.T) {
	svc, memberRepo := newMemberService(t)

	existing := &domain.Member{ID: 7, Name: "Ravi", Username: "ravi", Role: domain.RoleMember}
	memberRepo.On("GetByID", mock.Anything, int64(7)).Return(existing, nil)
	memberRepo.On("Update", mock.Anything, mock.MatchedBy(func(m *domain.Member) bool {
		return m.ID == 7 && m.Role == domain.RoleSecretary
	})).Return(nil)

	updated, err := svc.Update(context.Background(), 7, &domain.UpdateMemberRequest{
		Name:          "Ravi Kulkarni",
		Username:      "ravi",
		Email:         "ravi@example.com",
		ContactNumber: "9876543210",
		PanNumber:     "abcde1234f",
		AadharNumber:  "123456789012",
		Role:          domain.RoleSecretary,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.RoleSecretary, updated.Role)
	memberRepo.AssertExpectations(t)
}

func TestMemberService_ReminderTargets(t *testing.T) {
	svc, memberRepo := newMemberService(t)

	unpaid := []*domain.Member{{ID: 7, Username: "ravi"}}
	borrowers := []*domain.Member{{ID: 8, Username: "kiran"}}

	memberRepo.On("ListUnpaidForPeriod", mock.Anything, 3, 2025).Return(unpaid, nil)
	memberRepo.On("ListWithActiveLoans", mock.Anything).Return(borrowers, nil)

	gotUnpaid, gotBorrowers, err := svc.ReminderTargets(context.Background(), 3, 2025)

	assert.NoError(t, err)
	assert.Len(t, gotUnpaid, 1)
	assert.Len(t, gotBorrowers, 1)
}
