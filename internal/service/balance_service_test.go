package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository/mocks"
	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/money"
)

type balanceMocks struct {
	balance *mocks.MockBalanceRepository
	member  *mocks.MockMemberRepository
	loan    *mocks.MockLoanRepository
	contrib *mocks.MockContributionRepository
	payment *mocks.MockPaymentRepository
	txm     *mocks.MockTxManager
}

func newBalanceService(t *testing.T) (*BalanceService, *balanceMocks) {
	t.Helper()

	m := &balanceMocks{
		balance: new(mocks.MockBalanceRepository),
		member:  new(mocks.MockMemberRepository),
		loan:    new(mocks.MockLoanRepository),
		contrib: new(mocks.MockContributionRepository),
		payment: new(mocks.MockPaymentRepository),
		txm:     new(mocks.MockTxManager),
	}

	cfg := &config.Config{}
	cfg.Ledger.CacheTTL = 5 * time.Minute

	svc := NewBalanceService(m.balance, m.member, m.loan, m.contrib, m.payment, m.txm, nil, cfg)
	return svc, m
}

func TestBalanceService_Deposit(t *testing.T) {
	svc, m := newBalanceService(t)

	m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
	m.txm.On("WithinTx", mock.Anything, mock.Anything).Return(nil)
	m.balance.On("GetForUpdate", mock.Anything, mock.Anything).Return(testSettings("1000"), nil)
	m.balance.On("SetBalance", mock.Anything, mock.Anything, decimalEq("1500")).Return(nil)

	updated, err := svc.Deposit(context.Background(), 1, money.MustParse("500"))

	assert.NoError(t, err)
	assert.True(t, updated.Balance.Equal(money.MustParse("1500")), "balance = %s", updated.Balance)
	m.balance.AssertExpectations(t)
}

func TestBalanceService_Withdraw(t *testing.T) {
	t.Run("debits the pool", func(t *testing.T) {
		svc, m := newBalanceService(t)

		m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
		m.txm.On("WithinTx", mock.Anything, mock.Anything).Return(nil)
		m.balance.On("GetForUpdate", mock.Anything, mock.Anything).Return(testSettings("1000"), nil)
		m.balance.On("SetBalance", mock.Anything, mock.Anything, decimalEq("400")).Return(nil)

		updated, err := svc.Withdraw(context.Background(), 1, money.MustParse("600"))

		assert.NoError(t, err)
		assert.True(t, updated.Balance.Equal(money.MustParse("400")))
	})

	t.Run("never lets the balance go negative", func(t *testing.T) {
		svc, m := newBalanceService(t)

		m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
		m.txm.On("WithinTx", mock.Anything, mock.Anything).Return(nil)
		m.balance.On("GetForUpdate", mock.Anything, mock.Anything).Return(testSettings("1000"), nil)

		_, err := svc.Withdraw(context.Background(), 1, money.MustParse("1000.01"))

		assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
		m.balance.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("plain members cannot withdraw", func(t *testing.T) {
		svc, m := newBalanceService(t)

		plain := &domain.Member{ID: 5, Username: "ravi", Role: domain.RoleMember}
		m.member.On("GetByID", mock.Anything, int64(5)).Return(plain, nil)

		_, err := svc.Withdraw(context.Background(), 5, money.MustParse("100"))

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		m.txm.AssertNotCalled(t, "WithinTx", mock.Anything, mock.Anything)
	})
}

func TestBalanceService_UpdateSettings(t *testing.T) {
	validReq := func() *domain.UpdateSettingsRequest {
		return &domain.UpdateSettingsRequest{
			DefaultContributionAmount: money.MustParse("200"),
			DefaultFineAmount:         money.MustParse("75"),
			DefaultInterestRate:       money.MustParse("10"),
			PaymentStartDay:           1,
			PaymentEndDay:             10,
		}
	}

	t.Run("persists a valid group", func(t *testing.T) {
		svc, m := newBalanceService(t)

		m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
		m.balance.On("UpdateSettings", mock.Anything, mock.MatchedBy(func(s *domain.Settings) bool {
			return s.DefaultContributionAmount.Equal(money.MustParse("200")) &&
				s.PaymentStartDay == 1 && s.PaymentEndDay == 10
		})).Return(nil)

		err := svc.UpdateSettings(context.Background(), 1, validReq())

		assert.NoError(t, err)
		m.balance.AssertExpectations(t)
	})

	t.Run("rejects a window that starts after it ends", func(t *testing.T) {
		svc, m := newBalanceService(t)

		m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)

		req := validReq()
		req.PaymentStartDay = 20
		req.PaymentEndDay = 10

		err := svc.UpdateSettings(context.Background(), 1, req)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		m.balance.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything)
	})

	t.Run("rejects an interest rate above 100", func(t *testing.T) {
		svc, m := newBalanceService(t)

		m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)

		req := validReq()
		req.DefaultInterestRate = money.MustParse("101")

		err := svc.UpdateSettings(context.Background(), 1, req)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("rejects a non-positive contribution", func(t *testing.T) {
		svc, m := newBalanceService(t)

		m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)

		req := validReq()
		req.DefaultContributionAmount = money.MustParse("0")

		err := svc.UpdateSettings(context.Background(), 1, req)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestBalanceService_Summary(t *testing.T) {
	svc, m := newBalanceService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 18, 9, 0, 0, 0, time.UTC) }

	m.member.On("CountAll", mock.Anything).Return(12, nil)
	m.loan.On("CountByStatuses", mock.Anything, domain.LoanStatusApproved, domain.LoanStatusOverdue).Return(3, nil)
	m.contrib.On("SumPaidForPeriod", mock.Anything, 3, 2025).Return(money.MustParse("1800"), nil)
	m.payment.On("SumInterestForPeriod", mock.Anything, 3, 2025).Return(money.MustParse("250"), nil)
	m.balance.On("Get", mock.Anything).Return(testSettings("42000"), nil)

	summary, err := svc.Summary(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 12, summary.TotalMembers)
	assert.Equal(t, 3, summary.ActiveLoans)
	assert.True(t, summary.IncomeThisMonth.Equal(money.MustParse("2050")), "income = %s", summary.IncomeThisMonth)
	assert.True(t, summary.BankBalance.Equal(money.MustParse("42000")))
}
