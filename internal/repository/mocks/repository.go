package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/bachatgat/ledger/internal/domain"
)

// MockTxManager runs the callback with a nil transaction so service logic can
// be exercised without a database. Returning a non-nil error from the
// expectation short-circuits the callback, simulating a begin failure.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) Update(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMemberRepository) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockMemberRepository) ListUnpaidForPeriod(ctx context.Context, month, year int) ([]*domain.Member, error) {
	args := m.Called(ctx, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) ListWithActiveLoans(ctx context.Context) ([]*domain.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Member), args.Error(1)
}

type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) Create(ctx context.Context, c *domain.Contribution) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) GetForPeriod(ctx context.Context, memberID int64, month, year int) (*domain.Contribution, error) {
	args := m.Called(ctx, memberID, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) UpdateSubmission(ctx context.Context, c *domain.Contribution) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContributionRepository) MarkPaid(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, approverID int64, presidentUTR string, paidAt time.Time) error {
	args := m.Called(ctx, tx, id, approverID, presidentUTR, paidAt)
	return args.Error(0)
}

func (m *MockContributionRepository) MarkRejected(ctx context.Context, id uuid.UUID, approverID int64) error {
	args := m.Called(ctx, id, approverID)
	return args.Error(0)
}

func (m *MockContributionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContributionRepository) ListByMember(ctx context.Context, memberID int64) ([]*domain.Contribution, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListPending(ctx context.Context) ([]*domain.Contribution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListApprovedForPeriod(ctx context.Context, month, year int) ([]*domain.Contribution, error) {
	args := m.Called(ctx, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) SumPaidForPeriod(ctx context.Context, month, year int) (decimal.Decimal, error) {
	args := m.Called(ctx, month, year)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, l *domain.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateTerms(ctx context.Context, id uuid.UUID, amount, interestRate decimal.Decimal, startDate time.Time) error {
	args := m.Called(ctx, id, amount, interestRate, startDate)
	return args.Error(0)
}

func (m *MockLoanRepository) Approve(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error {
	args := m.Called(ctx, tx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) Reject(ctx context.Context, id uuid.UUID, approverID int64) error {
	args := m.Called(ctx, id, approverID)
	return args.Error(0)
}

func (m *MockLoanRepository) Complete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, endDate time.Time) error {
	args := m.Called(ctx, tx, id, endDate)
	return args.Error(0)
}

func (m *MockLoanRepository) MarkOverdue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) ListByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListActiveByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListApprovedIdleSince(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) CountByStatuses(ctx context.Context, statuses ...string) (int, error) {
	callArgs := make([]interface{}, 0, len(statuses)+1)
	callArgs = append(callArgs, ctx)
	for _, s := range statuses {
		callArgs = append(callArgs, s)
	}
	args := m.Called(callArgs...)
	return args.Int(0), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.LoanPayment) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanPayment), args.Error(1)
}

func (m *MockPaymentRepository) TotalsByLoan(ctx context.Context, loanID uuid.UUID) (domain.PaymentTotals, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(domain.PaymentTotals), args.Error(1)
}

func (m *MockPaymentRepository) LastPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockPaymentRepository) SumInterestForPeriod(ctx context.Context, month, year int) (decimal.Decimal, error) {
	args := m.Called(ctx, month, year)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Get(ctx context.Context) (*domain.BankBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankBalance), args.Error(1)
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx) (*domain.BankBalance, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankBalance), args.Error(1)
}

func (m *MockBalanceRepository) SetBalance(ctx context.Context, tx *sqlx.Tx, balance decimal.Decimal) error {
	args := m.Called(ctx, tx, balance)
	return args.Error(0)
}

func (m *MockBalanceRepository) UpdateSettings(ctx context.Context, s *domain.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
