package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/internal/domain"
)

// TxManager runs a function inside a single database transaction. Every
// money-moving operation executes its record write and balance write through
// one WithinTx call so they commit or roll back together.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
	List(ctx context.Context) ([]*domain.Member, error)
	Update(ctx context.Context, m *domain.Member) error
	Delete(ctx context.Context, id int64) error
	CountAll(ctx context.Context) (int, error)

	// ListUnpaidForPeriod returns members without an approved contribution
	// for the given month/year, used by the reminder scan.
	ListUnpaidForPeriod(ctx context.Context, month, year int) ([]*domain.Member, error)

	// ListWithActiveLoans returns members holding approved or overdue loans.
	ListWithActiveLoans(ctx context.Context) ([]*domain.Member, error)
}

// ContributionRepository defines the interface for contribution data operations
type ContributionRepository interface {
	Create(ctx context.Context, c *domain.Contribution) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error)

	// GetForPeriod returns the single row for (member, month, year), or
	// sql.ErrNoRows if the member has not submitted for that period.
	GetForPeriod(ctx context.Context, memberID int64, month, year int) (*domain.Contribution, error)

	// UpdateSubmission overwrites a still-pending row in place (resubmission).
	UpdateSubmission(ctx context.Context, c *domain.Contribution) error

	// MarkPaid flips the row to paid inside the caller's transaction. Returns
	// sql.ErrNoRows when the row is already paid or no longer carries the
	// matched UTR.
	MarkPaid(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, approverID int64, presidentUTR string, paidAt time.Time) error

	MarkRejected(ctx context.Context, id uuid.UUID, approverID int64) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByMember(ctx context.Context, memberID int64) ([]*domain.Contribution, error)
	ListPending(ctx context.Context) ([]*domain.Contribution, error)
	ListApprovedForPeriod(ctx context.Context, month, year int) ([]*domain.Contribution, error)
	SumPaidForPeriod(ctx context.Context, month, year int) (decimal.Decimal, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	Create(ctx context.Context, l *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// UpdateTerms corrects a pending application before approval.
	UpdateTerms(ctx context.Context, id uuid.UUID, amount, interestRate decimal.Decimal, startDate time.Time) error

	// Approve persists the disbursement inside the caller's transaction:
	// status, approver, rewritten start date and the serialized payload.
	// Returns sql.ErrNoRows when the loan is no longer pending.
	Approve(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error

	Reject(ctx context.Context, id uuid.UUID, approverID int64) error

	// Complete marks the loan repaid inside the caller's transaction.
	Complete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, endDate time.Time) error

	MarkOverdue(ctx context.Context, id uuid.UUID) error
	ListByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error)
	ListActiveByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error)
	ListAll(ctx context.Context) ([]*domain.Loan, error)

	// ListApprovedIdleSince returns approved loans whose latest activity
	// (last payment, or disbursement when unpaid) predates the cutoff.
	ListApprovedIdleSince(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error)

	CountByStatuses(ctx context.Context, statuses ...string) (int, error)
}

// PaymentRepository defines the interface for loan payment data operations
type PaymentRepository interface {
	// Create appends a payment row inside the caller's transaction.
	Create(ctx context.Context, tx *sqlx.Tx, p *domain.LoanPayment) error

	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error)
	TotalsByLoan(ctx context.Context, loanID uuid.UUID) (domain.PaymentTotals, error)
	LastPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error)
	SumInterestForPeriod(ctx context.Context, month, year int) (decimal.Decimal, error)
}

// BalanceRepository defines the interface for the singleton balance row
type BalanceRepository interface {
	Get(ctx context.Context) (*domain.BankBalance, error)

	// GetForUpdate reads the row with a row lock so no other money-moving
	// transaction can interleave between the read and the write.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx) (*domain.BankBalance, error)

	SetBalance(ctx context.Context, tx *sqlx.Tx, balance decimal.Decimal) error
	UpdateSettings(ctx context.Context, s *domain.Settings) error
}
