package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/internal/domain"
)

const loanColumns = `id, member_id, approver_id, amount, interest_rate, start_date, status, disbursement_type, disbursement_details, actual_end_date, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	query := `
		INSERT INTO loans (id, member_id, amount, interest_rate, start_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		l.ID,
		l.MemberID,
		l.Amount,
		l.InterestRate,
		l.StartDate,
		l.Status,
		l.CreatedAt,
		l.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var l domain.Loan
	if err := r.db.GetContext(ctx, &l, query, id); err != nil {
		return nil, err
	}

	return &l, nil
}

func (r *loanRepository) UpdateTerms(ctx context.Context, id uuid.UUID, amount, interestRate decimal.Decimal, startDate time.Time) error {
	query := `
		UPDATE loans
		SET amount = $2, interest_rate = $3, start_date = $4, updated_at = $5
		WHERE id = $1 AND status = 'pending'
	`

	_, err := r.db.ExecContext(ctx, query, id, amount, interestRate, startDate, time.Now())
	return err
}

// Approve persists the disbursement. The status predicate re-validates under
// the transaction's lock so two concurrent disbursements cannot both succeed.
// Returns sql.ErrNoRows when the loan is no longer pending.
func (r *loanRepository) Approve(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, approver_id = $3, start_date = $4, disbursement_type = $5, disbursement_details = $6, updated_at = $7
		WHERE id = $1 AND status = 'pending'
	`

	res, err := tx.ExecContext(ctx, query,
		l.ID,
		l.Status,
		l.ApproverID,
		l.StartDate,
		l.DisbursementType,
		l.DisbursementDetails,
		time.Now(),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *loanRepository) Reject(ctx context.Context, id uuid.UUID, approverID int64) error {
	query := `
		UPDATE loans
		SET status = 'rejected', approver_id = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, approverID, time.Now())
	return err
}

func (r *loanRepository) Complete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, endDate time.Time) error {
	query := `
		UPDATE loans
		SET status = 'completed', actual_end_date = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query, id, endDate, time.Now())
	return err
}

func (r *loanRepository) MarkOverdue(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE loans
		SET status = 'overdue', updated_at = $2
		WHERE id = $1 AND status = 'approved'
	`

	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

func (r *loanRepository) ListByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE member_id = $1 ORDER BY start_date DESC`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, memberID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListActiveByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE member_id = $1 AND status IN ('approved', 'overdue')
		ORDER BY start_date DESC
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, memberID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY start_date DESC`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListApprovedIdleSince(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	query := `
		SELECT ` + prefixedLoanColumns("l") + `
		FROM loans l
		LEFT JOIN (
			SELECT loan_id, MAX(payment_date) AS last_paid
			FROM loan_payments
			GROUP BY loan_id
		) p ON p.loan_id = l.id
		WHERE l.status = 'approved' AND COALESCE(p.last_paid, l.start_date) < $1
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, cutoff); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) CountByStatuses(ctx context.Context, statuses ...string) (int, error) {
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM loans WHERE status IN (?)`, statuses)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, err
	}

	return count, nil
}

func prefixedLoanColumns(alias string) string {
	return alias + `.id, ` + alias + `.member_id, ` + alias + `.approver_id, ` + alias + `.amount, ` +
		alias + `.interest_rate, ` + alias + `.start_date, ` + alias + `.status, ` + alias + `.disbursement_type, ` +
		alias + `.disbursement_details, ` + alias + `.actual_end_date, ` + alias + `.created_at, ` + alias + `.updated_at`
}
