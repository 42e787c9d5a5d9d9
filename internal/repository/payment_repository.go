package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.LoanPayment) error {
	query := `
		INSERT INTO loan_payments (id, loan_id, amount_paid, interest_paid, payment_date)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.ExecContext(ctx, query,
		p.ID,
		p.LoanID,
		p.AmountPaid,
		p.InterestPaid,
		p.PaymentDate,
	)

	return err
}

func (r *paymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	query := `
		SELECT id, loan_id, amount_paid, interest_paid, payment_date
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY payment_date DESC
	`

	var payments []*domain.LoanPayment
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) TotalsByLoan(ctx context.Context, loanID uuid.UUID) (domain.PaymentTotals, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid), 0) AS total_paid,
		       COALESCE(SUM(interest_paid), 0) AS total_interest_paid
		FROM loan_payments
		WHERE loan_id = $1
	`

	var totals domain.PaymentTotals
	if err := r.db.GetContext(ctx, &totals, query, loanID); err != nil {
		return domain.PaymentTotals{}, err
	}

	return totals, nil
}

func (r *paymentRepository) LastPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	query := `SELECT MAX(payment_date) FROM loan_payments WHERE loan_id = $1`

	var last sql.NullTime
	if err := r.db.GetContext(ctx, &last, query, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if !last.Valid {
		return nil, nil
	}

	return &last.Time, nil
}

func (r *paymentRepository) SumInterestForPeriod(ctx context.Context, month, year int) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(interest_paid), 0)
		FROM loan_payments
		WHERE EXTRACT(MONTH FROM payment_date) = $1 AND EXTRACT(YEAR FROM payment_date) = $2
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, month, year); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
