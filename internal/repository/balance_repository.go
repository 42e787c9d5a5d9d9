package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/internal/domain"
)

const balanceColumns = `id, balance, default_contribution_amount, default_fine_amount, default_interest_rate, payment_start_day, payment_end_day, last_updated`

type balanceRepository struct {
	db *sqlx.DB
}

func NewBalanceRepository(db *sqlx.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) Get(ctx context.Context) (*domain.BankBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM bank_balance WHERE id = $1`

	var b domain.BankBalance
	if err := r.db.GetContext(ctx, &b, query, domain.BankBalanceID); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *balanceRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx) (*domain.BankBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM bank_balance WHERE id = $1 FOR UPDATE`

	var b domain.BankBalance
	if err := tx.GetContext(ctx, &b, query, domain.BankBalanceID); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *balanceRepository) SetBalance(ctx context.Context, tx *sqlx.Tx, balance decimal.Decimal) error {
	query := `UPDATE bank_balance SET balance = $2, last_updated = $3 WHERE id = $1`

	_, err := tx.ExecContext(ctx, query, domain.BankBalanceID, balance, time.Now())
	return err
}

func (r *balanceRepository) UpdateSettings(ctx context.Context, s *domain.Settings) error {
	query := `
		UPDATE bank_balance
		SET default_contribution_amount = $2, default_fine_amount = $3, default_interest_rate = $4,
		    payment_start_day = $5, payment_end_day = $6, last_updated = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		domain.BankBalanceID,
		s.DefaultContributionAmount,
		s.DefaultFineAmount,
		s.DefaultInterestRate,
		s.PaymentStartDay,
		s.PaymentEndDay,
		time.Now(),
	)

	return err
}
