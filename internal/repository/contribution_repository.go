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

const contributionColumns = `id, member_id, month, year, amount, fine_amount, is_paid, payment_date, utr_number, president_utr_number, approver_id, created_at`

type contributionRepository struct {
	db *sqlx.DB
}

func NewContributionRepository(db *sqlx.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Create(ctx context.Context, c *domain.Contribution) error {
	query := `
		INSERT INTO contributions (id, member_id, month, year, amount, fine_amount, is_paid, utr_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.MemberID,
		c.Month,
		c.Year,
		c.Amount,
		c.FineAmount,
		c.IsPaid,
		c.UTRNumber,
		c.CreatedAt,
	)

	return err
}

func (r *contributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`

	var c domain.Contribution
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *contributionRepository) GetForPeriod(ctx context.Context, memberID int64, month, year int) (*domain.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE member_id = $1 AND month = $2 AND year = $3`

	var c domain.Contribution
	if err := r.db.GetContext(ctx, &c, query, memberID, month, year); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *contributionRepository) UpdateSubmission(ctx context.Context, c *domain.Contribution) error {
	query := `
		UPDATE contributions
		SET amount = $2, utr_number = $3, fine_amount = $4, payment_date = $5, president_utr_number = NULL, approver_id = NULL
		WHERE id = $1 AND is_paid = FALSE
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Amount,
		c.UTRNumber,
		c.FineAmount,
		c.PaymentDate,
	)

	return err
}

// MarkPaid flips the row to paid. The predicate re-validates under the
// transaction's lock: the row must still be unpaid and still carry the UTR
// the approver matched, so a concurrent approval or resubmission makes this
// a no-op. Returns sql.ErrNoRows when no row qualified.
func (r *contributionRepository) MarkPaid(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, approverID int64, presidentUTR string, paidAt time.Time) error {
	query := `
		UPDATE contributions
		SET is_paid = TRUE, approver_id = $2, president_utr_number = $3, payment_date = $4
		WHERE id = $1 AND is_paid = FALSE AND utr_number = $3
	`

	res, err := tx.ExecContext(ctx, query, id, approverID, presidentUTR, paidAt)
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

func (r *contributionRepository) MarkRejected(ctx context.Context, id uuid.UUID, approverID int64) error {
	query := `
		UPDATE contributions
		SET approver_id = $2, president_utr_number = $3
		WHERE id = $1 AND is_paid = FALSE
	`

	_, err := r.db.ExecContext(ctx, query, id, approverID, domain.RejectedUTRMarker)
	return err
}

func (r *contributionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = $1 AND is_paid = FALSE`, id)
	return err
}

func (r *contributionRepository) ListByMember(ctx context.Context, memberID int64) ([]*domain.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE member_id = $1 ORDER BY year DESC, month DESC`

	var contributions []*domain.Contribution
	if err := r.db.SelectContext(ctx, &contributions, query, memberID); err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *contributionRepository) ListPending(ctx context.Context) ([]*domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE is_paid = FALSE AND president_utr_number IS NULL
		ORDER BY created_at DESC
	`

	var contributions []*domain.Contribution
	if err := r.db.SelectContext(ctx, &contributions, query); err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *contributionRepository) ListApprovedForPeriod(ctx context.Context, month, year int) ([]*domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE is_paid = TRUE AND month = $1 AND year = $2
		ORDER BY payment_date DESC
	`

	var contributions []*domain.Contribution
	if err := r.db.SelectContext(ctx, &contributions, query, month, year); err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *contributionRepository) SumPaidForPeriod(ctx context.Context, month, year int) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM contributions
		WHERE month = $1 AND year = $2 AND is_paid = TRUE
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, month, year); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
