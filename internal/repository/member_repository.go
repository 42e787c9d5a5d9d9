package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bachatgat/ledger/internal/domain"
)

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO users (name, username, email, contact_number, pan_number, aadhar_number, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		m.Name,
		m.Username,
		m.Email,
		m.ContactNumber,
		m.PanNumber,
		m.AadharNumber,
		m.Role,
		m.CreatedAt,
	).Scan(&m.ID)
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	query := `
		SELECT id, name, username, email, contact_number, pan_number, aadhar_number, role, created_at
		FROM users
		WHERE id = $1
	`

	var m domain.Member
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *memberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	query := `
		SELECT id, name, username, email, contact_number, pan_number, aadhar_number, role, created_at
		FROM users
		ORDER BY id
	`

	var members []*domain.Member
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, err
	}

	return members, nil
}

func (r *memberRepository) Update(ctx context.Context, m *domain.Member) error {
	query := `
		UPDATE users
		SET name = $2, username = $3, email = $4, contact_number = $5, pan_number = $6, aadhar_number = $7, role = $8
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		m.Username,
		m.Email,
		m.ContactNumber,
		m.PanNumber,
		m.AadharNumber,
		m.Role,
	)

	return err
}

func (r *memberRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *memberRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}

func (r *memberRepository) ListUnpaidForPeriod(ctx context.Context, month, year int) ([]*domain.Member, error) {
	query := `
		SELECT u.id, u.name, u.username, u.email, u.contact_number, u.pan_number, u.aadhar_number, u.role, u.created_at
		FROM users u
		LEFT JOIN contributions c
			ON u.id = c.member_id AND c.month = $1 AND c.year = $2 AND c.is_paid = TRUE
		WHERE u.role = 'member' AND c.id IS NULL
		ORDER BY u.id
	`

	var members []*domain.Member
	if err := r.db.SelectContext(ctx, &members, query, month, year); err != nil {
		return nil, err
	}

	return members, nil
}

func (r *memberRepository) ListWithActiveLoans(ctx context.Context) ([]*domain.Member, error) {
	query := `
		SELECT DISTINCT u.id, u.name, u.username, u.email, u.contact_number, u.pan_number, u.aadhar_number, u.role, u.created_at
		FROM users u
		JOIN loans l ON u.id = l.member_id
		WHERE l.status IN ('approved', 'overdue')
		ORDER BY u.id
	`

	var members []*domain.Member
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, err
	}

	return members, nil
}
