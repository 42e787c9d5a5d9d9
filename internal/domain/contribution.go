package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RejectedUTRMarker is written into president_utr_number when an approver
// rejects a pending contribution. The row keeps is_paid=false so the member
// can resubmit for the same period.
const RejectedUTRMarker = "REJECTED"

// Contribution is a member's monthly payment obligation to the shared pool.
// At most one row per (member, month, year) is pending or paid at a time.
type Contribution struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	MemberID           int64           `json:"member_id" db:"member_id"`
	Month              int             `json:"month" db:"month"`
	Year               int             `json:"year" db:"year"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	FineAmount         decimal.Decimal `json:"fine_amount" db:"fine_amount"`
	IsPaid             bool            `json:"is_paid" db:"is_paid"`
	PaymentDate        *time.Time      `json:"payment_date,omitempty" db:"payment_date"`
	UTRNumber          string          `json:"utr_number" db:"utr_number"`
	PresidentUTRNumber *string         `json:"president_utr_number,omitempty" db:"president_utr_number"`
	ApproverID         *int64          `json:"approver_id,omitempty" db:"approver_id"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// IsRejected reports whether an approver has rejected this contribution.
func (c *Contribution) IsRejected() bool {
	return !c.IsPaid && c.PresidentUTRNumber != nil && *c.PresidentUTRNumber == RejectedUTRMarker
}

// Total is the amount credited to the pool on approval.
func (c *Contribution) Total() decimal.Decimal {
	return c.Amount.Add(c.FineAmount)
}

// AmountDue is the breakdown of what a member owes for the current period.
type AmountDue struct {
	Base         decimal.Decimal `json:"base"`
	Fine         decimal.Decimal `json:"fine"`
	LoanInterest decimal.Decimal `json:"loan_interest"`
	Total        decimal.Decimal `json:"total"`
}

type SubmitContributionRequest struct {
	MemberID  int64           `json:"member_id" validate:"required"`
	Month     int             `json:"month" validate:"required,min=1,max=12"`
	Year      int             `json:"year" validate:"required,min=2000"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	UTRNumber string          `json:"utr_number" validate:"required"`
}

type ApproveContributionRequest struct {
	ApproverID         int64  `json:"approver_id" validate:"required"`
	PresidentUTRNumber string `json:"president_utr_number" validate:"required"`
}
