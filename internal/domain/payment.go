package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanPayment is an append-only repayment record. The principal portion is
// always derived as AmountPaid - InterestPaid, never stored.
type LoanPayment struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	LoanID       uuid.UUID       `json:"loan_id" db:"loan_id"`
	AmountPaid   decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	InterestPaid decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	PaymentDate  time.Time       `json:"payment_date" db:"payment_date"`
}

// PrincipalPaid is the part of the payment that reduced the principal.
func (p *LoanPayment) PrincipalPaid() decimal.Decimal {
	return p.AmountPaid.Sub(p.InterestPaid)
}

// PaymentTotals aggregates a loan's repayment history.
type PaymentTotals struct {
	TotalPaid         decimal.Decimal `db:"total_paid"`
	TotalInterestPaid decimal.Decimal `db:"total_interest_paid"`
}

// PrincipalRepaid is the summed principal reduction across all payments.
func (t PaymentTotals) PrincipalRepaid() decimal.Decimal {
	return t.TotalPaid.Sub(t.TotalInterestPaid)
}
