package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan statuses
const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusRejected  = "rejected"
	LoanStatusOverdue   = "overdue"
	LoanStatusCompleted = "completed"
)

// Loan represents a loan issued from the shared pool. The interest rate is
// snapshotted from settings at application time and never changes afterwards.
// StartDate holds the proposed date while pending and is overwritten with the
// disbursement date on approval: the loan term starts at disbursement.
type Loan struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	MemberID            int64           `json:"member_id" db:"member_id"`
	ApproverID          *int64          `json:"approver_id,omitempty" db:"approver_id"`
	Amount              decimal.Decimal `json:"amount" db:"amount"`
	InterestRate        decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	StartDate           time.Time       `json:"start_date" db:"start_date"`
	Status              string          `json:"status" db:"status"`
	DisbursementType    *string         `json:"disbursement_type,omitempty" db:"disbursement_type"`
	DisbursementDetails []byte          `json:"disbursement_details,omitempty" db:"disbursement_details"`
	ActualEndDate       *time.Time      `json:"actual_end_date,omitempty" db:"actual_end_date"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the loan still accrues interest.
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusApproved || l.Status == LoanStatusOverdue
}

// Disbursement types
const (
	DisbursementCash   = "cash"
	DisbursementCheque = "cheque"
	DisbursementUPI    = "upi"
)

// CashNotes is the denomination breakdown for a cash disbursement. The
// weighted sum must equal the loan amount exactly.
type CashNotes struct {
	Notes500 int `json:"notes_500" validate:"min=0"`
	Notes200 int `json:"notes_200" validate:"min=0"`
	Notes100 int `json:"notes_100" validate:"min=0"`
}

// Total returns the monetary value of the counted notes.
func (c CashNotes) Total() decimal.Decimal {
	total := int64(c.Notes500)*500 + int64(c.Notes200)*200 + int64(c.Notes100)*100
	return decimal.NewFromInt(total)
}

type ChequeDetails struct {
	ChequeNumber string `json:"cheque_number" validate:"required,len=6,numeric"`
}

type UPIDetails struct {
	UPIUTR string `json:"upi_utr" validate:"required,len=12,numeric"`
}

// Disbursement is the tagged payload recorded when a loan is paid out.
// Exactly one of Cash, Cheque, UPI is set, matching Type.
type Disbursement struct {
	Type   string         `json:"type" validate:"required,oneof=cash cheque upi"`
	Cash   *CashNotes     `json:"cash,omitempty"`
	Cheque *ChequeDetails `json:"cheque,omitempty"`
	UPI    *UPIDetails    `json:"upi,omitempty"`
}

// Details serializes the variant payload the way it is persisted.
func (d Disbursement) Details() ([]byte, error) {
	switch d.Type {
	case DisbursementCash:
		return json.Marshal(d.Cash)
	case DisbursementCheque:
		return json.Marshal(d.Cheque)
	case DisbursementUPI:
		return json.Marshal(d.UPI)
	}
	return nil, nil
}

type ApplyLoanRequest struct {
	MemberID  int64           `json:"member_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type ReviewLoanRequest struct {
	ApproverID   int64           `json:"approver_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"required"`
	StartDate    string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type DisburseLoanRequest struct {
	ApproverID   int64        `json:"approver_id" validate:"required"`
	Disbursement Disbursement `json:"disbursement" validate:"required"`
}

type RecordPaymentRequest struct {
	PayerID    int64           `json:"payer_id" validate:"required"`
	AmountPaid decimal.Decimal `json:"amount_paid" validate:"required"`
}

type CloseLoanRequest struct {
	PayerID       int64           `json:"payer_id" validate:"required"`
	ClosingAmount decimal.Decimal `json:"closing_amount" validate:"required"`
}

// LoanAccount is a loan with its derived repayment position.
type LoanAccount struct {
	Loan                 *Loan           `json:"loan"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	TotalInterestPaid    decimal.Decimal `json:"total_interest_paid"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	MonthlyInterestDue   decimal.Decimal `json:"monthly_interest_due"`
}
