package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankBalanceID is the primary key of the singleton balance row.
const BankBalanceID = 1

// BankBalance is the single shared pool balance plus the group's settings.
// Every money-moving operation updates this row inside the same transaction
// as the related ledger record.
type BankBalance struct {
	ID                        int64           `json:"id" db:"id"`
	Balance                   decimal.Decimal `json:"balance" db:"balance"`
	DefaultContributionAmount decimal.Decimal `json:"default_contribution_amount" db:"default_contribution_amount"`
	DefaultFineAmount         decimal.Decimal `json:"default_fine_amount" db:"default_fine_amount"`
	DefaultInterestRate       decimal.Decimal `json:"default_interest_rate" db:"default_interest_rate"`
	PaymentStartDay           int             `json:"payment_start_day" db:"payment_start_day"`
	PaymentEndDay             int             `json:"payment_end_day" db:"payment_end_day"`
	LastUpdated               time.Time       `json:"last_updated" db:"last_updated"`
}

// Settings is the configurable subset of the balance row, validated as a group.
type Settings struct {
	DefaultContributionAmount decimal.Decimal `json:"default_contribution_amount"`
	DefaultFineAmount         decimal.Decimal `json:"default_fine_amount"`
	DefaultInterestRate       decimal.Decimal `json:"default_interest_rate"`
	PaymentStartDay           int             `json:"payment_start_day"`
	PaymentEndDay             int             `json:"payment_end_day"`
}

type BalanceMutationRequest struct {
	ActorID int64           `json:"actor_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"required"`
}

type UpdateSettingsRequest struct {
	ActorID                   int64           `json:"actor_id" validate:"required"`
	DefaultContributionAmount decimal.Decimal `json:"default_contribution_amount" validate:"required"`
	DefaultFineAmount         decimal.Decimal `json:"default_fine_amount"`
	DefaultInterestRate       decimal.Decimal `json:"default_interest_rate"`
	PaymentStartDay           int             `json:"payment_start_day" validate:"required,min=1,max=31"`
	PaymentEndDay             int             `json:"payment_end_day" validate:"required,min=1,max=31"`
}

// DashboardSummary is the officers' read-only overview.
type DashboardSummary struct {
	TotalMembers           int             `json:"total_members"`
	ActiveLoans            int             `json:"active_loans"`
	ContributionsThisMonth decimal.Decimal `json:"contributions_this_month"`
	InterestThisMonth      decimal.Decimal `json:"interest_this_month"`
	IncomeThisMonth        decimal.Decimal `json:"income_this_month"`
	BankBalance            decimal.Decimal `json:"bank_balance"`
}
