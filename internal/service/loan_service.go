package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository"
	"github.com/bachatgat/ledger/internal/statemachine"
	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/logger"
	"github.com/bachatgat/ledger/pkg/money"
)

const dateLayout = "2006-01-02"

// LoanService drives the loan lifecycle from application through disbursement,
// repayment and closure. Every operation that moves money runs inside a single
// transaction holding the bank balance row lock.
type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	BalanceRepo repository.BalanceRepository
	MemberRepo  repository.MemberRepository
	txm         repository.TxManager
	redis       *redis.Client
	config      *config.Config
	now         func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	balanceRepo repository.BalanceRepository,
	memberRepo repository.MemberRepository,
	txm repository.TxManager,
	redisClient *redis.Client,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		BalanceRepo: balanceRepo,
		MemberRepo:  memberRepo,
		txm:         txm,
		redis:       redisClient,
		config:      cfg,
		now:         time.Now,
	}
}

// Apply files a loan application in pending state. The interest rate is
// snapshotted from the group settings so later settings changes never touch
// loans already in flight.
func (s *LoanService) Apply(ctx context.Context, req *domain.ApplyLoanRequest) (*domain.Loan, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.WrapValidation("loan amount must be positive")
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, apperrors.WrapValidation("invalid start date %q, expected YYYY-MM-DD", req.StartDate)
	}

	settings, err := s.BalanceRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	if req.Amount.GreaterThan(settings.Balance) {
		return nil, apperrors.WrapValidation(
			"requested amount %s exceeds available bank balance %s",
			req.Amount.StringFixed(2), settings.Balance.StringFixed(2),
		)
	}

	if startDate.Before(dateOf(s.now())) {
		return nil, apperrors.WrapValidation("start date cannot be in the past")
	}

	rate := settings.DefaultInterestRate
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperrors.WrapValidation("configured interest rate %s is outside 0-100", rate.String())
	}

	now := s.now()
	loan := &domain.Loan{
		ID:           uuid.New(),
		MemberID:     req.MemberID,
		Amount:       money.Round(req.Amount),
		InterestRate: rate,
		StartDate:    startDate,
		Status:       domain.LoanStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	logger.Info("loan application filed",
		"loan_id", loan.ID.String(),
		"member_id", loan.MemberID,
		"amount", loan.Amount.String(),
	)

	return loan, nil
}

// Review lets an approver adjust the terms of a pending application before
// deciding on it.
func (s *LoanService) Review(ctx context.Context, loanID uuid.UUID, req *domain.ReviewLoanRequest) (*domain.Loan, error) {
	if err := s.requireApprover(ctx, req.ApproverID); err != nil {
		return nil, err
	}

	if !req.Amount.IsPositive() {
		return nil, apperrors.WrapValidation("loan amount must be positive")
	}
	if !req.InterestRate.IsPositive() {
		return nil, apperrors.WrapValidation("interest rate must be positive")
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, apperrors.WrapValidation("invalid start date %q, expected YYYY-MM-DD", req.StartDate)
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status != domain.LoanStatusPending {
		return nil, apperrors.WrapValidation("only pending loans can be reviewed, loan is %s", loan.Status)
	}

	amount := money.Round(req.Amount)
	if err := s.LoanRepo.UpdateTerms(ctx, loanID, amount, req.InterestRate, startDate); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	loan.Amount = amount
	loan.InterestRate = req.InterestRate
	loan.StartDate = startDate
	return loan, nil
}

// Disburse approves a pending loan and pays it out. The balance is re-checked
// under the row lock so two concurrent disbursements cannot both drain the
// pool, and the loan term restarts at the disbursement date.
func (s *LoanService) Disburse(ctx context.Context, loanID uuid.UUID, req *domain.DisburseLoanRequest) (*domain.Loan, error) {
	if err := s.requireApprover(ctx, req.ApproverID); err != nil {
		return nil, err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	machine := statemachine.NewLoanFSM(loan)
	if !machine.Can(statemachine.EventApprove) {
		return nil, apperrors.WrapValidation("loan cannot be disbursed in status %s", loan.Status)
	}

	if err := validateDisbursement(req.Disbursement, loan.Amount); err != nil {
		return nil, err
	}

	details, err := req.Disbursement.Details()
	if err != nil {
		return nil, apperrors.WrapValidation("invalid disbursement details: %v", err)
	}

	today := dateOf(s.now())
	err = s.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.BalanceRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if balance.Balance.LessThan(loan.Amount) {
			return apperrors.WrapInsufficientFunds(balance.Balance.StringFixed(2), loan.Amount.StringFixed(2))
		}

		if err := machine.Approve(ctx); err != nil {
			return apperrors.WrapValidation("%v", err)
		}

		loan.ApproverID = &req.ApproverID
		loan.StartDate = today
		loan.DisbursementType = &req.Disbursement.Type
		loan.DisbursementDetails = details

		// The FSM guard above read a pre-transaction snapshot. The update's
		// status predicate re-validates under the balance lock, so only one
		// of two concurrent disbursements can debit the pool.
		if err := s.LoanRepo.Approve(ctx, tx, loan); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapValidation("loan %s is no longer pending", loan.ID)
			}
			return apperrors.WrapDatabaseError(err)
		}

		if err := s.BalanceRepo.SetBalance(ctx, tx, balance.Balance.Sub(loan.Amount)); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateBalanceCache(ctx)

	logger.Info("loan disbursed",
		"loan_id", loan.ID.String(),
		"member_id", loan.MemberID,
		"amount", loan.Amount.String(),
		"type", req.Disbursement.Type,
	)

	return loan, nil
}

// Reject declines a pending application. Nothing moves in the ledger.
func (s *LoanService) Reject(ctx context.Context, loanID uuid.UUID, approverID int64) error {
	if err := s.requireApprover(ctx, approverID); err != nil {
		return err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return err
	}

	machine := statemachine.NewLoanFSM(loan)
	if !machine.Can(statemachine.EventReject) {
		return apperrors.WrapValidation("loan cannot be rejected in status %s", loan.Status)
	}

	if err := s.LoanRepo.Reject(ctx, loanID, approverID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	return nil
}

// RecordPayment posts a repayment, splitting it interest-first against one
// month of interest on the outstanding principal. The pool is credited with
// the full amount; the loan completes when the principal is fully repaid.
func (s *LoanService) RecordPayment(ctx context.Context, loanID uuid.UUID, req *domain.RecordPaymentRequest) (*domain.LoanPayment, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := s.requirePayerOrApprover(ctx, req.PayerID, loan.MemberID); err != nil {
		return nil, err
	}

	if loan.Status == domain.LoanStatusCompleted {
		return nil, apperrors.WrapAlreadyCompleted(loanID)
	}

	if !req.AmountPaid.IsPositive() {
		return nil, apperrors.WrapValidation("payment amount must be positive")
	}

	outstanding, err := s.outstandingPrincipal(ctx, loan)
	if err != nil {
		return nil, err
	}

	monthlyDue := money.Round(outstanding.Mul(money.MonthlyRate(loan.InterestRate)))

	amount := money.Round(req.AmountPaid)
	interestPortion := monthlyDue
	if amount.LessThan(monthlyDue) {
		interestPortion = amount
	}
	principalPortion := amount.Sub(interestPortion)

	payment := &domain.LoanPayment{
		ID:           uuid.New(),
		LoanID:       loanID,
		AmountPaid:   amount,
		InterestPaid: interestPortion,
		PaymentDate:  s.now(),
	}

	machine := statemachine.NewLoanFSM(loan)
	err = s.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.BalanceRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if err := s.PaymentRepo.Create(ctx, tx, payment); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if err := s.BalanceRepo.SetBalance(ctx, tx, balance.Balance.Add(amount)); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if outstanding.Sub(principalPortion).LessThanOrEqual(decimal.Zero) {
			if err := machine.Complete(ctx); err != nil {
				return apperrors.WrapValidation("%v", err)
			}
			if err := s.LoanRepo.Complete(ctx, tx, loanID, dateOf(s.now())); err != nil {
				return apperrors.WrapDatabaseError(err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateBalanceCache(ctx)

	logger.Info("loan payment recorded",
		"loan_id", loanID.String(),
		"amount", amount.String(),
		"interest", interestPortion.String(),
		"status", loan.Status,
	)

	return payment, nil
}

// Close settles a loan in one shot. Interest for the final stretch accrues
// daily from the last payment (or the start date when none exists), unlike
// the monthly charge applied by RecordPayment.
func (s *LoanService) Close(ctx context.Context, loanID uuid.UUID, req *domain.CloseLoanRequest) (*domain.LoanPayment, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := s.requirePayerOrApprover(ctx, req.PayerID, loan.MemberID); err != nil {
		return nil, err
	}

	if loan.Status == domain.LoanStatusCompleted {
		return nil, apperrors.WrapAlreadyCompleted(loanID)
	}

	if !loan.IsActive() {
		return nil, apperrors.WrapValidation("only disbursed loans can be closed, loan is %s", loan.Status)
	}

	if !req.ClosingAmount.IsPositive() {
		return nil, apperrors.WrapValidation("closing amount must be positive")
	}

	outstanding, err := s.outstandingPrincipal(ctx, loan)
	if err != nil {
		return nil, err
	}

	lastPaid, err := s.PaymentRepo.LastPaymentDate(ctx, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	interestStart := dateOf(loan.StartDate)
	if lastPaid != nil {
		interestStart = dateOf(*lastPaid)
	}

	days := daysBetween(interestStart, dateOf(s.now()))
	accrued := decimal.Zero
	if days > 0 && outstanding.IsPositive() {
		accrued = money.Round(
			outstanding.Mul(money.DailyRate(loan.InterestRate)).Mul(decimal.NewFromInt(int64(days))),
		)
	}

	remaining := money.Round(outstanding.Add(accrued))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	closing := money.Round(req.ClosingAmount)
	if closing.LessThan(remaining) {
		return nil, apperrors.WrapInsufficientClosingAmount(closing.StringFixed(2), remaining.StringFixed(2))
	}

	payment := &domain.LoanPayment{
		ID:           uuid.New(),
		LoanID:       loanID,
		AmountPaid:   closing,
		InterestPaid: accrued,
		PaymentDate:  s.now(),
	}

	machine := statemachine.NewLoanFSM(loan)
	err = s.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.BalanceRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if err := s.PaymentRepo.Create(ctx, tx, payment); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if err := s.BalanceRepo.SetBalance(ctx, tx, balance.Balance.Add(closing)); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		if err := machine.Complete(ctx); err != nil {
			return apperrors.WrapValidation("%v", err)
		}
		if err := s.LoanRepo.Complete(ctx, tx, loanID, dateOf(s.now())); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateBalanceCache(ctx)

	logger.Info("loan closed",
		"loan_id", loanID.String(),
		"closing_amount", closing.String(),
		"accrued_interest", accrued.String(),
		"days", days,
	)

	return payment, nil
}

// Account returns a loan with its derived repayment position.
func (s *LoanService) Account(ctx context.Context, loanID uuid.UUID) (*domain.LoanAccount, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	totals, err := s.PaymentRepo.TotalsByLoan(ctx, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	outstanding := loan.Amount.Sub(totals.PrincipalRepaid())
	monthlyDue := decimal.Zero
	if loan.IsActive() && outstanding.IsPositive() {
		monthlyDue = money.Round(outstanding.Mul(money.MonthlyRate(loan.InterestRate)))
	}

	return &domain.LoanAccount{
		Loan:                 loan,
		TotalPaid:            totals.TotalPaid,
		TotalInterestPaid:    totals.TotalInterestPaid,
		OutstandingPrincipal: outstanding,
		MonthlyInterestDue:   monthlyDue,
	}, nil
}

// Payments lists the repayment history for a loan, newest first.
func (s *LoanService) Payments(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	payments, err := s.PaymentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return payments, nil
}

// ListByMember returns all loans for a member, any status.
func (s *LoanService) ListByMember(ctx context.Context, memberID int64) ([]*domain.Loan, error) {
	loans, err := s.LoanRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loans, nil
}

// ListAll returns every loan in the ledger.
func (s *LoanService) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.LoanRepo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loans, nil
}

// MarkOverdueLoans flags approved loans with no repayment activity for the
// configured number of days. Returns how many loans were flagged.
func (s *LoanService) MarkOverdueLoans(ctx context.Context) (int, error) {
	cutoff := s.now().AddDate(0, 0, -s.config.Ledger.LoanOverdueAfterDays)

	loans, err := s.LoanRepo.ListApprovedIdleSince(ctx, cutoff)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	marked := 0
	for _, loan := range loans {
		machine := statemachine.NewLoanFSM(loan)
		if err := machine.MarkOverdue(ctx); err != nil {
			logger.Warn("skipping overdue transition", "loan_id", loan.ID.String(), "error", err)
			continue
		}
		if err := s.LoanRepo.MarkOverdue(ctx, loan.ID); err != nil {
			return marked, apperrors.WrapDatabaseError(err)
		}
		marked++
	}

	return marked, nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapNotFound("loan", loanID)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) outstandingPrincipal(ctx context.Context, loan *domain.Loan) (decimal.Decimal, error) {
	totals, err := s.PaymentRepo.TotalsByLoan(ctx, loan.ID)
	if err != nil {
		return decimal.Zero, apperrors.WrapDatabaseError(err)
	}
	return loan.Amount.Sub(totals.PrincipalRepaid()), nil
}

func (s *LoanService) requireApprover(ctx context.Context, actorID int64) error {
	actor, err := s.MemberRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.WrapNotFound("member", actorID)
		}
		return apperrors.WrapDatabaseError(err)
	}

	if !actor.IsApprover() {
		return apperrors.WrapUnauthorized("only the president or secretary can perform this action")
	}

	return nil
}

// requirePayerOrApprover allows the borrower themselves or an approver.
func (s *LoanService) requirePayerOrApprover(ctx context.Context, payerID, borrowerID int64) error {
	if payerID == borrowerID {
		return nil
	}
	return s.requireApprover(ctx, payerID)
}

func (s *LoanService) invalidateBalanceCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, balanceCacheKey).Err(); err != nil {
		logger.Warn("invalidating balance cache", "error", err)
	}
}

func validateDisbursement(d domain.Disbursement, loanAmount decimal.Decimal) error {
	switch d.Type {
	case domain.DisbursementCash:
		if d.Cash == nil {
			return apperrors.WrapValidation("cash disbursement requires a note breakdown")
		}
		if d.Cash.Notes500 < 0 || d.Cash.Notes200 < 0 || d.Cash.Notes100 < 0 {
			return apperrors.WrapValidation("note counts cannot be negative")
		}
		if !d.Cash.Total().Equal(loanAmount) {
			return apperrors.WrapValidation(
				"cash notes total %s does not match loan amount %s",
				d.Cash.Total().StringFixed(2), loanAmount.StringFixed(2),
			)
		}
	case domain.DisbursementCheque:
		if d.Cheque == nil || !isDigits(d.Cheque.ChequeNumber, 6) {
			return apperrors.WrapValidation("cheque number must be exactly 6 digits")
		}
	case domain.DisbursementUPI:
		if d.UPI == nil || !isDigits(d.UPI.UPIUTR, 12) {
			return apperrors.WrapValidation("UPI UTR must be exactly 12 digits")
		}
	default:
		return apperrors.WrapValidation("unknown disbursement type %q", d.Type)
	}
	return nil
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// dateOf truncates a timestamp to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from one date to another. Both endpoints
// are renormalized to UTC dates so the count is unaffected by DST shifts in
// the inputs' locations.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
