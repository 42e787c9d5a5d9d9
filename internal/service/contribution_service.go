package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository"
	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/logger"
	"github.com/bachatgat/ledger/pkg/money"
)

// ContributionService governs the monthly contribution ledger: amount-due
// computation, the submit/approve/reject lifecycle and the balance credit
// that accompanies an approval.
type ContributionService struct {
	ContribRepo repository.ContributionRepository
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	BalanceRepo repository.BalanceRepository
	MemberRepo  repository.MemberRepository
	txm         repository.TxManager
	redis       *redis.Client
	config      *config.Config
	now         func() time.Time
}

func NewContributionService(
	contribRepo repository.ContributionRepository,
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	balanceRepo repository.BalanceRepository,
	memberRepo repository.MemberRepository,
	txm repository.TxManager,
	redisClient *redis.Client,
	cfg *config.Config,
) *ContributionService {
	return &ContributionService{
		ContribRepo: contribRepo,
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

// ComputeDue returns the member's obligation for the period containing today:
// the base contribution, the late fine when today is past the payment window,
// and one month of interest on the outstanding principal of every active loan.
func (s *ContributionService) ComputeDue(ctx context.Context, memberID int64, today time.Time) (*domain.AmountDue, error) {
	settings, err := s.BalanceRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	due := &domain.AmountDue{
		Base:         settings.DefaultContributionAmount,
		Fine:         decimal.Zero,
		LoanInterest: decimal.Zero,
	}

	// The fine applies uniformly regardless of role.
	if today.Day() > settings.PaymentEndDay {
		due.Fine = settings.DefaultFineAmount
	}

	loans, err := s.LoanRepo.ListActiveByMember(ctx, memberID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	for _, loan := range loans {
		totals, err := s.PaymentRepo.TotalsByLoan(ctx, loan.ID)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}

		outstanding := loan.Amount.Sub(totals.PrincipalRepaid())
		if outstanding.IsPositive() {
			monthly := money.Round(outstanding.Mul(money.MonthlyRate(loan.InterestRate)))
			due.LoanInterest = due.LoanInterest.Add(monthly)
		}
	}

	due.Total = money.Round(due.Base.Add(due.Fine).Add(due.LoanInterest))
	return due, nil
}

// Submit records a member's contribution claim for a period. A pending row
// for the same period is overwritten in place (resubmission); a paid row
// refuses with AlreadyPaid.
func (s *ContributionService) Submit(ctx context.Context, req *domain.SubmitContributionRequest) (*domain.Contribution, error) {
	utr := strings.TrimSpace(req.UTRNumber)
	if utr == "" {
		return nil, apperrors.WrapValidation("UTR number is required for contribution")
	}

	if !req.Amount.IsPositive() {
		return nil, apperrors.WrapValidation("contribution amount must be positive")
	}

	settings, err := s.BalanceRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	now := s.now()
	fine := decimal.Zero
	if now.Day() > settings.PaymentEndDay {
		fine = settings.DefaultFineAmount
	}

	existing, err := s.ContribRepo.GetForPeriod(ctx, req.MemberID, req.Month, req.Year)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WrapDatabaseError(err)
	}

	if existing != nil {
		if existing.IsPaid {
			return nil, apperrors.WrapAlreadyPaid(existing.ID)
		}

		existing.Amount = money.Round(req.Amount)
		existing.UTRNumber = utr
		existing.FineAmount = money.Round(fine)
		existing.PaymentDate = &now
		existing.PresidentUTRNumber = nil
		existing.ApproverID = nil

		if err := s.ContribRepo.UpdateSubmission(ctx, existing); err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
		return existing, nil
	}

	contribution := &domain.Contribution{
		ID:         uuid.New(),
		MemberID:   req.MemberID,
		Month:      req.Month,
		Year:       req.Year,
		Amount:     money.Round(req.Amount),
		FineAmount: money.Round(fine),
		IsPaid:     false,
		UTRNumber:  utr,
		CreatedAt:  now,
	}

	if err := s.ContribRepo.Create(ctx, contribution); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return contribution, nil
}

// Approve reconciles the approver's independently observed UTR against the
// member's submitted one. On an exact match the contribution flips to paid
// and the pool is credited with amount + fine inside one transaction.
func (s *ContributionService) Approve(ctx context.Context, contributionID uuid.UUID, req *domain.ApproveContributionRequest) (*domain.Contribution, error) {
	if err := s.requireApprover(ctx, req.ApproverID); err != nil {
		return nil, err
	}

	presidentUTR := strings.TrimSpace(req.PresidentUTRNumber)
	if presidentUTR == "" {
		return nil, apperrors.WrapValidation("president UTR number is required to approve this contribution")
	}

	contribution, err := s.ContribRepo.GetByID(ctx, contributionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapNotFound("contribution", contributionID)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	if contribution.IsPaid {
		return nil, apperrors.WrapAlreadyPaid(contributionID)
	}

	if contribution.UTRNumber != presidentUTR {
		return nil, apperrors.WrapUTRMismatch(contributionID)
	}

	paidAt := s.now()
	err = s.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.BalanceRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		// The IsPaid check above read a pre-transaction snapshot. MarkPaid
		// re-validates under the balance lock and affects no row when a
		// concurrent approval won, so the pool is credited at most once.
		if err := s.ContribRepo.MarkPaid(ctx, tx, contributionID, req.ApproverID, presidentUTR, paidAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapAlreadyPaid(contributionID)
			}
			return apperrors.WrapDatabaseError(err)
		}

		newBalance := balance.Balance.Add(contribution.Total())
		if err := s.BalanceRepo.SetBalance(ctx, tx, newBalance); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateBalanceCache(ctx)

	contribution.IsPaid = true
	contribution.ApproverID = &req.ApproverID
	contribution.PresidentUTRNumber = &presidentUTR
	contribution.PaymentDate = &paidAt

	logger.Info("contribution approved",
		"contribution_id", contributionID.String(),
		"member_id", contribution.MemberID,
		"amount", contribution.Total().String(),
	)

	return contribution, nil
}

// Reject marks a pending contribution as rejected without deleting it.
func (s *ContributionService) Reject(ctx context.Context, contributionID uuid.UUID, approverID int64) error {
	if err := s.requireApprover(ctx, approverID); err != nil {
		return err
	}

	contribution, err := s.ContribRepo.GetByID(ctx, contributionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.WrapNotFound("contribution", contributionID)
		}
		return apperrors.WrapDatabaseError(err)
	}

	if contribution.IsPaid {
		return apperrors.WrapAlreadyPaid(contributionID)
	}

	if err := s.ContribRepo.MarkRejected(ctx, contributionID, approverID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	return nil
}

// Delete removes a contribution; approved contributions are immutable.
func (s *ContributionService) Delete(ctx context.Context, contributionID uuid.UUID) error {
	contribution, err := s.ContribRepo.GetByID(ctx, contributionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.WrapNotFound("contribution", contributionID)
		}
		return apperrors.WrapDatabaseError(err)
	}

	if contribution.IsPaid {
		return apperrors.WrapAlreadyPaid(contributionID)
	}

	if err := s.ContribRepo.Delete(ctx, contributionID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	return nil
}

// HistoryByMember returns the member's full contribution history.
func (s *ContributionService) HistoryByMember(ctx context.Context, memberID int64) ([]*domain.Contribution, error) {
	contributions, err := s.ContribRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return contributions, nil
}

// PendingForApproval lists contributions awaiting an approver's decision.
func (s *ContributionService) PendingForApproval(ctx context.Context) ([]*domain.Contribution, error) {
	contributions, err := s.ContribRepo.ListPending(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return contributions, nil
}

// ApprovedForPeriod lists approved contributions for a month.
func (s *ContributionService) ApprovedForPeriod(ctx context.Context, month, year int) ([]*domain.Contribution, error) {
	contributions, err := s.ContribRepo.ListApprovedForPeriod(ctx, month, year)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return contributions, nil
}

func (s *ContributionService) requireApprover(ctx context.Context, actorID int64) error {
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

func (s *ContributionService) invalidateBalanceCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, balanceCacheKey).Err(); err != nil {
		logger.Warn("invalidating balance cache", "error", err)
	}
}
