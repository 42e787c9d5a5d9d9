package service

import (
	"context"
	"encoding/json"
	"time"

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

const balanceCacheKey = "bachat:balance"

// BalanceService owns the shared pool balance row: direct deposits and
// withdrawals, the group settings, and the officers' dashboard summary.
// Reads go through a short-lived redis cache that every money-moving
// service invalidates after commit.
type BalanceService struct {
	BalanceRepo repository.BalanceRepository
	MemberRepo  repository.MemberRepository
	LoanRepo    repository.LoanRepository
	ContribRepo repository.ContributionRepository
	PaymentRepo repository.PaymentRepository
	txm         repository.TxManager
	redis       *redis.Client
	config      *config.Config
	now         func() time.Time
}

func NewBalanceService(
	balanceRepo repository.BalanceRepository,
	memberRepo repository.MemberRepository,
	loanRepo repository.LoanRepository,
	contribRepo repository.ContributionRepository,
	paymentRepo repository.PaymentRepository,
	txm repository.TxManager,
	redisClient *redis.Client,
	cfg *config.Config,
) *BalanceService {
	return &BalanceService{
		BalanceRepo: balanceRepo,
		MemberRepo:  memberRepo,
		LoanRepo:    loanRepo,
		ContribRepo: contribRepo,
		PaymentRepo: paymentRepo,
		txm:         txm,
		redis:       redisClient,
		config:      cfg,
		now:         time.Now,
	}
}

// Get returns the balance row, serving from cache when possible.
func (s *BalanceService) Get(ctx context.Context) (*domain.BankBalance, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	balance, err := s.BalanceRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.writeCache(ctx, balance)
	return balance, nil
}

// Deposit credits the pool directly, outside any contribution or loan flow.
func (s *BalanceService) Deposit(ctx context.Context, actorID int64, amount decimal.Decimal) (*domain.BankBalance, error) {
	if err := s.requireApprover(ctx, actorID); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, apperrors.WrapValidation("deposit amount must be positive")
	}

	return s.mutate(ctx, money.Round(amount), false)
}

// Withdraw debits the pool. The balance can never go negative.
func (s *BalanceService) Withdraw(ctx context.Context, actorID int64, amount decimal.Decimal) (*domain.BankBalance, error) {
	if err := s.requireApprover(ctx, actorID); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, apperrors.WrapValidation("withdrawal amount must be positive")
	}

	return s.mutate(ctx, money.Round(amount), true)
}

func (s *BalanceService) mutate(ctx context.Context, amount decimal.Decimal, debit bool) (*domain.BankBalance, error) {
	var result *domain.BankBalance

	err := s.txm.WithinTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.BalanceRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		newBalance := balance.Balance.Add(amount)
		if debit {
			newBalance = balance.Balance.Sub(amount)
			if newBalance.IsNegative() {
				return apperrors.WrapInsufficientFunds(balance.Balance.StringFixed(2), amount.StringFixed(2))
			}
		}

		if err := s.BalanceRepo.SetBalance(ctx, tx, newBalance); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		balance.Balance = newBalance
		result = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return result, nil
}

// UpdateSettings replaces the group settings after validating them together.
func (s *BalanceService) UpdateSettings(ctx context.Context, actorID int64, req *domain.UpdateSettingsRequest) error {
	if err := s.requireApprover(ctx, actorID); err != nil {
		return err
	}

	settings := &domain.Settings{
		DefaultContributionAmount: money.Round(req.DefaultContributionAmount),
		DefaultFineAmount:         money.Round(req.DefaultFineAmount),
		DefaultInterestRate:       req.DefaultInterestRate,
		PaymentStartDay:           req.PaymentStartDay,
		PaymentEndDay:             req.PaymentEndDay,
	}

	if err := validateSettings(settings); err != nil {
		return err
	}

	if err := s.BalanceRepo.UpdateSettings(ctx, settings); err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	s.invalidateCache(ctx)

	logger.Info("group settings updated",
		"contribution", settings.DefaultContributionAmount.String(),
		"fine", settings.DefaultFineAmount.String(),
		"interest_rate", settings.DefaultInterestRate.String(),
		"window", settings.PaymentStartDay,
		"window_end", settings.PaymentEndDay,
	)

	return nil
}

// Summary builds the officers' dashboard for the month containing now.
func (s *BalanceService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	now := s.now()
	month, year := int(now.Month()), now.Year()

	members, err := s.MemberRepo.CountAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	activeLoans, err := s.LoanRepo.CountByStatuses(ctx, domain.LoanStatusApproved, domain.LoanStatusOverdue)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	contributions, err := s.ContribRepo.SumPaidForPeriod(ctx, month, year)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	interest, err := s.PaymentRepo.SumInterestForPeriod(ctx, month, year)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	balance, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		TotalMembers:           members,
		ActiveLoans:            activeLoans,
		ContributionsThisMonth: contributions,
		InterestThisMonth:      interest,
		IncomeThisMonth:        money.Round(contributions.Add(interest)),
		BankBalance:            balance.Balance,
	}, nil
}

func (s *BalanceService) requireApprover(ctx context.Context, actorID int64) error {
	actor, err := s.MemberRepo.GetByID(ctx, actorID)
	if err != nil {
		return apperrors.WrapNotFound("member", actorID)
	}

	if !actor.IsApprover() {
		return apperrors.WrapUnauthorized("only the president or secretary can perform this action")
	}

	return nil
}

func validateSettings(s *domain.Settings) error {
	if !s.DefaultContributionAmount.IsPositive() {
		return apperrors.WrapValidation("contribution amount must be positive")
	}
	if s.DefaultFineAmount.IsNegative() {
		return apperrors.WrapValidation("fine amount cannot be negative")
	}
	if s.DefaultInterestRate.IsNegative() || s.DefaultInterestRate.GreaterThan(decimal.NewFromInt(100)) {
		return apperrors.WrapValidation("interest rate must be between 0 and 100")
	}
	if s.PaymentStartDay < 1 || s.PaymentStartDay > 31 {
		return apperrors.WrapValidation("payment start day must be between 1 and 31")
	}
	if s.PaymentEndDay < 1 || s.PaymentEndDay > 31 {
		return apperrors.WrapValidation("payment end day must be between 1 and 31")
	}
	if s.PaymentStartDay > s.PaymentEndDay {
		return apperrors.WrapValidation("payment start day cannot be after the end day")
	}
	return nil
}

func (s *BalanceService) readCache(ctx context.Context) *domain.BankBalance {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, balanceCacheKey).Bytes()
	if err != nil {
		return nil
	}

	var balance domain.BankBalance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return nil
	}

	return &balance
}

func (s *BalanceService) writeCache(ctx context.Context, balance *domain.BankBalance) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(balance)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, balanceCacheKey, raw, s.config.Ledger.CacheTTL).Err(); err != nil {
		logger.Warn("caching balance", "error", err)
	}
}

func (s *BalanceService) invalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, balanceCacheKey).Err(); err != nil {
		logger.Warn("invalidating balance cache", "error", err)
	}
}
