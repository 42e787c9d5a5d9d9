package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository/mocks"
	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/money"
)

type contributionMocks struct {
	contrib *mocks.MockContributionRepository
	loan    *mocks.MockLoanRepository
	payment *mocks.MockPaymentRepository
	balance *mocks.MockBalanceRepository
	member  *mocks.MockMemberRepository
	txm     *mocks.MockTxManager
}

func newContributionService(t *testing.T) (*ContributionService, *contributionMocks) {
	t.Helper()

	m := &contributionMocks{
		contrib: new(mocks.MockContributionRepository),
		loan:    new(mocks.MockLoanRepository),
		payment: new(mocks.MockPaymentRepository),
		balance: new(mocks.MockBalanceRepository),
		member:  new(mocks.MockMemberRepository),
		txm:     new(mocks.MockTxManager),
	}

	svc := NewContributionService(m.contrib, m.loan, m.payment, m.balance, m.member, m.txm, nil, &config.Config{})
	return svc, m
}

func testSettings(balance string) *domain.BankBalance {
	return &domain.BankBalance{
		ID:                        domain.BankBalanceID,
		Balance:                   money.MustParse(balance),
		DefaultContributionAmount: money.MustParse("150.00"),
		DefaultFineAmount:         money.MustParse("50.00"),
		DefaultInterestRate:       money.MustParse("12"),
		PaymentStartDay:           1,
		PaymentEndDay:             15,
	}
}

func testApprover(id int64) *domain.Member {
	return &domain.Member{ID: id, Name: "Asha Patil", Username: "asha", Role: domain.RolePresident}
}

func decimalEq(want string) interface{} {
	expected := money.MustParse(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(expected)
	})
}

func TestContributionService_ComputeDue(t *testing.T) {
	memberDay10 := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	memberDay20 := time.Date(2025, time.March, 20, 10, 0, 0, 0, time.UTC)

	activeLoan := &domain.Loan{
		ID:           uuid.New(),
		MemberID:     7,
		Amount:       money.MustParse("10000"),
		InterestRate: money.MustParse("12"),
		Status:       domain.LoanStatusApproved,
	}

	tests := []struct {
		name         string
		today        time.Time
		loans        []*domain.Loan
		totals       domain.PaymentTotals
		wantFine     string
		wantInterest string
		wantTotal    string
	}{
		{
			name:         "on time without loans",
			today:        memberDay10,
			loans:        []*domain.Loan{},
			wantFine:     "0",
			wantInterest: "0",
			wantTotal:    "150.00",
		},
		{
			name:  "late with active loan",
			today: memberDay20,
			loans: []*domain.Loan{activeLoan},
			totals: domain.PaymentTotals{
				TotalPaid:         decimal.Zero,
				TotalInterestPaid: decimal.Zero,
			},
			wantFine:     "50.00",
			wantInterest: "100.00",
			wantTotal:    "300.00",
		},
		{
			name:  "interest charged on outstanding only",
			today: memberDay10,
			loans: []*domain.Loan{activeLoan},
			totals: domain.PaymentTotals{
				TotalPaid:         money.MustParse("5100"),
				TotalInterestPaid: money.MustParse("100"),
			},
			// 10000 - (5100 - 100) = 5000 outstanding, 12% yearly
			wantFine:     "0",
			wantInterest: "50.00",
			wantTotal:    "200.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newContributionService(t)

			m.balance.On("Get", mock.Anything).Return(testSettings("50000"), nil)
			m.loan.On("ListActiveByMember", mock.Anything, int64(7)).Return(tt.loans, nil)
			if len(tt.loans) > 0 {
				m.payment.On("TotalsByLoan", mock.Anything, activeLoan.ID).Return(tt.totals, nil)
			}

			due, err := svc.ComputeDue(context.Background(), 7, tt.today)

			assert.NoError(t, err)
			assert.True(t, due.Base.Equal(money.MustParse("150.00")), "base = %s", due.Base)
			assert.True(t, due.Fine.Equal(money.MustParse(tt.wantFine)), "fine = %s", due.Fine)
			assert.True(t, due.LoanInterest.Equal(money.MustParse(tt.wantInterest)), "interest = %s", due.LoanInterest)
			assert.True(t, due.Total.Equal(money.MustParse(tt.wantTotal)), "total = %s", due.Total)
		})
	}
}

func TestContributionService_Submit_NewContribution(t *testing.T) {
	svc, m := newContributionService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }

	m.balance.On("Get", mock.Anything).Return(testSettings("50000"), nil)
	m.contrib.On("GetForPeriod", mock.Anything, int64(7), 3, 2025).Return(nil, sql.ErrNoRows)
	m.contrib.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Contribution) bool {
		return c.MemberID == 7 && c.Month == 3 && c.Year == 2025 &&
			c.Amount.Equal(money.MustParse("150.00")) &&
			c.FineAmount.IsZero() && !c.IsPaid && c.UTRNumber == "UTR100200300400"
	})).Return(nil)

	contribution, err := svc.Submit(context.Background(), &domain.SubmitContributionRequest{
		MemberID:  7,
		Month:     3,
		Year:      2025,
		Amount:    money.MustParse("150.00"),
		UTRNumber: "UTR100200300400",
	})

	assert.NoError(t, err)
	assert.NotNil(t, contribution)
	assert.False(t, contribution.IsPaid)
	m.contrib.AssertExpectations(t)
}

func TestContributionService_Submit_LateFineApplied(t *testing.T) {
	svc, m := newContributionService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC) }

	m.balance.On("Get", mock.Anything).Return(testSettings("50000"), nil)
	m.contrib.On("GetForPeriod", mock.Anything, int64(7), 3, 2025).Return(nil, sql.ErrNoRows)
	m.contrib.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Contribution) bool {
		return c.FineAmount.Equal(money.MustParse("50.00"))
	})).Return(nil)

	_, err := svc.Submit(context.Background(), &domain.SubmitContributionRequest{
		MemberID:  7,
		Month:     3,
		Year:      2025,
		Amount:    money.MustParse("150.00"),
		UTRNumber: "UTR100200300400",
	})

	assert.NoError(t, err)
	m.contrib.AssertExpectations(t)
}

func TestContributionService_Submit_ResubmitClearsRejection(t *testing.T) {
	svc, m := newContributionService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }

	marker := domain.RejectedUTRMarker
	existing := &domain.Contribution{
		ID:                 uuid.New(),
		MemberID:           7,
		Month:              3,
		Year:               2025,
		Amount:             money.MustParse("150.00"),
		UTRNumber:          "BADUTR",
		PresidentUTRNumber: &marker,
	}

	m.balance.On("Get", mock.Anything).Return(testSettings("50000"), nil)
	m.contrib.On("GetForPeriod", mock.Anything, int64(7), 3, 2025).Return(existing, nil)
	m.contrib.On("UpdateSubmission", mock.Anything, mock.MatchedBy(func(c *domain.Contribution) bool {
		return c.ID == existing.ID && c.UTRNumber == "GOODUTR12345" &&
			c.PresidentUTRNumber == nil && c.ApproverID == nil
	})).Return(nil)

	contribution, err := svc.Submit(context.Background(), &domain.SubmitContributionRequest{
		MemberID:  7,
		Month:     3,
		Year:      2025,
		Amount:    money.MustParse("150.00"),
		UTRNumber: "GOODUTR12345",
	})

	assert.NoError(t, err)
	assert.False(t, contribution.IsRejected())
	m.contrib.AssertExpectations(t)
}

func TestContributionService_Submit_AlreadyPaid(t *testing.T) {
	svc, m := newContributionService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }

	existing := &domain.Contribution{ID: uuid.New(), MemberID: 7, Month: 3, Year: 2025, IsPaid: true}

	m.balance.On("Get", mock.Anything).Return(testSettings("50000"), nil)
	m.contrib.On("GetForPeriod", mock.Anything, int64(7), 3, 2025).Return(existing, nil)

	_, err := svc.Submit(context.Background(), &domain.SubmitContributionRequest{
		MemberID:  7,
		Month:     3,
		Year:      2025,
		Amount:    money.MustParse("150.00"),
		UTRNumber: "UTR100200300400",
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	m.contrib.AssertNotCalled(t, "UpdateSubmission", mock.Anything, mock.Anything)
}

func TestContributionService_Approve_CreditsBalance(t *testing.T) {
	svc, m := newContributionService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 18, 9, 0, 0, 0, time.UTC) }

	contribution := &domain.Contribution{
		ID:         uuid.New(),
		MemberID:   7,
		Month:      3,
		Year:       2025,
		Amount:     money.MustParse("150.00"),
		FineAmount: money.MustParse("50.00"),
		UTRNumber:  "UTR100200300400",
	}

	m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
	m.contrib.On("GetByID", mock.Anything, contribution.ID).Return(contribution, nil)
	m.txm.On("WithinTx", mock.Anything, mock.Anything).Return(nil)
	m.balance.On("GetForUpdate", mock.Anything, mock.Anything).Return(testSettings("1000"), nil)
	m.contrib.On("MarkPaid", mock.Anything, mock.Anything, contribution.ID, int64(1), "UTR100200300400", mock.Anything).Return(nil)
	m.balance.On("SetBalance", mock.Anything, mock.Anything, decimalEq("1200.00")).Return(nil)

	approved, err := svc.Approve(context.Background(), contribution.ID, &domain.ApproveContributionRequest{
		ApproverID:         1,
		PresidentUTRNumber: "UTR100200300400",
	})

	assert.NoError(t, err)
	assert.True(t, approved.IsPaid)
	assert.NotNil(t, approved.PaymentDate)
	m.balance.AssertExpectations(t)
	m.contrib.AssertExpectations(t)
}

func TestContributionService_Approve_UTRMismatch(t *testing.T) {
	svc, m := newContributionService(t)

	contribution := &domain.Contribution{
		ID:        uuid.New(),
		MemberID:  7,
		Amount:    money.MustParse("150.00"),
		UTRNumber: "UTR100200300400",
	}

	m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
	m.contrib.On("GetByID", mock.Anything, contribution.ID).Return(contribution, nil)

	_, err := svc.Approve(context.Background(), contribution.ID, &domain.ApproveContributionRequest{
		ApproverID:         1,
		PresidentUTRNumber: "UTR999999999999",
	})

	assert.ErrorIs(t, err, apperrors.ErrUTRMismatch)
	m.txm.AssertNotCalled(t, "WithinTx", mock.Anything, mock.Anything)
	m.balance.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestContributionService_Approve_AlreadyPaid(t *testing.T) {
	svc, m := newContributionService(t)

	contribution := &domain.Contribution{
		ID:        uuid.New(),
		MemberID:  7,
		IsPaid:    true,
		UTRNumber: "UTR100200300400",
	}

	m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
	m.contrib.On("GetByID", mock.Anything, contribution.ID).Return(contribution, nil)

	_, err := svc.Approve(context.Background(), contribution.ID, &domain.ApproveContributionRequest{
		ApproverID:         1,
		PresidentUTRNumber: "UTR100200300400",
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	m.txm.AssertNotCalled(t, "WithinTx", mock.Anything, mock.Anything)
}

func TestContributionService_Approve_ConcurrentApprovalCreditsOnce(t *testing.T) {
	// Both approvals read an unpaid snapshot before either commits. The paid
	// flag is re-checked inside the update under the balance lock, so only
	// the first approval credits the pool.
	svc, m := newContributionService(t)
	svc.now = func() time.Time { return time.Date(2025, time.March, 18, 9, 0, 0, 0, time.UTC) }

	id := uuid.New()
	unpaidSnapshot := func() *domain.Contribution {
		return &domain.Contribution{
			ID:         id,
			MemberID:   7,
			Month:      3,
			Year:       2025,
			Amount:     money.MustParse("150.00"),
			FineAmount: money.MustParse("50.00"),
			UTRNumber:  "UTR100200300400",
		}
	}

	m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
	m.contrib.On("GetByID", mock.Anything, id).Return(unpaidSnapshot(), nil).Once()
	m.contrib.On("GetByID", mock.Anything, id).Return(unpaidSnapshot(), nil).Once()
	m.txm.On("WithinTx", mock.Anything, mock.Anything).Return(nil)
	m.balance.On("GetForUpdate", mock.Anything, mock.Anything).Return(testSettings("1000"), nil)
	m.contrib.On("MarkPaid", mock.Anything, mock.Anything, id, int64(1), "UTR100200300400", mock.Anything).Return(nil).Once()
	m.contrib.On("MarkPaid", mock.Anything, mock.Anything, id, int64(1), "UTR100200300400", mock.Anything).Return(sql.ErrNoRows).Once()
	m.balance.On("SetBalance", mock.Anything, mock.Anything, decimalEq("1200.00")).Return(nil)

	req := &domain.ApproveContributionRequest{
		ApproverID:         1,
		PresidentUTRNumber: "UTR100200300400",
	}

	_, err := svc.Approve(context.Background(), id, req)
	assert.NoError(t, err)

	_, err = svc.Approve(context.Background(), id, req)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)

	m.balance.AssertNumberOfCalls(t, "SetBalance", 1)
	m.contrib.AssertExpectations(t)
}

func TestContributionService_Approve_RequiresApproverRole(t *testing.T) {
	svc, m := newContributionService(t)

	plain := &domain.Member{ID: 5, Username: "ravi", Role: domain.RoleMember}
	m.member.On("GetByID", mock.Anything, int64(5)).Return(plain, nil)

	_, err := svc.Approve(context.Background(), uuid.New(), &domain.ApproveContributionRequest{
		ApproverID:         5,
		PresidentUTRNumber: "UTR100200300400",
	})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	m.contrib.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestContributionService_Reject_MarksSentinel(t *testing.T) {
	svc, m := newContributionService(t)

	contribution := &domain.Contribution{ID: uuid.New(), MemberID: 7, UTRNumber: "UTR100200300400"}

	m.member.On("GetByID", mock.Anything, int64(1)).Return(testApprover(1), nil)
	m.contrib.On("GetByID", mock.Anything, contribution.ID).Return(contribution, nil)
	m.contrib.On("MarkRejected", mock.Anything, contribution.ID, int64(1)).Return(nil)

	err := svc.Reject(context.Background(), contribution.ID, 1)

	assert.NoError(t, err)
	m.contrib.AssertExpectations(t)
}

func TestContributionService_Delete_RefusesApproved(t *testing.T) {
	svc, m := newContributionService(t)

	contribution := &domain.Contribution{ID: uuid.New(), MemberID: 7, IsPaid: true}
	m.contrib.On("GetByID", mock.Anything, contribution.ID).Return(contribution, nil)

	err := svc.Delete(context.Background(), contribution.ID)

	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	m.contrib.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
