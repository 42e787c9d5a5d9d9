package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/domain"
	"github.com/bachatgat/ledger/internal/repository/mocks"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/money"
)

type handlerFixture struct {
	contrib *mocks.MockContributionRepository
	balance *mocks.MockBalanceRepository
	member  *mocks.MockMemberRepository
	handler *ContributionHandler
}

func newContributionHandler(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		contrib: new(mocks.MockContributionRepository),
		balance: new(mocks.MockBalanceRepository),
		member:  new(mocks.MockMemberRepository),
	}

	svc := service.NewContributionService(
		f.contrib,
		new(mocks.MockLoanRepository),
		new(mocks.MockPaymentRepository),
		f.balance,
		f.member,
		new(mocks.MockTxManager),
		nil,
		&config.Config{},
	)

	f.handler = NewContributionHandler(svc)
	return f
}

func TestContributionHandler_Approve_UTRMismatchReturns400(t *testing.T) {
	f := newContributionHandler(t)

	contributionID := uuid.New()
	president := &domain.Member{ID: 1, Username: "asha", Role: domain.RolePresident}
	contribution := &domain.Contribution{
		ID:        contributionID,
		MemberID:  7,
		Amount:    money.MustParse("150.00"),
		UTRNumber: "UTR100200300400",
	}

	f.member.On("GetByID", mock.Anything, int64(1)).Return(president, nil)
	f.contrib.On("GetByID", mock.Anything, contributionID).Return(contribution, nil)

	body, _ := json.Marshal(domain.ApproveContributionRequest{
		ApproverID:         1,
		PresidentUTRNumber: "UTR999999999999",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions/"+contributionID.String()+"/approve", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"contributionId": contributionID.String()})
	rec := httptest.NewRecorder()

	f.handler.Approve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.ErrCodeUTRMismatch)
}

func TestContributionHandler_Approve_AlreadyPaidReturns409(t *testing.T) {
	f := newContributionHandler(t)

	contributionID := uuid.New()
	president := &domain.Member{ID: 1, Username: "asha", Role: domain.RolePresident}
	contribution := &domain.Contribution{
		ID:        contributionID,
		MemberID:  7,
		IsPaid:    true,
		UTRNumber: "UTR100200300400",
	}

	f.member.On("GetByID", mock.Anything, int64(1)).Return(president, nil)
	f.contrib.On("GetByID", mock.Anything, contributionID).Return(contribution, nil)

	body, _ := json.Marshal(domain.ApproveContributionRequest{
		ApproverID:         1,
		PresidentUTRNumber: "UTR100200300400",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions/"+contributionID.String()+"/approve", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"contributionId": contributionID.String()})
	rec := httptest.NewRecorder()

	f.handler.Approve(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestContributionHandler_Approve_NonApproverReturns403(t *testing.T) {
	f := newContributionHandler(t)

	contributionID := uuid.New()
	plain := &domain.Member{ID: 5, Username: "ravi", Role: domain.RoleMember}
	f.member.On("GetByID", mock.Anything, int64(5)).Return(plain, nil)

	body, _ := json.Marshal(domain.ApproveContributionRequest{
		ApproverID:         5,
		PresidentUTRNumber: "UTR100200300400",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions/"+contributionID.String()+"/approve", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"contributionId": contributionID.String()})
	rec := httptest.NewRecorder()

	f.handler.Approve(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContributionHandler_Submit_InvalidBodyReturns400(t *testing.T) {
	f := newContributionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	f.handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContributionHandler_Submit_MissingFieldsReturns400(t *testing.T) {
	f := newContributionHandler(t)

	body, _ := json.Marshal(map[string]interface{}{"member_id": 7})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
