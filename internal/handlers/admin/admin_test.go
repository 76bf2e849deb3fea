package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
)

type mocks struct {
	balances    *MockBalances
	commissions *MockCommissions
	reconciler  *MockReconciler
	ledger      *MockLedger
}

func NewMock(t *testing.T) (http.Handler, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		balances:    NewMockBalances(ctrl),
		commissions: NewMockCommissions(ctrl),
		reconciler:  NewMockReconciler(ctrl),
		ledger:      NewMockLedger(ctrl),
	}
	h := New(m.balances, m.commissions, m.reconciler, m.ledger)

	r := chi.NewRouter()
	r.Get("/balances/{payeeID}", h.GetBalance)
	r.Get("/commissions", h.ListCommissions)
	r.Get("/commissions/{id}", h.GetCommission)
	r.Post("/commissions/{id}/approve", h.ApproveCommission)
	r.Post("/commissions/{id}/cancel", h.CancelCommission)
	r.Post("/reconcile", h.Reconcile)
	r.Get("/reconcile", h.LastReconcile)
	r.Get("/conflicts", h.Conflicts)
	return r, m
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestGetBalance(t *testing.T) {
	router, m := NewMock(t)

	m.balances.EXPECT().GetBalance(gomock.Any(), 50).Return(domain.NewBalance(50), nil)
	w := serve(router, http.MethodGet, "/balances/50")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/balances/abc")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommissionActions(t *testing.T) {
	router, m := NewMock(t)
	approved := &domain.Commission{
		ID:               3,
		SalesManagerID:   50,
		OrderID:          "ORD-1",
		CommissionAmount: decimal.RequireFromString("10.01"),
		Status:           domain.CommissionApproved,
	}

	tests := []struct {
		name         string
		method       string
		target       string
		prepareMock  func()
		expectedCode int
	}{
		{
			name:   "Get",
			method: http.MethodGet,
			target: "/commissions/3",
			prepareMock: func() {
				m.commissions.EXPECT().Get(gomock.Any(), 3).Return(approved, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Get unknown",
			method: http.MethodGet,
			target: "/commissions/4",
			prepareMock: func() {
				m.commissions.EXPECT().Get(gomock.Any(), 4).Return(nil, domain.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name:   "Approve",
			method: http.MethodPost,
			target: "/commissions/3/approve",
			prepareMock: func() {
				m.commissions.EXPECT().Approve(gomock.Any(), 3).Return(approved, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Approve twice",
			method: http.MethodPost,
			target: "/commissions/3/approve",
			prepareMock: func() {
				m.commissions.EXPECT().Approve(gomock.Any(), 3).Return(nil, domain.ErrInvalidTransition)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name:   "Cancel not covered",
			method: http.MethodPost,
			target: "/commissions/3/cancel",
			prepareMock: func() {
				m.commissions.EXPECT().Cancel(gomock.Any(), 3).Return(nil, domain.ErrInsufficientBalance)
			},
			expectedCode: http.StatusPaymentRequired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			w := serve(router, tt.method, tt.target)
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestListCommissions(t *testing.T) {
	router, m := NewMock(t)

	m.commissions.EXPECT().List(gomock.Any(), domain.CommissionFilter{
		SalesManagerID: 50,
		Statuses:       []domain.CommissionStatus{domain.CommissionApproved, domain.CommissionPaid},
		AfterID:        2,
		Limit:          10,
	}).Return([]domain.Commission{{ID: 3, Status: domain.CommissionApproved}}, nil)

	w := serve(router, http.MethodGet, "/commissions?manager_id=50&status=APPROVED&status=PAID&after_id=2&limit=10")
	assert.Equal(t, http.StatusOK, w.Code)
	var body []dto.CommissionResponseDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "APPROVED", body[0].Status)

	w = serve(router, http.MethodGet, "/commissions?manager_id=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcile(t *testing.T) {
	router, m := NewMock(t)
	report := &domain.ReconciliationReport{
		StartedAt:     time.Now().Add(-time.Second),
		FinishedAt:    time.Now(),
		PayeesChecked: 2,
		Anomalies: []domain.Anomaly{{
			PayeeID: 7,
			Before:  *domain.NewBalance(7),
			After:   domain.Balance{PayeeID: 7, TotalEarnings: decimal.NewFromInt(90)},
		}},
	}

	m.reconciler.EXPECT().Last().Return(nil)
	w := serve(router, http.MethodGet, "/reconcile")
	assert.Equal(t, http.StatusNoContent, w.Code)

	m.reconciler.EXPECT().Run(gomock.Any()).Return(report, nil)
	w = serve(router, http.MethodPost, "/reconcile")
	assert.Equal(t, http.StatusOK, w.Code)
	var body dto.ReconcileReportDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 2, body.PayeesChecked)
	require.Len(t, body.Anomalies, 1)
	assert.True(t, body.Anomalies[0].After.TotalEarnings.Equal(decimal.NewFromInt(90)))

	m.reconciler.EXPECT().Run(gomock.Any()).Return(nil, domain.ErrReconcileInProgress)
	w = serve(router, http.MethodPost, "/reconcile")
	assert.Equal(t, http.StatusConflict, w.Code)

	m.reconciler.EXPECT().Last().Return(report)
	w = serve(router, http.MethodGet, "/reconcile")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConflicts(t *testing.T) {
	router, m := NewMock(t)

	m.ledger.EXPECT().Conflicts(gomock.Any(), 0).Return([]domain.LedgerConflict{
		{ID: 2, PayeeID: 7, IdempotencyKey: "ORD-1:earning", Kind: domain.KindEarning, Amount: decimal.NewFromInt(95), ExistingTransactionID: 1},
	}, nil)
	w := serve(router, http.MethodGet, "/conflicts")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ORD-1:earning")

	m.ledger.EXPECT().Conflicts(gomock.Any(), 0).Return(nil, errors.New("db down"))
	w = serve(router, http.MethodGet, "/conflicts")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
