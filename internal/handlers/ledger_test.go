package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"captable/internal/auth"
	"captable/internal/middleware"
	"captable/internal/models"
	"captable/internal/services"
	"captable/internal/store"
)

type stubLedger struct {
	issueFn    func(ctx context.Context, req services.IssueRequest) (models.ShareTransaction, error)
	transferFn func(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	cancelFn   func(ctx context.Context, req services.CancelRequest) (models.ShareTransaction, error)
	calls      int
}

func (s *stubLedger) IssueShares(ctx context.Context, req services.IssueRequest) (models.ShareTransaction, error) {
	s.calls++
	return s.issueFn(ctx, req)
}

func (s *stubLedger) TransferShares(ctx context.Context, req services.TransferRequest) (services.TransferResult, error) {
	s.calls++
	return s.transferFn(ctx, req)
}

func (s *stubLedger) CancelShares(ctx context.Context, req services.CancelRequest) (models.ShareTransaction, error) {
	s.calls++
	return s.cancelFn(ctx, req)
}

type stubScopeStore struct {
	scope store.OperatorScope
	found bool
}

func (s stubScopeStore) ScopeFor(_ context.Context, _ string) (store.OperatorScope, bool, error) {
	return s.scope, s.found, nil
}

func (s stubScopeStore) IsPlatformAdmin(_ context.Context, _ string) (bool, error) {
	return false, nil
}

type stubTxReader struct {
	violations []store.NegativeReplayKey
}

func (s stubTxReader) ListByEntity(_ context.Context, _ string, _ store.ListFilter) ([]models.ShareTransaction, error) {
	return nil, nil
}

func (s stubTxReader) VerifyNonNegative(_ context.Context, _ string) ([]store.NegativeReplayKey, error) {
	return s.violations, nil
}

const testSecret = "test-secret"

func scopedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	token, err := auth.MakeToken(testSecret, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("unable to mint token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func scopedHandler(operators stubScopeStore, endpoint http.HandlerFunc) http.Handler {
	chain := middleware.RequireScope(operators, middleware.RoleAdmin, middleware.RoleIssuer)(endpoint)
	return middleware.Auth(testSecret)(chain)
}

func writeScope() stubScopeStore {
	return stubScopeStore{
		scope: store.OperatorScope{EntityID: "e1", Role: middleware.RoleIssuer},
		found: true,
	}
}

func TestIssueSharesCreated(t *testing.T) {
	ledger := &stubLedger{
		issueFn: func(_ context.Context, req services.IssueRequest) (models.ShareTransaction, error) {
			if req.EntityID != "e1" || req.ActorUserID != "user-1" {
				t.Fatalf("scope not threaded into request: %#v", req)
			}
			if req.Quantity != 1000 || req.TypeCode != "COMMON" {
				t.Fatalf("unexpected request: %#v", req)
			}
			return models.ShareTransaction{ID: "tx-1", Type: models.TxIssuance, Quantity: 1000}, nil
		},
	}
	h := &Handler{ledger: ledger}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodPost, "/ledger/issue", `{"shareholder_id":"sh-1","type_code":"COMMON","quantity":"1000"}`)
	scopedHandler(writeScope(), h.IssueShares).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var row models.ShareTransaction
	if err := json.NewDecoder(rec.Body).Decode(&row); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if row.ID != "tx-1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestTransferSharesInsufficient(t *testing.T) {
	ledger := &stubLedger{
		transferFn: func(_ context.Context, _ services.TransferRequest) (services.TransferResult, error) {
			return services.TransferResult{}, &services.InsufficientSharesError{Available: 600, Requested: 900}
		},
	}
	h := &Handler{ledger: ledger}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodPost, "/ledger/transfer", `{"from_shareholder_id":"sh-1","to_shareholder_id":"sh-2","type_code":"COMMON","quantity":"900"}`)
	scopedHandler(writeScope(), h.TransferShares).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["error"] != "insufficient_shares" {
		t.Fatalf("unexpected error code: %#v", body)
	}
	if body["available"] != float64(600) || body["requested"] != float64(900) {
		t.Fatalf("response must carry available and requested: %#v", body)
	}
}

func TestLedgerRejectsFractionalQuantity(t *testing.T) {
	ledger := &stubLedger{}
	h := &Handler{ledger: ledger}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodPost, "/ledger/issue", `{"shareholder_id":"sh-1","type_code":"COMMON","quantity":"400.5"}`)
	scopedHandler(writeScope(), h.IssueShares).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ledger.calls != 0 {
		t.Fatal("service must not be called for invalid quantity")
	}
}

func TestLedgerRejectsBadDate(t *testing.T) {
	ledger := &stubLedger{}
	h := &Handler{ledger: ledger}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodPost, "/ledger/issue", `{"shareholder_id":"sh-1","type_code":"COMMON","quantity":"10","transaction_date":"03/01/2024"}`)
	scopedHandler(writeScope(), h.IssueShares).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ledger.calls != 0 {
		t.Fatal("service must not be called for invalid date")
	}
}

func TestLedgerErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrSelfTransfer, http.StatusBadRequest},
		{services.ErrSeriesRequired, http.StatusBadRequest},
		{services.ErrUnknownShareholder, http.StatusNotFound},
		{services.ErrEntityMismatch, http.StatusForbidden},
	}
	for _, tc := range cases {
		ledger := &stubLedger{
			transferFn: func(_ context.Context, _ services.TransferRequest) (services.TransferResult, error) {
				return services.TransferResult{}, tc.err
			},
		}
		h := &Handler{ledger: ledger}
		rec := httptest.NewRecorder()
		req := scopedRequest(t, http.MethodPost, "/ledger/transfer", `{"from_shareholder_id":"sh-1","to_shareholder_id":"sh-2","type_code":"COMMON","quantity":"10"}`)
		scopedHandler(writeScope(), h.TransferShares).ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Errorf("error %v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
	}
}

func TestLedgerRequiresScope(t *testing.T) {
	ledger := &stubLedger{}
	h := &Handler{ledger: ledger}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodPost, "/ledger/issue", `{"shareholder_id":"sh-1","type_code":"COMMON","quantity":"10"}`)
	scopedHandler(stubScopeStore{}, h.IssueShares).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without operator scope, got %d", rec.Code)
	}
	if ledger.calls != 0 {
		t.Fatal("service must not be called without scope")
	}
}

func TestLedgerRejectsViewerRole(t *testing.T) {
	ledger := &stubLedger{}
	h := &Handler{ledger: ledger}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodPost, "/ledger/issue", `{"shareholder_id":"sh-1","type_code":"COMMON","quantity":"10"}`)
	viewer := stubScopeStore{scope: store.OperatorScope{EntityID: "e1", Role: middleware.RoleViewer}, found: true}
	scopedHandler(viewer, h.IssueShares).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer on write path, got %d", rec.Code)
	}
}

func TestVerifyLedgerReportsViolations(t *testing.T) {
	h := &Handler{transactions: stubTxReader{violations: []store.NegativeReplayKey{
		{ShareholderID: "sh-2", StockTypeID: "st-1", Balance: -50},
	}}}
	rec := httptest.NewRecorder()
	req := scopedRequest(t, http.MethodGet, "/ledger/verify", "")
	chain := middleware.RequireScope(writeScope())(http.HandlerFunc(h.VerifyLedger))
	middleware.Auth(testSecret)(chain).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["consistent"] != false {
		t.Fatalf("expected consistent=false: %#v", body)
	}
}
