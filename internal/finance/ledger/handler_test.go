package ledger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(repo *mockRepository) *Handler {
	svc, _, _, _ := newTestService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc)
}

func TestPostVoucherEndpoint(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	handler := newTestHandler(repo)

	body := `{
		"organization_id": 1,
		"voucher_number": "JV-2026-001",
		"voucher_date": "2026-03-15",
		"description": "cash sale",
		"entries": [
			{"account_id": 1, "debit": "500.00"},
			{"account_id": 2, "credit": "500.00"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/finance/journal-vouchers", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.post(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var result PostResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Voucher.Number != "JV-2026-001" {
		t.Fatalf("unexpected voucher number %s", result.Voucher.Number)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("expected 2 touched accounts, got %d", len(result.Accounts))
	}
}

func TestPostVoucherEndpointUnbalanced(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	handler := newTestHandler(repo)

	body := `{
		"organization_id": 1,
		"voucher_number": "JV-2026-002",
		"voucher_date": "2026-03-15",
		"entries": [
			{"account_id": 1, "debit": "500.00"},
			{"account_id": 2, "credit": "400.00"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/finance/journal-vouchers", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.post(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Validation Failed") {
		t.Fatalf("expected problem title in body: %s", rr.Body.String())
	}
	if len(repo.state.vouchers) != 0 {
		t.Fatalf("unbalanced voucher must not persist")
	}
}

func TestPostVoucherEndpointSingleEntry(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	handler := newTestHandler(repo)

	body := `{
		"organization_id": 1,
		"voucher_number": "JV-2026-003",
		"voucher_date": "2026-03-15",
		"entries": [{"account_id": 1, "debit": "500.00"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/finance/journal-vouchers", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.post(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}

func TestListVouchersEndpointRequiresOrg(t *testing.T) {
	repo := newMockRepository()
	handler := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/finance/journal-vouchers", nil)
	rr := httptest.NewRecorder()
	handler.list(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "organization_id") {
		t.Fatalf("expected field error in body: %s", rr.Body.String())
	}
}

func TestShowVoucherEndpointCrossTenant(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)

	result, err := svc.PostVoucher(context.Background(), postingFixture())
	if err != nil {
		t.Fatalf("post voucher: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/finance/journal-vouchers/1?organization_id=2", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.show(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if repo.state.vouchers[result.Voucher.ID].OrgID != 1 {
		t.Fatalf("fixture voucher must belong to org 1")
	}
}

func TestListLedgersEndpoint(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	if err != nil {
		t.Fatalf("post voucher: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/finance/ledgers?organization_id=1&account_id=1", nil)
	rr := httptest.NewRecorder()
	handler.lines(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp listLinesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Lines) != 1 {
		t.Fatalf("expected 1 ledger line for account 1, got %d", len(resp.Lines))
	}
	if resp.Lines[0].Reference != "JV-2026-001" {
		t.Fatalf("unexpected reference %s", resp.Lines[0].Reference)
	}
}

func TestListLedgersEndpointBadAccountID(t *testing.T) {
	repo := newMockRepository()
	handler := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/finance/ledgers?organization_id=1&account_id=abc", nil)
	rr := httptest.NewRecorder()
	handler.lines(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}

func TestCancelVoucherEndpoint(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)

	result, err := svc.PostVoucher(context.Background(), postingFixture())
	if err != nil {
		t.Fatalf("post voucher: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/finance/journal-vouchers/1/cancel?organization_id=1", strings.NewReader(`{"reason":"entered twice"}`))
	req.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.cancel(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.state.vouchers[result.Voucher.ID].Status != VoucherStatusCancelled {
		t.Fatalf("voucher should be cancelled after endpoint call")
	}
}
