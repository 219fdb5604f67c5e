package accounts

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(repo *mockRepository) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo, nil))
}

func TestCreateAccountEndpoint(t *testing.T) {
	handler := newTestHandler(newMockRepository())

	body := `{
		"organization_id": 1,
		"account_code": "1000",
		"account_name": "Cash",
		"account_type": "asset",
		"opening_balance": "250.00"
	}`
	req := httptest.NewRequest(http.MethodPost, "/finance/chart-of-accounts", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateAccountEndpointExcessPrecision(t *testing.T) {
	repo := newMockRepository()
	handler := newTestHandler(repo)

	// Three fractional digits pass the DTO tags but fail domain validation;
	// the response must still be a 422, not an internal error.
	body := `{
		"organization_id": 1,
		"account_code": "1000",
		"account_name": "Cash",
		"account_type": "asset",
		"opening_balance": "10.001"
	}`
	req := httptest.NewRequest(http.MethodPost, "/finance/chart-of-accounts", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.create(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Validation Failed") {
		t.Fatalf("expected problem title in body: %s", rr.Body.String())
	}
	if len(repo.accounts) != 0 {
		t.Fatalf("account must not persist on validation failure")
	}
}

func TestCreateAccountEndpointUnknownType(t *testing.T) {
	handler := newTestHandler(newMockRepository())

	body := `{
		"organization_id": 1,
		"account_code": "1000",
		"account_name": "Cash",
		"account_type": "bank",
		"opening_balance": "0.00"
	}`
	req := httptest.NewRequest(http.MethodPost, "/finance/chart-of-accounts", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.create(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}
