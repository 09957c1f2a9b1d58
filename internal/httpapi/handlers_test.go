package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/feed"
	"dapurpos/backend/internal/service"
	"dapurpos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, feed.NoopPublisher{}, service.Policy{
		BranchID:         "main-branch",
		TaxRatePercent:   decimal.NewFromInt(16),
		PointsPerUnit:    1,
		CurrencyUnit:     decimal.NewFromInt(10),
		DailyPointsLimit: 1000,
		AllowOversell:    true,
	})
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestProtectedEndpointRequiresToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCashierCannotReadAuditLogs(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on audit logs, got %d", rec.Code)
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	do := func(method, path string, payload any) *httptest.ResponseRecorder {
		t.Helper()
		var body *bytes.Reader
		if payload != nil {
			raw, _ := json.Marshal(payload)
			body = bytes.NewReader(raw)
		} else {
			body = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/v1/shifts/open", map[string]any{"initial_cash": "500"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open shift expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/api/v1/orders", domain.OrderCreateRequest{
		TableID: "table-12",
		Items: []domain.OrderItemRequest{
			{ProductID: "prod-es-teh", Quantity: 2},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created domain.OrderCreateResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order response: %v", err)
	}
	orderID := created.Order.ID
	if orderID == "" {
		t.Fatalf("expected order id in response")
	}

	rec = do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", domain.PaymentRequest{Method: "cash"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	for _, status := range []string{"confirmed", "preparing", "ready", "completed"} {
		rec = do(http.MethodPost, "/api/v1/orders/"+orderID+"/status", map[string]string{"status": status})
		if rec.Code != http.StatusOK {
			t.Fatalf("advance to %s expected 200, got %d (body: %s)", status, rec.Code, rec.Body.String())
		}
	}

	rec = do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", domain.OrderCancelRequest{Reason: "too late"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel of completed order expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestRedeemInsufficientPointsMapsTo422(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "cashier", "cashier123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.RedeemPointsRequest{CustomerID: "cust-sari", Points: 10})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/redeem", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for insufficient points, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func loginAs(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d", username, rec.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}
