//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reception-desk/api/internal/config"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/router"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const integrationAdminCode = "integration-admin-code"

// TestIntegrationFlow exercises the order lifecycle end to end against a real
// PostgreSQL database with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	// A second run is a no-op.
	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("re-run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:            "8081",
		DatabaseURL:     connStr,
		JWTSecret:       "integration-test-secret",
		AdminSignupCode: integrationAdminCode,
		SessionTTL:      time.Hour,
		CORSOrigins:     []string{"http://localhost:5173"},
	}
	queries := database.New(pool)
	seedMenuItem(t, ctx, queries)

	server := httptest.NewServer(router.New(cfg, queries, pool))
	defer server.Close()

	// --- 1. Accounts ---
	adminToken := signup(t, server, map[string]string{
		"username":   "sonam",
		"password1":  "admin-pass-123",
		"password2":  "admin-pass-123",
		"role":       "super_admin",
		"admin_code": integrationAdminCode,
		"first_name": "Sonam",
	})

	status, resp := apiRequest(t, server, "POST", "/accounts/", map[string]string{
		"username":   "tashi",
		"password1":  "admin-pass-123",
		"password2":  "admin-pass-123",
		"role":       "super_admin",
		"admin_code": integrationAdminCode,
	}, "")
	if status != http.StatusBadRequest {
		t.Fatalf("second super admin: got %d, want %d", status, http.StatusBadRequest)
	}
	if errs, _ := resp["errors"].(map[string]interface{}); errs["role"] != "A super admin already exists." {
		t.Fatalf("second super admin errors: got %v", resp["errors"])
	}

	customerToken := signup(t, server, map[string]string{
		"username":   "pema",
		"password1":  "customer-pass-1",
		"password2":  "customer-pass-1",
		"first_name": "Pema",
	})

	status, _ = apiRequest(t, server, "POST", "/login/", map[string]string{"username": "pema", "password": "wrong"}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login: got %d, want %d", status, http.StatusUnauthorized)
	}

	// --- 2. Menu ---
	status, resp = apiRequest(t, server, "GET", "/menu/", nil, "")
	if status != http.StatusOK {
		t.Fatalf("menu: got %d", status)
	}
	if items, _ := resp["menu_items"].([]interface{}); len(items) != 1 {
		t.Fatalf("menu items: got %v", resp["menu_items"])
	}

	// --- 3. Place order ---
	status, _ = apiRequest(t, server, "POST", "/api/place-order/", orderBody(), "")
	if status != http.StatusForbidden {
		t.Fatalf("anonymous order: got %d, want %d", status, http.StatusForbidden)
	}

	status, resp = apiRequest(t, server, "POST", "/api/place-order/", orderBody(), customerToken)
	if status != http.StatusOK {
		t.Fatalf("place order: got %d; body: %v", status, resp)
	}
	orderID := int64(resp["order_id"].(float64))
	if resp["redirect"] != fmt.Sprintf("/qr-payment/%d/", orderID) {
		t.Fatalf("redirect: got %v", resp["redirect"])
	}

	order := getOrder(t, server, orderID)
	assertOrder(t, order, "on_the_way", "cash", "unpaid")
	if order["total"] != "360.00" {
		t.Fatalf("total: got %v, want 360.00", order["total"])
	}

	var lines int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM order_items WHERE order_id = $1`, orderID).Scan(&lines); err != nil {
		t.Fatalf("count order items: %v", err)
	}
	if lines != 1 {
		t.Fatalf("order_items: got %d, want 1", lines)
	}

	// --- 4. Payment ---
	status, resp = apiRequest(t, server, "POST", "/reception/", map[string]interface{}{
		"order_id":       orderID,
		"payment_method": "qr_payment",
	}, customerToken)
	if status != http.StatusOK {
		t.Fatalf("select payment: got %d; body: %v", status, resp)
	}

	status, _ = apiRequest(t, server, "POST", fmt.Sprintf("/qr-payment/%d/", orderID), map[string]string{"transaction_ref": " TXN-778 "}, customerToken)
	if status != http.StatusOK {
		t.Fatalf("submit qr: got %d", status)
	}
	order = getOrder(t, server, orderID)
	assertOrder(t, order, "on_the_way", "qr_payment", "pending_verification")
	if order["transaction_ref"] != "TXN-778" {
		t.Fatalf("transaction_ref: got %v", order["transaction_ref"])
	}

	// --- 5. Reception board ---
	status, resp = apiRequest(t, server, "GET", "/reception/", nil, customerToken)
	if status != http.StatusOK {
		t.Fatalf("reception: got %d", status)
	}
	if userOrders, _ := resp["user_orders"].([]interface{}); len(userOrders) != 1 {
		t.Fatalf("user_orders: got %v", resp["user_orders"])
	}
	if resp["has_received"] != false {
		t.Fatalf("has_received: got %v", resp["has_received"])
	}

	// --- 6. Staff actions ---
	status, _ = apiRequest(t, server, "POST", fmt.Sprintf("/api/mark-paid/%d/", orderID), nil, customerToken)
	if status != http.StatusForbidden {
		t.Fatalf("customer mark paid: got %d, want %d", status, http.StatusForbidden)
	}

	status, _ = apiRequest(t, server, "POST", fmt.Sprintf("/api/mark-paid/%d/", orderID), nil, adminToken)
	if status != http.StatusOK {
		t.Fatalf("mark paid: got %d", status)
	}
	status, _ = apiRequest(t, server, "POST", fmt.Sprintf("/api/mark-received/%d/", orderID), nil, adminToken)
	if status != http.StatusOK {
		t.Fatalf("mark received: got %d", status)
	}
	assertOrder(t, getOrder(t, server, orderID), "received", "qr_payment", "paid")

	status, resp = apiRequest(t, server, "POST", fmt.Sprintf("/api/cancel-order/%d/", orderID), nil, adminToken)
	if status != http.StatusBadRequest || resp["error"] != "Order cannot be cancelled." {
		t.Fatalf("cancel received order: got %d %v", status, resp)
	}

	status, resp = apiRequest(t, server, "GET", "/", nil, "")
	if status != http.StatusOK || resp["reception_has_received"] != true {
		t.Fatalf("index: got %d %v", status, resp)
	}

	// --- 7. Admin dashboard ---
	status, resp = apiRequest(t, server, "GET", "/dashboard/admin/", nil, adminToken)
	if status != http.StatusOK {
		t.Fatalf("admin dashboard: got %d", status)
	}
	if users, _ := resp["users"].([]interface{}); len(users) != 2 {
		t.Fatalf("admin users: got %v", resp["users"])
	}

	// --- 8. Delete ---
	status, resp = apiRequest(t, server, "POST", fmt.Sprintf("/api/delete-order/%d/", orderID), nil, adminToken)
	if status != http.StatusOK || resp["message"] != fmt.Sprintf("Order %d deleted successfully.", orderID) {
		t.Fatalf("delete: got %d %v", status, resp)
	}
	status, _ = apiRequest(t, server, "GET", fmt.Sprintf("/qr-payment/%d/", orderID), nil, "")
	if status != http.StatusNotFound {
		t.Fatalf("deleted order: got %d, want %d", status, http.StatusNotFound)
	}
	status, _ = apiRequest(t, server, "POST", fmt.Sprintf("/api/delete-order/%d/", orderID), nil, adminToken)
	if status != http.StatusNotFound {
		t.Fatalf("delete again: got %d, want %d", status, http.StatusNotFound)
	}

	t.Logf("Integration test passed: container=%s, order=%d", pgContainer.GetContainerID(), orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("reception_test"),
		tcpostgres.WithUsername("reception"),
		tcpostgres.WithPassword("reception"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func seedMenuItem(t *testing.T, ctx context.Context, q *database.Queries) {
	t.Helper()
	_, err := q.CreateMenuItem(ctx, database.CreateMenuItemParams{
		Name:      "Ema Datshi",
		Price:     database.DecimalToNumeric(decimal.NewFromInt(180)),
		Image:     pgtype.Text{},
		Available: true,
	})
	if err != nil {
		t.Fatalf("seed menu item: %v", err)
	}
}

// --- Request helpers ---

func apiRequest(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := server.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return res.StatusCode, out
}

func signup(t *testing.T, server *httptest.Server, fields map[string]string) string {
	t.Helper()
	status, resp := apiRequest(t, server, "POST", "/accounts/", fields, "")
	if status != http.StatusCreated {
		t.Fatalf("signup %s: got %d; body: %v", fields["username"], status, resp)
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("signup %s: missing token", fields["username"])
	}
	return token
}

func orderBody() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{{"title": "Ema Datshi", "price": 180, "qty": 2}},
		"total": "360.00",
	}
}

func getOrder(t *testing.T, server *httptest.Server, id int64) map[string]interface{} {
	t.Helper()
	status, resp := apiRequest(t, server, "GET", fmt.Sprintf("/qr-payment/%d/", id), nil, "")
	if status != http.StatusOK {
		t.Fatalf("get order %d: got %d", id, status)
	}
	order, ok := resp["order"].(map[string]interface{})
	if !ok {
		t.Fatalf("get order %d: missing order", id)
	}
	return order
}

func assertOrder(t *testing.T, order map[string]interface{}, status, method, payment string) {
	t.Helper()
	if order["status"] != status {
		t.Errorf("status: got %v, want %s", order["status"], status)
	}
	if order["payment_method"] != method {
		t.Errorf("payment_method: got %v, want %s", order["payment_method"], method)
	}
	if order["payment_status"] != payment {
		t.Errorf("payment_status: got %v, want %s", order["payment_status"], payment)
	}
}
