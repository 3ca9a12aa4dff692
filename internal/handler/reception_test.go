package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
	"github.com/reception-desk/api/internal/handler"
	"github.com/reception-desk/api/internal/middleware"
	"github.com/reception-desk/api/internal/policy"
	"github.com/reception-desk/api/internal/service"
)

// --- Mock BoardServicer ---

type mockBoardService struct {
	receptionFn      func(ctx context.Context, userID *uuid.UUID) (*service.ReceptionBoard, error)
	adminOverviewFn  func(ctx context.Context, actor *policy.Subject) (*service.AdminOverview, error)
	customerOrdersFn func(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	hasReceivedFn    func(ctx context.Context) (bool, error)
}

func (m *mockBoardService) Reception(ctx context.Context, userID *uuid.UUID) (*service.ReceptionBoard, error) {
	if m.receptionFn != nil {
		return m.receptionFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBoardService) AdminOverview(ctx context.Context, actor *policy.Subject) (*service.AdminOverview, error) {
	if m.adminOverviewFn != nil {
		return m.adminOverviewFn(ctx, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBoardService) CustomerOrders(ctx context.Context, userID uuid.UUID) ([]database.Order, error) {
	if m.customerOrdersFn != nil {
		return m.customerOrdersFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBoardService) HasReceived(ctx context.Context) (bool, error) {
	if m.hasReceivedFn != nil {
		return m.hasReceivedFn(ctx)
	}
	return false, fmt.Errorf("not implemented")
}

func setupReceptionRouter(orders *mockOrderService, boards *mockBoardService) *chi.Mux {
	h := handler.NewReceptionHandler(orders, boards, false)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	h.RegisterRoutes(r)
	return r
}

// --- Board ---

func TestReceptionBoard_Anonymous(t *testing.T) {
	boards := &mockBoardService{
		receptionFn: func(ctx context.Context, userID *uuid.UUID) (*service.ReceptionBoard, error) {
			if userID != nil {
				t.Errorf("user ID: got %v, want nil", *userID)
			}
			return &service.ReceptionBoard{
				Orders:      []database.Order{*testOrder(2, nil), *testOrder(1, nil)},
				HasReceived: true,
			}, nil
		},
	}
	router := setupReceptionRouter(&mockOrderService{}, boards)

	rr := doAuthRequest(t, router, "GET", "/reception/", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	orders, _ := resp["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("orders: got %d, want 2", len(orders))
	}
	if first := orders[0].(map[string]interface{}); first["id"] != float64(2) {
		t.Errorf("first order: got %v, want 2", first["id"])
	}
	userOrders, _ := resp["user_orders"].([]interface{})
	if len(userOrders) != 0 {
		t.Errorf("user_orders: got %d, want 0", len(userOrders))
	}
	if resp["has_received"] != true {
		t.Errorf("has_received: got %v", resp["has_received"])
	}
}

func TestReceptionBoard_SignedInPopsFlash(t *testing.T) {
	uid := customerIdentity.UserID
	boards := &mockBoardService{
		receptionFn: func(ctx context.Context, userID *uuid.UUID) (*service.ReceptionBoard, error) {
			if userID == nil || *userID != uid {
				t.Errorf("user ID: got %v, want %v", userID, uid)
			}
			return &service.ReceptionBoard{
				Orders:     []database.Order{*testOrder(1, &uid)},
				UserOrders: []database.Order{*testOrder(1, &uid)},
			}, nil
		},
	}
	router := setupReceptionRouter(&mockOrderService{}, boards)

	req := httptest.NewRequest("GET", "/reception/", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, customerIdentity))
	req.AddCookie(&http.Cookie{Name: "flash", Value: url.QueryEscape("Order marked as paid.")})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if c := responseCookie(rr, "flash"); c == nil || c.MaxAge >= 0 {
		t.Errorf("flash cookie not cleared: %+v", c)
	}
	resp := decodeResponse(t, rr)
	if resp["flash"] != "Order marked as paid." {
		t.Errorf("flash: got %v", resp["flash"])
	}
	userOrders, _ := resp["user_orders"].([]interface{})
	if len(userOrders) != 1 {
		t.Errorf("user_orders: got %d, want 1", len(userOrders))
	}
}

func TestReceptionBoard_StoreError(t *testing.T) {
	boards := &mockBoardService{
		receptionFn: func(ctx context.Context, userID *uuid.UUID) (*service.ReceptionBoard, error) {
			return nil, fmt.Errorf("db down")
		},
	}
	router := setupReceptionRouter(&mockOrderService{}, boards)

	rr := doAuthRequest(t, router, "GET", "/reception/", nil, nil)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

// --- Payment method selection ---

func TestSelectPaymentMethod_QR(t *testing.T) {
	orders := &mockOrderService{
		selectPaymentFn: func(ctx context.Context, userID uuid.UUID, orderID int64, method string) (*database.Order, error) {
			if userID != customerIdentity.UserID {
				t.Errorf("user ID: got %v", userID)
			}
			if orderID != 9 || method != enum.PaymentMethodQR {
				t.Errorf("args: got %d %q", orderID, method)
			}
			o := testOrder(orderID, &userID)
			o.PaymentMethod = method
			o.PaymentStatus = enum.PaymentStatusPendingVerification
			return o, nil
		},
	}
	router := setupReceptionRouter(orders, &mockBoardService{})

	rr := doAuthRequest(t, router, "POST", "/reception/", map[string]interface{}{"order_id": 9, "payment_method": "qr_payment"}, customerIdentity)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["message"] != "Payment method set to QR Payment." {
		t.Errorf("message: got %v", resp["message"])
	}
	order, _ := resp["order"].(map[string]interface{})
	if order["payment_status"] != enum.PaymentStatusPendingVerification {
		t.Errorf("payment_status: got %v", order["payment_status"])
	}
}

func TestSelectPaymentMethod_BrowserCash(t *testing.T) {
	orders := &mockOrderService{
		selectPaymentFn: func(ctx context.Context, userID uuid.UUID, orderID int64, method string) (*database.Order, error) {
			return testOrder(orderID, &userID), nil
		},
	}
	router := setupReceptionRouter(orders, &mockBoardService{})

	rr := doFormRequest(t, router, "/reception/", url.Values{"order_id": {"9"}, "payment_method": {"cash"}}, customerIdentity)

	if rr.Code != http.StatusFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusFound, rr.Body.String())
	}
	if msg := flashMessage(t, rr); msg != "Payment method set to Cash." {
		t.Errorf("flash: got %q", msg)
	}
}

func TestSelectPaymentMethod_Anonymous(t *testing.T) {
	orders := &mockOrderService{
		selectPaymentFn: func(context.Context, uuid.UUID, int64, string) (*database.Order, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}
	router := setupReceptionRouter(orders, &mockBoardService{})

	rr := doAuthRequest(t, router, "POST", "/reception/", map[string]interface{}{"order_id": 9, "payment_method": "cash"}, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSelectPaymentMethod_NotFound(t *testing.T) {
	orders := &mockOrderService{
		selectPaymentFn: func(context.Context, uuid.UUID, int64, string) (*database.Order, error) {
			return nil, service.ErrOrderNotFound
		},
	}
	router := setupReceptionRouter(orders, &mockBoardService{})

	t.Run("json", func(t *testing.T) {
		rr := doAuthRequest(t, router, "POST", "/reception/", map[string]interface{}{"order_id": 404, "payment_method": "cash"}, customerIdentity)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
		}
		if resp := decodeResponse(t, rr); resp["error"] != "Order not found." {
			t.Errorf("error: got %v", resp["error"])
		}
	})

	t.Run("browser", func(t *testing.T) {
		rr := doFormRequest(t, router, "/reception/", url.Values{"order_id": {"404"}, "payment_method": {"cash"}}, customerIdentity)
		if rr.Code != http.StatusFound {
			t.Fatalf("status: got %d, want %d", rr.Code, http.StatusFound)
		}
		if msg := flashMessage(t, rr); msg != "Order not found." {
			t.Errorf("flash: got %q", msg)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rr := doAuthRequest(t, router, "POST", "/reception/", map[string]interface{}{"order_id": "abc", "payment_method": "cash"}, customerIdentity)
		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
		}
	})
}

func TestSelectPaymentMethod_InvalidMethod(t *testing.T) {
	orders := &mockOrderService{
		selectPaymentFn: func(context.Context, uuid.UUID, int64, string) (*database.Order, error) {
			return nil, service.ErrInvalidPaymentMethod
		},
	}
	router := setupReceptionRouter(orders, &mockBoardService{})

	rr := doAuthRequest(t, router, "POST", "/reception/", map[string]interface{}{"order_id": 9, "payment_method": "card"}, customerIdentity)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "Select a valid payment method." {
		t.Errorf("error: got %v", resp["error"])
	}
}
