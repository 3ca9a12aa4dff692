package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/middleware"
	"github.com/reception-desk/api/internal/policy"
	"github.com/reception-desk/api/internal/service"
)

// User-facing messages for the order endpoints.
const (
	msgUnauthorized        = "Unauthorized"
	msgOrderNotFound       = "Order not found"
	msgOrderNotFoundFlash  = "Order not found."
	msgLoginToOrder        = "Please log in or create an account before ordering."
	msgDisplayNameRequired = "Please set your display name in your profile before ordering."
	msgOrderPlaced         = "Order placed. Proceed to payment."
	msgQRSubmitted         = "Payment submitted for verification. Please wait in reception."
	msgMarkedReceived      = "Order marked as received."
	msgMarkedPaid          = "Order marked as paid."
	msgCancelled           = "Order cancelled."
	msgCannotCancel        = "Order cannot be cancelled."
	msgCannotReceive       = "Order cannot be marked received."
)

const receptionPath = "/reception/"

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error)
	GetOrder(ctx context.Context, id int64) (*database.Order, error)
	SelectPaymentMethod(ctx context.Context, userID uuid.UUID, orderID int64, method string) (*database.Order, error)
	SubmitQRPayment(ctx context.Context, orderID int64, transactionRef string) (*database.Order, error)
	MarkReceived(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error)
	MarkPaid(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error)
	Cancel(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error)
	Delete(ctx context.Context, actor *policy.Subject, orderID int64) error
}

// OrderHandler handles order placement, payment submission and the staff
// lifecycle actions.
type OrderHandler struct {
	svc           OrderServicer
	secureCookies bool
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, secureCookies bool) *OrderHandler {
	return &OrderHandler{svc: svc, secureCookies: secureCookies}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/place-order/", h.PlaceOrder)
	r.Get("/qr-payment/{id}/", h.QRPayment)
	r.Post("/qr-payment/{id}/", h.SubmitQRPayment)
	r.Post("/api/mark-received/{id}/", h.MarkReceived)
	r.Post("/api/mark-paid/{id}/", h.MarkPaid)
	r.Post("/api/cancel-order/{id}/", h.Cancel)
	r.Post("/api/delete-order/{id}/", h.Delete)
}

// PlaceOrder handles POST /api/place-order/.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req := service.PlaceOrderRequest{Body: body}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		id := claims.UserID
		req.UserID = &id
	}

	order, err := h.svc.PlaceOrder(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoginRequired):
			writeError(w, http.StatusForbidden, msgLoginToOrder)
		case errors.Is(err, service.ErrDisplayNameRequired):
			writeError(w, http.StatusBadRequest, msgDisplayNameRequired)
		case errors.Is(err, service.ErrInvalidJSON),
			errors.Is(err, service.ErrInvalidItems),
			errors.Is(err, service.ErrInvalidTotal),
			errors.Is(err, service.ErrTotalMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternalError(w, "place order", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"order_id": order.ID,
		"redirect": fmt.Sprintf("/qr-payment/%d/", order.ID),
		"message":  msgOrderPlaced,
	})
}

// QRPayment handles GET /qr-payment/{id}/.
func (h *OrderHandler) QRPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgOrderNotFound)
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, msgOrderNotFound)
			return
		}
		writeInternalError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"order": toOrderResponse(*order),
		"flash": popFlash(w, r),
	})
}

// SubmitQRPayment handles POST /qr-payment/{id}/.
func (h *OrderHandler) SubmitQRPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgOrderNotFound)
		return
	}

	fields, err := readFields(w, r)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.SubmitQRPayment(r.Context(), orderID, fields["transaction_ref"])
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, msgOrderNotFound)
		case errors.Is(err, service.ErrInvalidTransactionRef):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternalError(w, "submit qr payment", err)
		}
		return
	}

	respond(w, r, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"order_id": order.ID,
		"message":  msgQRSubmitted,
	}, receptionPath, msgQRSubmitted, h.secureCookies)
}

// MarkReceived handles POST /api/mark-received/{id}/.
func (h *OrderHandler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "mark received", h.svc.MarkReceived, msgMarkedReceived)
}

// MarkPaid handles POST /api/mark-paid/{id}/.
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "mark paid", h.svc.MarkPaid, msgMarkedPaid)
}

// Cancel handles POST /api/cancel-order/{id}/.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel order", h.svc.Cancel, msgCancelled)
}

// Delete handles POST /api/delete-order/{id}/.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "delete order", func(ctx context.Context, actor *policy.Subject, id int64) (*database.Order, error) {
		if err := h.svc.Delete(ctx, actor, id); err != nil {
			return nil, err
		}
		return &database.Order{ID: id}, nil
	}, "")
}

type transitionFunc func(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error)

// transition runs a staff action and writes the shared response shape.
// Failures are always JSON; success redirects browser callers to reception.
func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc, successMsg string) {
	actor := middleware.SubjectFromContext(r.Context())

	orderID, ok := orderIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgOrderNotFound)
		return
	}

	order, err := fn(r.Context(), actor, orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, msgUnauthorized)
		case errors.Is(err, service.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, msgOrderNotFound)
		case errors.Is(err, service.ErrCannotCancel):
			writeError(w, http.StatusBadRequest, msgCannotCancel)
		case errors.Is(err, service.ErrCannotMarkReceived):
			writeError(w, http.StatusBadRequest, msgCannotReceive)
		default:
			writeInternalError(w, op, err)
		}
		return
	}

	if successMsg == "" {
		successMsg = fmt.Sprintf("Order %d deleted successfully.", order.ID)
	}
	respond(w, r, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"order_id": order.ID,
		"message":  successMsg,
	}, receptionPath, successMsg, h.secureCookies)
}
