package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
	"github.com/reception-desk/api/internal/middleware"
	"github.com/reception-desk/api/internal/policy"
	"github.com/reception-desk/api/internal/service"
)

// BoardServicer defines the read models served by the page handlers.
// Satisfied by *service.BoardService.
type BoardServicer interface {
	Reception(ctx context.Context, userID *uuid.UUID) (*service.ReceptionBoard, error)
	AdminOverview(ctx context.Context, actor *policy.Subject) (*service.AdminOverview, error)
	CustomerOrders(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	HasReceived(ctx context.Context) (bool, error)
}

// ReceptionHandler serves the reception queue and payment method selection.
type ReceptionHandler struct {
	orders        OrderServicer
	boards        BoardServicer
	secureCookies bool
}

// NewReceptionHandler creates a new ReceptionHandler.
func NewReceptionHandler(orders OrderServicer, boards BoardServicer, secureCookies bool) *ReceptionHandler {
	return &ReceptionHandler{orders: orders, boards: boards, secureCookies: secureCookies}
}

// RegisterRoutes registers reception endpoints on the given Chi router.
func (h *ReceptionHandler) RegisterRoutes(r chi.Router) {
	r.Get(receptionPath, h.Board)
	r.Post(receptionPath, h.SelectPaymentMethod)
}

type receptionResponse struct {
	Orders      []orderResponse `json:"orders"`
	UserOrders  []orderResponse `json:"user_orders"`
	HasReceived bool            `json:"has_received"`
	Flash       string          `json:"flash"`
}

// Board handles GET /reception/.
func (h *ReceptionHandler) Board(w http.ResponseWriter, r *http.Request) {
	var userID *uuid.UUID
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		id := claims.UserID
		userID = &id
	}

	board, err := h.boards.Reception(r.Context(), userID)
	if err != nil {
		writeInternalError(w, "reception board", err)
		return
	}

	writeJSON(w, http.StatusOK, receptionResponse{
		Orders:      toOrderResponses(board.Orders),
		UserOrders:  toOrderResponses(board.UserOrders),
		HasReceived: board.HasReceived,
		Flash:       popFlash(w, r),
	})
}

// SelectPaymentMethod handles POST /reception/.
func (h *ReceptionHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := strconv.ParseInt(strings.TrimSpace(fields["order_id"]), 10, 64)
	if err != nil || orderID <= 0 {
		respondNotFound(w, r, h.secureCookies)
		return
	}

	order, err := h.orders.SelectPaymentMethod(r.Context(), claims.UserID, orderID, fields["payment_method"])
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPaymentMethod):
			writeError(w, http.StatusBadRequest, "Select a valid payment method.")
		case errors.Is(err, service.ErrOrderNotFound):
			respondNotFound(w, r, h.secureCookies)
		default:
			writeInternalError(w, "select payment method", err)
		}
		return
	}

	msg := fmt.Sprintf("Payment method set to %s.", enum.PaymentMethodLabel(order.PaymentMethod))
	respond(w, r, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"order":   toOrderResponse(*order),
		"message": msg,
	}, receptionPath, msg, h.secureCookies)
}

// respondNotFound reports a missing order: 404 for scripts, a flash on the
// reception page for browsers.
func respondNotFound(w http.ResponseWriter, r *http.Request, secure bool) {
	if wantsJSON(r) {
		writeError(w, http.StatusNotFound, msgOrderNotFoundFlash)
		return
	}
	setFlash(w, msgOrderNotFoundFlash, secure)
	http.Redirect(w, r, receptionPath, http.StatusFound)
}
