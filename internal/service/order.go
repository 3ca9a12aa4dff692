package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
	"github.com/reception-desk/api/internal/itemlist"
	"github.com/reception-desk/api/internal/metrics"
	"github.com/reception-desk/api/internal/policy"
	"github.com/shopspring/decimal"
)

// maxTransactionRefLength matches orders.transaction_ref.
const maxTransactionRefLength = 120

// maxAmount is the first value NUMERIC(8,2) cannot hold.
var maxAmount = decimal.New(1, 6)

// storableAmount reports whether d fits NUMERIC(8,2) once rounded to cents.
func storableAmount(d decimal.Decimal) bool {
	d = d.Round(2)
	return !d.IsNegative() && d.LessThan(maxAmount)
}

// Errors returned by the order service.
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrForbidden             = errors.New("unauthorized")
	ErrLoginRequired         = errors.New("please log in or create an account before ordering")
	ErrDisplayNameRequired   = errors.New("please set your display name in your profile before ordering")
	ErrInvalidJSON           = errors.New("invalid JSON")
	ErrInvalidItems          = errors.New("invalid items")
	ErrInvalidTotal          = errors.New("invalid total")
	ErrTotalMismatch         = errors.New("total does not match items")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrInvalidTransactionRef = errors.New("transaction reference is too long")
	ErrCannotCancel          = errors.New("order cannot be cancelled")
	ErrCannotMarkReceived    = errors.New("order cannot be marked received")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	SetOrderPaymentMethod(ctx context.Context, arg database.SetOrderPaymentMethodParams) (database.Order, error)
	SubmitQRPayment(ctx context.Context, arg database.SubmitQRPaymentParams) (database.Order, error)
	MarkOrderReceived(ctx context.Context, arg database.MarkOrderReceivedParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, id int64) (database.Order, error)
	CancelOrder(ctx context.Context, id int64) (database.Order, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderOptions switches between the deployment variants of the lifecycle.
type OrderOptions struct {
	// AllowAnonymous accepts orders from callers without a session.
	AllowAnonymous bool
	// VerifyTotal rejects orders whose total differs from the sum of their lines.
	VerifyTotal bool
	// StrictReceive only lets on_the_way orders be marked received.
	StrictReceive bool
}

// PlaceOrderRequest is the raw order submission.
type PlaceOrderRequest struct {
	// UserID is nil for anonymous callers.
	UserID *uuid.UUID
	Body   []byte
}

type placeOrderPayload struct {
	Items json.RawMessage `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// OrderService owns every transition of an order's status and payment_status.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	opts     OrderOptions
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, opts OrderOptions) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, opts: opts}
}

// PlaceOrder stores a new order on the way and unpaid. The item list is kept
// as JSON text on the order and mirrored into order_items in the same
// transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*database.Order, error) {
	switch {
	case req.UserID != nil:
		user, err := s.store.GetUserByID(ctx, *req.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrLoginRequired
			}
			return nil, fmt.Errorf("get user: %w", err)
		}
		if strings.TrimSpace(user.FirstName) == "" {
			return nil, ErrDisplayNameRequired
		}
	case !s.opts.AllowAnonymous:
		return nil, ErrLoginRequired
	}

	var payload placeOrderPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, ErrInvalidJSON
	}

	items, err := itemlist.Parse(payload.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItems, err)
	}
	for i, it := range items {
		if !storableAmount(it.Price) {
			return nil, fmt.Errorf("%w: item %d price %s out of range", ErrInvalidItems, i, it.Price)
		}
	}

	if !storableAmount(payload.Total) {
		return nil, ErrInvalidTotal
	}
	// The client total is trusted unless verification is switched on.
	if s.opts.VerifyTotal && !itemlist.Total(items).Round(2).Equal(payload.Total.Round(2)) {
		return nil, ErrTotalMismatch
	}

	stored, err := itemlist.Encode(items)
	if err != nil {
		return nil, err
	}

	userID := pgtype.UUID{}
	if req.UserID != nil {
		userID = pgtype.UUID{Bytes: *req.UserID, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID: userID,
		Items:  stored,
		Total:  database.DecimalToNumeric(payload.Total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i, it := range items {
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			Position:  int32(i),
			Title:     it.Title,
			UnitPrice: database.DecimalToNumeric(it.Price),
			Quantity:  it.Qty,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.RecordTransition(metrics.TransitionPlaced)
	return &order, nil
}

// GetOrder returns a single order.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*database.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "get order")
	}
	return &order, nil
}

// SelectPaymentMethod records the owner's chosen payment method on one of
// their unpaid orders. Choosing QR moves the order to pending verification;
// cash waits for staff to confirm payment.
func (s *OrderService) SelectPaymentMethod(ctx context.Context, userID uuid.UUID, orderID int64, method string) (*database.Order, error) {
	if !enum.IsPaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}

	paymentStatus := enum.PaymentStatusUnpaid
	if method == enum.PaymentMethodQR {
		paymentStatus = enum.PaymentStatusPendingVerification
	}

	order, err := s.store.SetOrderPaymentMethod(ctx, database.SetOrderPaymentMethodParams{
		ID:            orderID,
		UserID:        userID,
		PaymentMethod: method,
		PaymentStatus: paymentStatus,
	})
	if err != nil {
		return nil, notFound(err, "set payment method")
	}

	metrics.RecordTransition(metrics.TransitionPaymentMethod)
	return &order, nil
}

// SubmitQRPayment stores a QR transaction reference and marks the payment as
// pending verification. It overwrites whatever payment state the order had.
func (s *OrderService) SubmitQRPayment(ctx context.Context, orderID int64, transactionRef string) (*database.Order, error) {
	ref := strings.TrimSpace(transactionRef)
	if len(ref) > maxTransactionRefLength {
		return nil, ErrInvalidTransactionRef
	}

	txRef := pgtype.Text{}
	if ref != "" {
		txRef = pgtype.Text{String: ref, Valid: true}
	}

	order, err := s.store.SubmitQRPayment(ctx, database.SubmitQRPaymentParams{
		ID:             orderID,
		TransactionRef: txRef,
	})
	if err != nil {
		return nil, notFound(err, "submit qr payment")
	}

	metrics.RecordTransition(metrics.TransitionQRSubmitted)
	return &order, nil
}

// MarkReceived sets status=received. Unless StrictReceive is set the current
// status is not checked, so cancelled orders can be marked received too.
func (s *OrderService) MarkReceived(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error) {
	if !policy.Can(actor, policy.MarkReceived) {
		return nil, ErrForbidden
	}

	order, err := s.store.MarkOrderReceived(ctx, database.MarkOrderReceivedParams{
		ID:              orderID,
		RequireOnTheWay: s.opts.StrictReceive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) && s.opts.StrictReceive {
			return nil, s.explainMiss(ctx, orderID, ErrCannotMarkReceived)
		}
		return nil, notFound(err, "mark received")
	}

	metrics.RecordTransition(metrics.TransitionReceived)
	return &order, nil
}

// MarkPaid sets payment_status=paid regardless of the current payment state.
func (s *OrderService) MarkPaid(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error) {
	if !policy.Can(actor, policy.MarkPaid) {
		return nil, ErrForbidden
	}

	order, err := s.store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "mark paid")
	}

	metrics.RecordTransition(metrics.TransitionPaid)
	return &order, nil
}

// Cancel moves an on_the_way order to cancelled. The status guard is part of
// the UPDATE, so a concurrent receive or cancel cannot slip in between.
func (s *OrderService) Cancel(ctx context.Context, actor *policy.Subject, orderID int64) (*database.Order, error) {
	if !policy.Can(actor, policy.CancelOrder) {
		return nil, ErrForbidden
	}

	order, err := s.store.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No rows updated means either: order doesn't exist, or it left on_the_way.
			return nil, s.explainMiss(ctx, orderID, ErrCannotCancel)
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	metrics.RecordTransition(metrics.TransitionCancelled)
	return &order, nil
}

// Delete removes the order row whatever its status.
func (s *OrderService) Delete(ctx context.Context, actor *policy.Subject, orderID int64) error {
	if !policy.Can(actor, policy.DeleteOrder) {
		return ErrForbidden
	}

	if _, err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return notFound(err, "delete order")
	}

	metrics.RecordTransition(metrics.TransitionDeleted)
	return nil
}

// explainMiss turns a conditional update that matched no row into either
// ErrOrderNotFound or the given transition error.
func (s *OrderService) explainMiss(ctx context.Context, orderID int64, transitionErr error) error {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return notFound(err, "get order")
	}
	return transitionErr
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
