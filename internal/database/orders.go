package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, items, total, status, payment_method, payment_status, transaction_ref, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Items,
		&o.Total,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.TransactionRef,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateOrderParams struct {
	UserID pgtype.UUID
	Items  string
	Total  pgtype.Numeric
}

// New orders always start on the way and unpaid.
const createOrder = `
INSERT INTO orders (user_id, items, total, status, payment_status)
VALUES ($1, $2, $3, 'on_the_way', 'unpaid')
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.UserID, arg.Items, arg.Total))
}

type CreateOrderItemParams struct {
	OrderID   int64
	Position  int32
	Title     string
	UnitPrice pgtype.Numeric
	Quantity  int32
}

const createOrderItem = `
INSERT INTO order_items (order_id, position, title, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, position, title, unit_price, quantity`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.Title,
		arg.UnitPrice,
		arg.Quantity,
	).Scan(&i.ID, &i.OrderID, &i.Position, &i.Title, &i.UnitPrice, &i.Quantity)
	return i, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, position, title, unit_price, quantity
FROM order_items
WHERE order_id = $1
ORDER BY position`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.Position, &i.Title, &i.UnitPrice, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listRecentOrders = `
SELECT ` + orderColumns + ` FROM orders
ORDER BY created_at DESC, id DESC
LIMIT $1`

func (q *Queries) ListRecentOrders(ctx context.Context, limit int32) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listRecentOrders, limit))
}

const listUnpaidOrdersByUser = `
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1 AND payment_status = 'unpaid'
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListUnpaidOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listUnpaidOrdersByUser, userID))
}

type ListOrdersByUserParams struct {
	UserID uuid.UUID
	Limit  int32
}

const listOrdersByUser = `
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit))
}

const anyOrderReceived = `SELECT EXISTS (SELECT 1 FROM orders WHERE status = 'received')`

func (q *Queries) AnyOrderReceived(ctx context.Context) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, anyOrderReceived).Scan(&exists)
	return exists, err
}

type SetOrderPaymentMethodParams struct {
	ID            int64
	UserID        uuid.UUID
	PaymentMethod string
	PaymentStatus string
}

// Only the owner's unpaid orders match; anything else returns no rows.
const setOrderPaymentMethod = `
UPDATE orders
SET payment_method = $3, payment_status = $4, updated_at = now()
WHERE id = $1 AND user_id = $2 AND payment_status = 'unpaid'
RETURNING ` + orderColumns

func (q *Queries) SetOrderPaymentMethod(ctx context.Context, arg SetOrderPaymentMethodParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderPaymentMethod,
		arg.ID,
		arg.UserID,
		arg.PaymentMethod,
		arg.PaymentStatus,
	))
}

type SubmitQRPaymentParams struct {
	ID             int64
	TransactionRef pgtype.Text
}

const submitQRPayment = `
UPDATE orders
SET payment_method = 'qr_payment',
    payment_status = 'pending_verification',
    transaction_ref = $2,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) SubmitQRPayment(ctx context.Context, arg SubmitQRPaymentParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, submitQRPayment, arg.ID, arg.TransactionRef))
}

type MarkOrderReceivedParams struct {
	ID int64
	// RequireOnTheWay restricts the update to orders still on the way.
	RequireOnTheWay bool
}

const markOrderReceived = `
UPDATE orders
SET status = 'received', updated_at = now()
WHERE id = $1 AND (NOT $2::boolean OR status = 'on_the_way')
RETURNING ` + orderColumns

func (q *Queries) MarkOrderReceived(ctx context.Context, arg MarkOrderReceivedParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderReceived, arg.ID, arg.RequireOnTheWay))
}

const markOrderPaid = `
UPDATE orders
SET payment_status = 'paid', updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPaid(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPaid, id))
}

// The status guard lives in the WHERE clause so check and write are one statement.
const cancelOrder = `
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status = 'on_the_way'
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id))
}

const deleteOrder = `DELETE FROM orders WHERE id = $1 RETURNING id`

func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, deleteOrder, id).Scan(&deleted)
	return deleted, err
}
