package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
)

type mockBoardStore struct {
	orders []database.Order
	users  []database.User
	err    error
}

func (m *mockBoardStore) ListRecentOrders(ctx context.Context, limit int32) ([]database.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := newestFirst(append([]database.Order(nil), m.orders...), int(limit))
	return out, nil
}

func (m *mockBoardStore) ListUnpaidOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error) {
	var out []database.Order
	for _, o := range m.orders {
		if o.UserID.Valid && uuid.UUID(o.UserID.Bytes) == userID && o.PaymentStatus == enum.PaymentStatusUnpaid {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockBoardStore) ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error) {
	var out []database.Order
	for _, o := range m.orders {
		if o.UserID.Valid && uuid.UUID(o.UserID.Bytes) == arg.UserID {
			out = append(out, o)
		}
	}
	return newestFirst(out, int(arg.Limit)), nil
}

func (m *mockBoardStore) AnyOrderReceived(ctx context.Context) (bool, error) {
	for _, o := range m.orders {
		if o.Status == enum.OrderStatusReceived {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBoardStore) ListUsers(ctx context.Context) ([]database.User, error) {
	return m.users, nil
}

func seededOrders(owner uuid.UUID, n int) []database.Order {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orders := make([]database.Order, n)
	for i := range orders {
		orders[i] = database.Order{
			ID:            int64(i + 1),
			UserID:        pgtype.UUID{Bytes: owner, Valid: true},
			Items:         `[{"title":"Fried Momo","price":120,"qty":1}]`,
			Status:        enum.OrderStatusOnTheWay,
			PaymentMethod: enum.PaymentMethodCash,
			PaymentStatus: enum.PaymentStatusUnpaid,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
	}
	return orders
}

func TestReception_LimitAndOrder(t *testing.T) {
	owner := uuid.New()
	store := &mockBoardStore{orders: seededOrders(owner, 60)}
	svc := NewBoardService(store)

	board, err := svc.Reception(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(board.Orders) != ReceptionOrderLimit {
		t.Fatalf("expected %d orders, got %d", ReceptionOrderLimit, len(board.Orders))
	}
	if board.Orders[0].ID != 60 || board.Orders[49].ID != 11 {
		t.Errorf("unexpected ordering: first=%d last=%d", board.Orders[0].ID, board.Orders[49].ID)
	}
	if len(board.UserOrders) != 0 {
		t.Errorf("anonymous board has user orders")
	}
	if board.HasReceived {
		t.Error("has_received should be false")
	}
}

func TestReception_TiesBrokenByID(t *testing.T) {
	same := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &mockBoardStore{orders: []database.Order{
		{ID: 1, CreatedAt: same},
		{ID: 3, CreatedAt: same},
		{ID: 2, CreatedAt: same},
	}}
	svc := NewBoardService(store)

	board, err := svc.Reception(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int64{3, 2, 1} {
		if board.Orders[i].ID != want {
			t.Errorf("orders[%d] = %d, want %d", i, board.Orders[i].ID, want)
		}
	}
}

func TestReception_UserOrdersOnlyUnpaid(t *testing.T) {
	owner := uuid.New()
	orders := seededOrders(owner, 4)
	orders[0].PaymentStatus = enum.PaymentStatusPaid
	orders[1].PaymentStatus = enum.PaymentStatusPendingVerification
	orders[2].Status = enum.OrderStatusReceived
	orders = append(orders, seededOrders(uuid.New(), 1)...)
	store := &mockBoardStore{orders: orders}
	svc := NewBoardService(store)

	board, err := svc.Reception(context.Background(), &owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(board.UserOrders) != 2 {
		t.Fatalf("expected 2 unpaid orders, got %d", len(board.UserOrders))
	}
	if board.UserOrders[0].ID != 4 || board.UserOrders[1].ID != 3 {
		t.Errorf("user orders = %d, %d", board.UserOrders[0].ID, board.UserOrders[1].ID)
	}
	if !board.HasReceived {
		t.Error("has_received should be true")
	}
}

func TestReception_StoreError(t *testing.T) {
	svc := NewBoardService(&mockBoardStore{err: errors.New("boom")})
	if _, err := svc.Reception(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestAdminOverview(t *testing.T) {
	orders := seededOrders(uuid.New(), 2)
	orders[1].Items = "two momos please"
	store := &mockBoardStore{
		orders: orders,
		users: []database.User{
			{Username: "zangmo"},
			{Username: "admin"},
			{Username: "karma"},
		},
	}
	svc := NewBoardService(store)

	if _, err := svc.AdminOverview(context.Background(), staff); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff: expected ErrForbidden, got: %v", err)
	}
	if _, err := svc.AdminOverview(context.Background(), nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous: expected ErrForbidden, got: %v", err)
	}

	view, err := svc.AdminOverview(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Users[0].Username != "admin" || view.Users[2].Username != "zangmo" {
		t.Errorf("users not sorted: %v", view.Users)
	}
	if view.Orders[0].ItemNames != "two momos please" {
		t.Errorf("fallback item_names = %q", view.Orders[0].ItemNames)
	}
	if view.Orders[1].ItemNames != "Fried Momo" {
		t.Errorf("item_names = %q", view.Orders[1].ItemNames)
	}
}

func TestCustomerOrders(t *testing.T) {
	owner := uuid.New()
	store := &mockBoardStore{orders: seededOrders(owner, 15)}
	svc := NewBoardService(store)

	orders, err := svc.CustomerOrders(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != CustomerOrderLimit {
		t.Fatalf("expected %d orders, got %d", CustomerOrderLimit, len(orders))
	}
	if orders[0].ID != 15 {
		t.Errorf("newest order = %d, want 15", orders[0].ID)
	}
}
