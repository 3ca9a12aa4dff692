package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/itemlist"
	"github.com/reception-desk/api/internal/policy"
)

// Board sizes.
const (
	ReceptionOrderLimit = 50
	AdminOrderLimit     = 50
	CustomerOrderLimit  = 10
)

// BoardStore defines the DB reads behind the reception and admin boards.
// Satisfied by *database.Queries.
type BoardStore interface {
	ListRecentOrders(ctx context.Context, limit int32) ([]database.Order, error)
	ListUnpaidOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error)
	AnyOrderReceived(ctx context.Context) (bool, error)
	ListUsers(ctx context.Context) ([]database.User, error)
}

// ReceptionBoard is the queue shown at the reception desk.
type ReceptionBoard struct {
	Orders      []database.Order `json:"orders"`
	UserOrders  []database.Order `json:"user_orders"`
	HasReceived bool             `json:"has_received"`
}

// AdminOrder is an order with its item titles pre-rendered.
type AdminOrder struct {
	database.Order
	ItemNames string `json:"item_names"`
}

// AdminOverview is the super-admin dashboard.
type AdminOverview struct {
	Users  []database.User `json:"users"`
	Orders []AdminOrder    `json:"orders"`
}

// BoardService builds the read-only views over orders and users.
type BoardService struct {
	store BoardStore
}

// NewBoardService creates a new BoardService.
func NewBoardService(store BoardStore) *BoardService {
	return &BoardService{store: store}
}

// Reception returns the most recent orders and, when userID is set, the
// caller's unpaid orders.
func (s *BoardService) Reception(ctx context.Context, userID *uuid.UUID) (*ReceptionBoard, error) {
	orders, err := s.store.ListRecentOrders(ctx, ReceptionOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}

	board := &ReceptionBoard{
		Orders:     newestFirst(orders, ReceptionOrderLimit),
		UserOrders: []database.Order{},
	}

	if userID != nil {
		mine, err := s.store.ListUnpaidOrdersByUser(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("list unpaid orders: %w", err)
		}
		board.UserOrders = newestFirst(mine, 0)
	}

	board.HasReceived, err = s.store.AnyOrderReceived(ctx)
	if err != nil {
		return nil, fmt.Errorf("check received orders: %w", err)
	}
	return board, nil
}

// HasReceived reports whether any order has been marked received.
func (s *BoardService) HasReceived(ctx context.Context) (bool, error) {
	ok, err := s.store.AnyOrderReceived(ctx)
	if err != nil {
		return false, fmt.Errorf("check received orders: %w", err)
	}
	return ok, nil
}

// AdminOverview lists every user by username and the most recent orders.
func (s *BoardService) AdminOverview(ctx context.Context, actor *policy.Subject) (*AdminOverview, error) {
	if !policy.Can(actor, policy.ViewAdmin) {
		return nil, ErrForbidden
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	orders, err := s.store.ListRecentOrders(ctx, AdminOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	orders = newestFirst(orders, AdminOrderLimit)

	out := make([]AdminOrder, len(orders))
	for i, o := range orders {
		out[i] = AdminOrder{Order: o, ItemNames: itemlist.Summary(o.Items)}
	}
	return &AdminOverview{Users: users, Orders: out}, nil
}

// CustomerOrders returns the caller's most recent orders.
func (s *BoardService) CustomerOrders(ctx context.Context, userID uuid.UUID) ([]database.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, database.ListOrdersByUserParams{
		UserID: userID,
		Limit:  CustomerOrderLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newestFirst(orders, CustomerOrderLimit), nil
}

// newestFirst sorts by created_at then id, both descending, and caps the
// result at limit when limit > 0.
func newestFirst(orders []database.Order, limit int) []database.Order {
	if orders == nil {
		orders = []database.Order{}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders
}
