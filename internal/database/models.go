package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Constraint names referenced by callers when mapping unique violations.
const (
	ConstraintUsernameUnique  = "users_username_key"
	ConstraintSingleSuperuser = "users_single_superuser"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	FirstName      string    `json:"first_name"`
	Email          string    `json:"email"`
	IsStaff        bool      `json:"is_staff"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
}

type Profile struct {
	UserID    uuid.UUID `json:"user_id"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`
	Location  string    `json:"location"`
	Website   string    `json:"website"`
	Phone     string    `json:"phone"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Image       pgtype.Text    `json:"image"`
	Available   bool           `json:"available"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Order struct {
	ID             int64          `json:"id"`
	UserID         pgtype.UUID    `json:"user_id"`
	Items          string         `json:"items"`
	Total          pgtype.Numeric `json:"total"`
	Status         string         `json:"status"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentStatus  string         `json:"payment_status"`
	TransactionRef pgtype.Text    `json:"transaction_ref"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID        int64          `json:"id"`
	OrderID   int64          `json:"order_id"`
	Position  int32          `json:"position"`
	Title     string         `json:"title"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	Quantity  int32          `json:"quantity"`
}
