package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, price, image, available, created_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Image, &m.Available, &m.CreatedAt)
	return m, err
}

const listAvailableMenuItems = `
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE available
ORDER BY name, id`

func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateMenuItemParams struct {
	Name        string
	Description string
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
}

const createMenuItem = `
INSERT INTO menu_items (name, description, price, image, available)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + menuItemColumns

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Image,
		arg.Available,
	))
}

const countMenuItems = `SELECT count(*) FROM menu_items`

func (q *Queries) CountMenuItems(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countMenuItems).Scan(&n)
	return n, err
}
