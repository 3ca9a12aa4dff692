package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, hashed_password, first_name, email, is_staff, is_superuser, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.HashedPassword,
		&u.FirstName,
		&u.Email,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.CreatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Username       string
	HashedPassword string
	FirstName      string
	Email          string
	IsStaff        bool
	IsSuperuser    bool
}

const createUser = `
INSERT INTO users (username, hashed_password, first_name, email, is_staff, is_superuser)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.Username,
		arg.HashedPassword,
		arg.FirstName,
		arg.Email,
		arg.IsStaff,
		arg.IsSuperuser,
	))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
}

const usernameExists = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

func (q *Queries) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, usernameExists, username).Scan(&exists)
	return exists, err
}

const superuserExists = `SELECT EXISTS (SELECT 1 FROM users WHERE is_superuser)`

func (q *Queries) SuperuserExists(ctx context.Context) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, superuserExists).Scan(&exists)
	return exists, err
}

// superuserSignupLockKey is the advisory lock key serializing super-admin signups.
const superuserSignupLockKey = 7_301_115

const lockSuperuserSignup = `SELECT pg_advisory_xact_lock($1)`

// LockSuperuserSignup takes a transaction-scoped advisory lock. It must be
// called inside a transaction; the lock is released on commit or rollback.
func (q *Queries) LockSuperuserSignup(ctx context.Context) error {
	_, err := q.db.Exec(ctx, lockSuperuserSignup, superuserSignupLockKey)
	return err
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY username`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type UpdateUserContactParams struct {
	ID        uuid.UUID
	FirstName string
	Email     string
}

const updateUserContact = `
UPDATE users SET first_name = $2, email = $3
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUserContact(ctx context.Context, arg UpdateUserContactParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserContact, arg.ID, arg.FirstName, arg.Email))
}
