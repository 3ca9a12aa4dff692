package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `user_id, bio, avatar, location, website, phone, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Bio, &p.Avatar, &p.Location, &p.Website, &p.Phone, &p.UpdatedAt)
	return p, err
}

const createProfile = `
INSERT INTO profiles (user_id) VALUES ($1)
RETURNING ` + profileColumns

func (q *Queries) CreateProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, createProfile, userID))
}

const getProfile = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

func (q *Queries) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfile, userID))
}

type UpdateProfileParams struct {
	UserID   uuid.UUID
	Bio      string
	Avatar   string
	Location string
	Website  string
	Phone    string
}

const updateProfile = `
UPDATE profiles
SET bio = $2, avatar = $3, location = $4, website = $5, phone = $6, updated_at = now()
WHERE user_id = $1
RETURNING ` + profileColumns

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, updateProfile,
		arg.UserID,
		arg.Bio,
		arg.Avatar,
		arg.Location,
		arg.Website,
		arg.Phone,
	))
}
