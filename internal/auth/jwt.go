package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/policy"
)

// Claims is the session payload carried in the session cookie or a bearer token.
type Claims struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	jwt.RegisteredClaims
}

// Identity is the subset of a user record a session is issued for.
type Identity struct {
	UserID      uuid.UUID
	Username    string
	IsStaff     bool
	IsSuperuser bool
}

// Subject converts the claims for capability checks.
func (c *Claims) Subject() *policy.Subject {
	if c == nil {
		return nil
	}
	return &policy.Subject{
		UserID:      c.UserID,
		Username:    c.Username,
		IsStaff:     c.IsStaff,
		IsSuperuser: c.IsSuperuser,
	}
}

func GenerateToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      id.UserID,
		Username:    id.Username,
		IsStaff:     id.IsStaff,
		IsSuperuser: id.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
