package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/reception-desk/api/internal/auth"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
)

// Signup field error messages.
const (
	MsgRequired         = "This field is required."
	MsgUsernameTaken    = "A user with that username already exists."
	MsgUsernameTooLong  = "Ensure this value has at most 150 characters."
	MsgPasswordMismatch = "The two password fields didn't match."
	MsgPasswordTooShort = "This password is too short. It must contain at least 8 characters."
	MsgInvalidRole      = "Select a valid choice."
	MsgSuperAdminExists = "A super admin already exists."
	MsgInvalidAdminCode = "Invalid admin code."
)

// Field limits match the column widths in the users and profiles tables.
const (
	maxUsernameLength  = 150
	maxFirstNameLength = 150
	maxEmailLength     = 254
	maxLocationLength  = 120
	maxWebsiteLength   = 200
	maxPhoneLength     = 30
	msgInvalidEmail    = "Enter a valid email address."
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AccountStore defines the DB methods needed for accounts.
// Satisfied by *database.Queries.
type AccountStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SuperuserExists(ctx context.Context) (bool, error)
	LockSuperuserSignup(ctx context.Context) error
	UpdateUserContact(ctx context.Context, arg database.UpdateUserContactParams) (database.User, error)
	CreateProfile(ctx context.Context, userID uuid.UUID) (database.Profile, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (database.Profile, error)
	UpdateProfile(ctx context.Context, arg database.UpdateProfileParams) (database.Profile, error)
}

// NewAccountStore creates an AccountStore from a DBTX (pool or tx).
type NewAccountStore func(db database.DBTX) AccountStore

// SignupRequest is the signup form.
type SignupRequest struct {
	Username  string `json:"username"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	Role      string `json:"role"`
	AdminCode string `json:"admin_code"`
	FirstName string `json:"first_name"`
}

// ProfileUpdate is the editable part of a user and their profile.
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatar"`
	Location  string `json:"location"`
	Website   string `json:"website"`
	Phone     string `json:"phone"`
}

// Account is a user together with their profile.
type Account struct {
	User    database.User    `json:"user"`
	Profile database.Profile `json:"profile"`
}

// AccountService handles signup, login and profile edits.
type AccountService struct {
	pool      TxBeginner
	store     AccountStore
	newStore  NewAccountStore
	adminCode string
}

// NewAccountService creates a new AccountService. adminCode is the secret a
// super_admin signup must present.
func NewAccountService(pool TxBeginner, store AccountStore, newStore NewAccountStore, adminCode string) *AccountService {
	return &AccountService{pool: pool, store: store, newStore: newStore, adminCode: adminCode}
}

// Signup creates a user and their profile. At most one super admin can ever
// exist: the existence check runs under an advisory lock in the same
// transaction as the insert, and the partial unique index on is_superuser
// catches anything that still gets through.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (*database.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.TrimSpace(req.Role)
	req.FirstName = strings.TrimSpace(req.FirstName)

	fields := validateSignup(req)
	superAdmin := req.Role == enum.SignupRoleSuperAdmin
	if superAdmin && !s.adminCodeMatches(req.AdminCode) {
		fields["admin_code"] = MsgInvalidAdminCode
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if superAdmin {
		if err := store.LockSuperuserSignup(ctx); err != nil {
			return nil, fmt.Errorf("lock superuser signup: %w", err)
		}
		exists, err := store.SuperuserExists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check superuser: %w", err)
		}
		if exists {
			fields["role"] = MsgSuperAdminExists
		}
	}

	if _, bad := fields["username"]; !bad {
		taken, err := store.UsernameExists(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			fields["username"] = MsgUsernameTaken
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hashed, err := auth.HashPassword(req.Password1)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := store.CreateUser(ctx, database.CreateUserParams{
		Username:       req.Username,
		HashedPassword: hashed,
		FirstName:      req.FirstName,
		IsStaff:        superAdmin,
		IsSuperuser:    superAdmin,
	})
	if err != nil {
		if field, msg, ok := uniqueViolationField(err); ok {
			return nil, &ValidationError{Fields: map[string]string{field: msg}}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if _, err := store.CreateProfile(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &user, nil
}

// Authenticate checks a username and password pair.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*database.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(user.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Profile returns the user and profile for userID.
func (s *AccountService) Profile(ctx context.Context, userID uuid.UUID) (*Account, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &Account{User: user, Profile: profile}, nil
}

// UpdateProfile writes the contact fields on the user and the profile fields
// in one transaction.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*Account, error) {
	upd = trimProfileUpdate(upd)
	if fields := validateProfile(upd); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	user, err := store.UpdateUserContact(ctx, database.UpdateUserContactParams{
		ID:        userID,
		FirstName: upd.FirstName,
		Email:     upd.Email,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	profile, err := store.UpdateProfile(ctx, database.UpdateProfileParams{
		UserID:   userID,
		Bio:      upd.Bio,
		Avatar:   upd.Avatar,
		Location: upd.Location,
		Website:  upd.Website,
		Phone:    upd.Phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &Account{User: user, Profile: profile}, nil
}

func (s *AccountService) adminCodeMatches(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || s.adminCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.adminCode)) == 1
}

func validateSignup(req SignupRequest) map[string]string {
	fields := map[string]string{}

	switch {
	case req.Username == "":
		fields["username"] = MsgRequired
	case utf8.RuneCountInString(req.Username) > maxUsernameLength:
		fields["username"] = MsgUsernameTooLong
	}

	if msg := tooLong(req.FirstName, maxFirstNameLength); msg != "" {
		fields["first_name"] = msg
	}

	switch {
	case req.Password1 == "":
		fields["password1"] = MsgRequired
	case req.Password2 == "":
		fields["password2"] = MsgRequired
	case req.Password1 != req.Password2:
		fields["password2"] = MsgPasswordMismatch
	case len(req.Password1) < auth.MinPasswordLength:
		fields["password2"] = MsgPasswordTooShort
	}

	switch req.Role {
	case enum.SignupRoleCustomer, enum.SignupRoleSuperAdmin:
	case "":
		fields["role"] = MsgRequired
	default:
		fields["role"] = MsgInvalidRole
	}

	return fields
}

func trimProfileUpdate(u ProfileUpdate) ProfileUpdate {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.Email = strings.TrimSpace(u.Email)
	u.Bio = strings.TrimSpace(u.Bio)
	u.Avatar = strings.TrimSpace(u.Avatar)
	u.Location = strings.TrimSpace(u.Location)
	u.Website = strings.TrimSpace(u.Website)
	u.Phone = strings.TrimSpace(u.Phone)
	return u
}

func validateProfile(u ProfileUpdate) map[string]string {
	fields := map[string]string{}
	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"first_name", u.FirstName, maxFirstNameLength},
		{"email", u.Email, maxEmailLength},
		{"location", u.Location, maxLocationLength},
		{"website", u.Website, maxWebsiteLength},
		{"phone", u.Phone, maxPhoneLength},
	}
	for _, l := range limits {
		if msg := tooLong(l.value, l.max); msg != "" {
			fields[l.name] = msg
		}
	}
	if _, bad := fields["email"]; !bad && u.Email != "" && !validEmail(u.Email) {
		fields["email"] = msgInvalidEmail
	}
	return fields
}

// tooLong returns the field error for v when it has more than max characters.
func tooLong(v string, max int) string {
	if utf8.RuneCountInString(v) <= max {
		return ""
	}
	return fmt.Sprintf("Ensure this value has at most %d characters.", max)
}

// validEmail accepts a bare address only, not a "Name <addr>" form.
func validEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v
}

// uniqueViolationField maps a unique violation on users to the form field it
// belongs to.
func uniqueViolationField(err error) (field, msg string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", "", false
	}
	switch pgErr.ConstraintName {
	case database.ConstraintSingleSuperuser:
		return "role", MsgSuperAdminExists, true
	case database.ConstraintUsernameUnique:
		return "username", MsgUsernameTaken, true
	}
	return "", "", false
}
