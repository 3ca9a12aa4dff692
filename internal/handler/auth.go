package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/auth"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
	"github.com/reception-desk/api/internal/middleware"
	"github.com/reception-desk/api/internal/service"
)

// AccountServicer defines the account operations needed by auth handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type AccountServicer interface {
	Signup(ctx context.Context, req service.SignupRequest) (*database.User, error)
	Authenticate(ctx context.Context, username, password string) (*database.User, error)
	Profile(ctx context.Context, userID uuid.UUID) (*service.Account, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd service.ProfileUpdate) (*service.Account, error)
}

// SessionConfig controls how session tokens are issued.
type SessionConfig struct {
	JWTSecret     string
	TTL           time.Duration
	SecureCookies bool
}

// AuthHandler handles signup, login, logout and the caller's profile.
type AuthHandler struct {
	svc     AccountServicer
	session SessionConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AccountServicer, session SessionConfig) *AuthHandler {
	return &AuthHandler{svc: svc, session: session}
}

// RegisterRoutes registers account endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts/", h.Signup)
	r.Post("/login/", h.Login)
	r.Post("/logout/", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/accounts/profile/", h.GetProfile)
		r.Post("/accounts/profile/", h.UpdateProfile)
	})
}

// --- Response types ---

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	Email       string    `json:"email"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}

type sessionResponse struct {
	OK       bool         `json:"ok"`
	Token    string       `json:"token"`
	User     userResponse `json:"user"`
	Redirect string       `json:"redirect"`
	Message  string       `json:"message,omitempty"`
}

type accountResponse struct {
	OK      bool             `json:"ok"`
	User    userResponse     `json:"user"`
	Profile database.Profile `json:"profile"`
	Flash   string           `json:"flash,omitempty"`
}

// --- Handlers ---

// Signup handles POST /accounts/.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := fields["role"]
	if role == "" {
		role = enum.SignupRoleCustomer
	}

	user, err := h.svc.Signup(r.Context(), service.SignupRequest{
		Username:  fields["username"],
		Password1: fields["password1"],
		Password2: fields["password2"],
		Role:      role,
		AdminCode: fields["admin_code"],
		FirstName: fields["first_name"],
	})
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"ok":     false,
				"error":  "Sign up failed. Please correct the errors below.",
				"errors": ve.Fields,
			})
			return
		}
		writeInternalError(w, "signup", err)
		return
	}

	msg := fmt.Sprintf("Account created. Welcome, %s!", user.Username)
	h.startSession(w, r, *user, http.StatusCreated, "/accounts/profile/", msg)
}

// Login handles POST /login/.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if fields["username"] == "" || fields["password"] == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.svc.Authenticate(r.Context(), fields["username"], fields["password"])
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Please enter a correct username and password.")
			return
		}
		writeInternalError(w, "login", err)
		return
	}

	h.startSession(w, r, *user, http.StatusOK, "/dashboard/", "")
}

// Logout handles POST /logout/.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	const msg = "You have been logged out."
	http.SetCookie(w, auth.ExpiredSessionCookie(h.session.SecureCookies))
	respond(w, r, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"redirect": "/",
		"message":  msg,
	}, "/", msg, h.session.SecureCookies)
}

// GetProfile handles GET /accounts/profile/.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	acct, err := h.svc.Profile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternalError(w, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		OK:      true,
		User:    toUserResponse(acct.User),
		Profile: acct.Profile,
		Flash:   popFlash(w, r),
	})
}

// UpdateProfile handles POST /accounts/profile/.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.svc.UpdateProfile(r.Context(), claims.UserID, service.ProfileUpdate{
		FirstName: fields["first_name"],
		Email:     fields["email"],
		Bio:       fields["bio"],
		Avatar:    fields["avatar"],
		Location:  fields["location"],
		Website:   fields["website"],
		Phone:     fields["phone"],
	})
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "errors": ve.Fields})
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeInternalError(w, "update profile", err)
		}
		return
	}

	const msg = "Profile updated."
	if !wantsJSON(r) {
		setFlash(w, msg, h.session.SecureCookies)
		http.Redirect(w, r, "/accounts/profile/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		OK:      true,
		User:    toUserResponse(acct.User),
		Profile: acct.Profile,
		Flash:   msg,
	})
}

// startSession issues the session cookie for user and answers the request.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user database.User, status int, redirect, msg string) {
	token, err := auth.GenerateToken(h.session.JWTSecret, auth.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
	}, h.session.TTL)
	if err != nil {
		writeInternalError(w, "generate token", err)
		return
	}
	http.SetCookie(w, auth.SessionCookie(token, h.session.TTL, h.session.SecureCookies))

	if !wantsJSON(r) {
		if msg != "" {
			setFlash(w, msg, h.session.SecureCookies)
		}
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}
	writeJSON(w, status, sessionResponse{
		OK:       true,
		Token:    token,
		User:     toUserResponse(user),
		Redirect: redirect,
		Message:  msg,
	})
}
