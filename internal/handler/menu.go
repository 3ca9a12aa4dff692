package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/middleware"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListAvailableMenuItems(ctx context.Context) ([]database.MenuItem, error)
}

// ReceivedChecker reports whether any order has been received.
// Satisfied by *service.BoardService.
type ReceivedChecker interface {
	HasReceived(ctx context.Context) (bool, error)
}

// MenuHandler serves the landing page, the menu and the ordering page.
type MenuHandler struct {
	store    MenuStore
	received ReceivedChecker
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, received ReceivedChecker) *MenuHandler {
	return &MenuHandler{store: store, received: received}
}

// RegisterRoutes registers page endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/aboutus/", h.About)
	r.Get("/menu/", h.Menu)
	r.With(middleware.RequireUser).Get("/order/", h.Order)
}

type menuItemResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       database.NumericString(m.Price),
		CreatedAt:   m.CreatedAt,
	}
	if m.Image.Valid {
		resp.Image = &m.Image.String
	}
	return resp
}

// Index handles GET /.
func (h *MenuHandler) Index(w http.ResponseWriter, r *http.Request) {
	has, err := h.received.HasReceived(r.Context())
	if err != nil {
		writeInternalError(w, "check received orders", err)
		return
	}

	resp := map[string]interface{}{
		"ok":                     true,
		"reception_has_received": has,
		"flash":                  popFlash(w, r),
		"links": map[string]string{
			"menu":      "/menu/",
			"order":     "/order/",
			"reception": receptionPath,
			"accounts":  "/accounts/",
			"login":     "/login/",
		},
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		resp["username"] = claims.Username
	}
	writeJSON(w, http.StatusOK, resp)
}

// About handles GET /aboutus/.
func (h *MenuHandler) About(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"name": "Reception Desk",
	})
}

// Menu handles GET /menu/.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	h.writeMenu(w, r)
}

// Order handles GET /order/. The menu is the same; only signed-in callers may
// reach the ordering page.
func (h *MenuHandler) Order(w http.ResponseWriter, r *http.Request) {
	h.writeMenu(w, r)
}

func (h *MenuHandler) writeMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListAvailableMenuItems(r.Context())
	if err != nil {
		writeInternalError(w, "list menu", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"menu_items": resp,
	})
}
