package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/middleware"
	"github.com/reception-desk/api/internal/policy"
	"github.com/reception-desk/api/internal/service"
)

const (
	adminDashboardPath    = "/dashboard/admin/"
	customerDashboardPath = "/dashboard/customer/"
	msgRoleChangeDisabled = "Role changes are disabled; single super admin is enforced."
)

// DashboardHandler serves the admin and customer dashboards.
type DashboardHandler struct {
	boards        BoardServicer
	secureCookies bool
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(boards BoardServicer, secureCookies bool) *DashboardHandler {
	return &DashboardHandler{boards: boards, secureCookies: secureCookies}
}

// RegisterRoutes registers dashboard endpoints on the given Chi router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/dashboard/", h.Dashboard)
		r.Get(customerDashboardPath, h.Customer)

		r.With(middleware.RequireCapability(policy.ViewAdmin)).Get(adminDashboardPath, h.Admin)
		r.With(middleware.RequireCapability(policy.ManageUsers)).Post("/dashboard/admin/users/{id}/toggle-staff/", h.ToggleStaff)
	})
}

// --- Response types ---

type adminOrderResponse struct {
	orderResponse
	ItemNames string `json:"item_names"`
}

type adminDashboardResponse struct {
	Users  []userResponse       `json:"users"`
	Orders []adminOrderResponse `json:"orders"`
	Flash  string               `json:"flash"`
}

type customerDashboardResponse struct {
	Orders []orderResponse `json:"orders"`
	Flash  string          `json:"flash"`
}

// --- Handlers ---

// Dashboard handles GET /dashboard/ by sending the caller to their dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	target := customerDashboardPath
	if policy.Can(middleware.SubjectFromContext(r.Context()), policy.ViewAdmin) {
		target = adminDashboardPath
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Admin handles GET /dashboard/admin/.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	view, err := h.boards.AdminOverview(r.Context(), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			writeError(w, http.StatusForbidden, msgUnauthorized)
			return
		}
		writeInternalError(w, "admin overview", err)
		return
	}

	resp := adminDashboardResponse{
		Users:  make([]userResponse, len(view.Users)),
		Orders: make([]adminOrderResponse, len(view.Orders)),
		Flash:  popFlash(w, r),
	}
	for i, u := range view.Users {
		resp.Users[i] = toUserResponse(u)
	}
	for i, o := range view.Orders {
		resp.Orders[i] = adminOrderResponse{orderResponse: toOrderResponse(o.Order), ItemNames: o.ItemNames}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Customer handles GET /dashboard/customer/.
func (h *DashboardHandler) Customer(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orders, err := h.boards.CustomerOrders(r.Context(), claims.UserID)
	if err != nil {
		writeInternalError(w, "customer orders", err)
		return
	}

	writeJSON(w, http.StatusOK, customerDashboardResponse{
		Orders: toOrderResponses(orders),
		Flash:  popFlash(w, r),
	})
}

// ToggleStaff handles POST /dashboard/admin/users/{id}/toggle-staff/. Role
// changes are disabled, so it only reports that.
func (h *DashboardHandler) ToggleStaff(w http.ResponseWriter, r *http.Request) {
	if _, err := uuid.Parse(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": msgRoleChangeDisabled,
	}, adminDashboardPath, msgRoleChangeDisabled, h.secureCookies)
}
