package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reception-desk/api/internal/config"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/handler"
	"github.com/reception-desk/api/internal/metrics"
	mw "github.com/reception-desk/api/internal/middleware"
	"github.com/reception-desk/api/internal/service"
)

// New creates a Chi router with all application routes wired up.
// Every route sees the caller's session when one is present; handlers and
// route groups decide whether an anonymous caller may continue.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(mw.Authenticate(cfg.JWTSecret))
	r.Use(mw.RequestLogger(slog.Default()))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Services
	orderService := service.NewOrderService(pool, queries,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		service.OrderOptions{
			AllowAnonymous: cfg.AllowAnonymousOrders,
			VerifyTotal:    cfg.VerifyOrderTotal,
			StrictReceive:  cfg.StrictReceive,
		},
	)
	accountService := service.NewAccountService(pool, queries,
		func(db database.DBTX) service.AccountStore { return database.New(db) },
		cfg.AdminSignupCode,
	)
	boardService := service.NewBoardService(queries)

	// Pages
	menuHandler := handler.NewMenuHandler(queries, boardService)
	menuHandler.RegisterRoutes(r)

	// Accounts
	authHandler := handler.NewAuthHandler(accountService, handler.SessionConfig{
		JWTSecret:     cfg.JWTSecret,
		TTL:           cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	})
	authHandler.RegisterRoutes(r)

	// Orders and reception
	orderHandler := handler.NewOrderHandler(orderService, cfg.SecureCookies)
	orderHandler.RegisterRoutes(r)

	receptionHandler := handler.NewReceptionHandler(orderService, boardService, cfg.SecureCookies)
	receptionHandler.RegisterRoutes(r)

	// Dashboards
	dashboardHandler := handler.NewDashboardHandler(boardService, cfg.SecureCookies)
	dashboardHandler.RegisterRoutes(r)

	slog.Info("router initialized")
	return r
}
