package main

import (
	"net/http"

	"github.com/otiuna/sigpat/internal/auth"
	"github.com/otiuna/sigpat/internal/gate"
	"github.com/otiuna/sigpat/internal/httpx"
	"github.com/otiuna/sigpat/internal/middleware"
	"github.com/otiuna/sigpat/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	logger    *zap.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, routerCfg *policy.RouterConfig, logger *zap.Logger) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		logger:    logger,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Global middleware: request id, auth context, then request logging so
	// the log line can carry the authenticated user id.
	handler := middleware.RequestID(auth.Middleware(middleware.Logging(a.logger)(a.mux)))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler

	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("POST /logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (require logged-in user)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /me", a.requireAuth(http.HandlerFunc(ah.Me)))

	// ─────────────────────────────────────────────────────────────────────────
	// Document transit (require auth + documento permissions)
	// ─────────────────────────────────────────────────────────────────────────
	dh := a.routerCfg.DocumentHandler

	a.mux.Handle("POST /documents",
		a.requireAuth(a.requirePermission("documento", gate.ActionCreate)(http.HandlerFunc(dh.Create))))
	a.mux.Handle("GET /documents",
		a.requireAuth(a.requirePermission("documento", gate.ActionList)(http.HandlerFunc(dh.List))))
	a.mux.Handle("GET /documents/{id}",
		a.requireAuth(a.requirePermission("documento", gate.ActionView)(http.HandlerFunc(dh.Get))))
	a.mux.Handle("GET /documents/{id}/history",
		a.requireAuth(a.requirePermission("documento", gate.ActionView)(http.HandlerFunc(dh.History))))
	a.mux.Handle("GET /inbox",
		a.requireAuth(a.requirePermission("documento", gate.ActionList)(http.HandlerFunc(dh.Inbox))))
	a.mux.Handle("POST /documents/{id}/send",
		a.requireAuth(a.requirePermission("documento", gate.ActionSend)(http.HandlerFunc(dh.Send))))
	a.mux.Handle("POST /documents/{id}/receive",
		a.requireAuth(a.requirePermission("documento", gate.ActionReceive)(http.HandlerFunc(dh.Receive))))
	a.mux.Handle("POST /documents/{id}/derive",
		a.requireAuth(a.requirePermission("documento", gate.ActionDerive)(http.HandlerFunc(dh.Derive))))
	a.mux.Handle("POST /documents/{id}/observe",
		a.requireAuth(a.requirePermission("documento", gate.ActionUpdate)(http.HandlerFunc(dh.Observe))))
	a.mux.Handle("POST /documents/{id}/attend",
		a.requireAuth(a.requirePermission("documento", gate.ActionUpdate)(http.HandlerFunc(dh.Attend))))
	a.mux.Handle("POST /documents/{id}/sign",
		a.requireAuth(a.requirePermission("documento", gate.ActionUpdate)(http.HandlerFunc(dh.Sign))))
	a.mux.Handle("POST /documents/{id}/archive",
		a.requireAuth(a.requirePermission("documento", gate.ActionArchive)(http.HandlerFunc(dh.Archive))))
	a.mux.Handle("DELETE /documents/{id}",
		a.requireAuth(a.requirePermission("documento", gate.ActionDelete)(http.HandlerFunc(dh.Delete))))

	// ─────────────────────────────────────────────────────────────────────────
	// Inventory sessions (require auth + sesion permissions)
	// ─────────────────────────────────────────────────────────────────────────
	sh := a.routerCfg.SessionHandler

	a.mux.Handle("POST /sessions",
		a.requireAuth(a.requirePermission("sesion", gate.ActionCreate)(http.HandlerFunc(sh.Create))))
	a.mux.Handle("GET /sessions",
		a.requireAuth(a.requirePermission("sesion", gate.ActionList)(http.HandlerFunc(sh.List))))
	a.mux.Handle("GET /sessions/{id}",
		a.requireAuth(a.requirePermission("sesion", gate.ActionView)(http.HandlerFunc(sh.Get))))
	a.mux.Handle("POST /sessions/{id}/transition",
		a.requireAuth(a.requirePermission("sesion", gate.ActionTransition)(http.HandlerFunc(sh.Transition))))
	a.mux.Handle("POST /sessions/{id}/verifications",
		a.requireAuth(a.requirePermission("sesion", gate.ActionVerify)(http.HandlerFunc(sh.SubmitVerification))))
	a.mux.Handle("GET /sessions/{id}/entries",
		a.requireAuth(a.requirePermission("sesion", gate.ActionView)(http.HandlerFunc(sh.Entries))))
	a.mux.Handle("GET /sessions/{id}/progress",
		a.requireAuth(a.requirePermission("sesion", gate.ActionView)(http.HandlerFunc(sh.Progress))))

	// Recount is an administrative reconciliation step.
	a.mux.Handle("POST /sessions/{id}/recount",
		a.requireAuth(a.requireAdmin(http.HandlerFunc(sh.Recount))))

	// ─────────────────────────────────────────────────────────────────────────
	// Asset catalog (read-only)
	// ─────────────────────────────────────────────────────────────────────────
	bh := a.routerCfg.AssetHandler

	a.mux.Handle("GET /assets",
		a.requireAuth(a.requirePermission("bien", gate.ActionList)(http.HandlerFunc(bh.Search))))
	a.mux.Handle("GET /assets/{code}",
		a.requireAuth(a.requirePermission("bien", gate.ActionView)(http.HandlerFunc(bh.GetByCode))))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth wraps a handler to require authentication.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}

// requireAdmin wraps a handler to require the superadmin wildcard.
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequireAdmin()(next)
}

// requirePermission wraps a handler to require specific resource permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequirePermission(resourceType, action)
}
