package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"parceldesk/config"
	"parceldesk/core/auth"
	"parceldesk/core/rbac"
	"parceldesk/core/store"
	"parceldesk/core/utils"
)

type Server struct {
	cfg        *config.AppConfig
	db         *sql.DB
	router     chi.Router
	httpServer *http.Server
	logger     *utils.Logger

	users   store.UsersStore
	roles   store.RolesStore
	refresh store.RefreshTokensStore
	audits  store.AuditStore
	policy  *rbac.Policy
	authSvc *auth.Service

	loginLimiter *requestLimiter
	maintenance  *maintenanceJobs
	metrics      *authMetrics
}

func NewServer(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) *Server {
	users := store.NewUsersStore(db)
	roles := store.NewRolesStore(db)
	refresh := store.NewRefreshTokensStore(db)
	audits := store.NewAuditStore(db)
	policy := rbac.MustNewPolicy(nil)

	burst := cfg.Security.LoginBurst
	if burst <= 0 {
		burst = 5
	}
	s := &Server{
		cfg:          cfg,
		db:           db,
		router:       chi.NewRouter(),
		logger:       logger.With("api"),
		users:        users,
		roles:        roles,
		refresh:      refresh,
		audits:       audits,
		policy:       policy,
		loginLimiter: newLimiter(burst, time.Minute),
		metrics:      newAuthMetrics(),
	}
	s.authSvc = auth.NewService(cfg, users, refresh, audits, policy, logger.With("auth"))
	s.maintenance = newMaintenanceJobs(cfg, refresh, logger.With("maintenance"))

	if err := s.bootstrapRoles(context.Background()); err != nil && logger != nil {
		logger.Errorf("bootstrap roles: %v", err)
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.maintenance.Start()
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.maintenance.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.securityHeadersMiddleware)

	s.registerObservabilityRoutes()

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.jsonMiddleware)

		r.Post("/auth/login", s.rateLimitMiddleware(s.handleLogin))
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(pr chi.Router) {
			pr.Use(s.withAuth)
			pr.Get("/auth/me", s.handleMe)
			pr.Get("/app/menu", s.handleMenu)
			pr.Get("/users", s.requirePermission("users:read")(s.handleListUsers))
			pr.Post("/users", s.requirePermission("users:create")(s.handleCreateUser))
			pr.Post("/users/{id}/revoke-sessions", s.requirePermission("users:update")(s.handleRevokeSessions))
			pr.Delete("/users/{id}", s.requirePermission("users:delete")(s.handleDeleteUser))
			pr.Get("/roles", s.requirePermission("roles:read")(s.handleListRoles))
			pr.Put("/roles/{name}", s.requirePermission("roles:update")(s.handleSaveRole))
			pr.Delete("/roles/{name}", s.requirePermission("roles:delete")(s.handleDeleteRole))
			pr.Get("/audit", s.requirePermission("audit:read")(s.handleListAudit))
		})
	})
}

// bootstrapRoles seeds built-in roles and loads the stored catalogue
// into the in-memory policy.
func (s *Server) bootstrapRoles(ctx context.Context) error {
	def := rbac.DefaultRoles()
	seed := make([]store.Role, 0, len(def))
	for _, r := range def {
		perms := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			perms = append(perms, string(p))
		}
		seed = append(seed, store.Role{Name: r.Name, Permissions: perms, BuiltIn: true})
	}
	if err := s.roles.EnsureBuiltIn(ctx, seed); err != nil {
		return err
	}
	return s.refreshPolicy(ctx)
}

func (s *Server) refreshPolicy(ctx context.Context) error {
	stored, err := s.roles.List(ctx)
	if err != nil {
		return err
	}
	rbacRoles := make([]rbac.Role, 0, len(stored))
	for _, r := range stored {
		perms := make([]rbac.Permission, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			perms = append(perms, rbac.Permission(p))
		}
		rbacRoles = append(rbacRoles, rbac.Role{Name: r.Name, Permissions: perms})
	}
	return s.policy.Replace(rbacRoles)
}
