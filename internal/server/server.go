// Package server is the HTTP backend of the control panel: gateway proxy
// routes, session gating, the admin API and the monitoring stream.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/auth"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/gateway"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/metrics"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/monitoring"
)

// AdminStore manages roles, permissions and profiles.
type AdminStore interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, in models.RoleInput) (*models.Role, error)
	UpdateRole(ctx context.Context, id int64, in models.RoleInput) (*models.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	CreatePermission(ctx context.Context, in models.PermissionInput) (*models.Permission, error)
	DeletePermission(ctx context.Context, id int64) error
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
}

// Options wires a Server.
type Options struct {
	Gateway   *gateway.Client
	Typesense *gateway.Client

	// Gate authenticates requests. Nil disables authentication and every
	// request runs as an admin; only meant for local development.
	Gate *auth.Gate

	// Admin backs the /api/admin endpoints. Nil answers them with 503.
	Admin AdminStore

	Metrics      *metrics.Collector
	PollInterval time.Duration

	// StaticDir serves a built web UI with index.html fallback when set.
	StaticDir string

	Logger *slog.Logger
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	gateway   *gateway.Client
	typesense *gateway.Client
	gate      *auth.Gate
	admin     AdminStore
	metrics   *metrics.Collector
	interval  time.Duration
	staticDir string
	logger    *slog.Logger
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = monitoring.DefaultInterval
	}
	if opts.Gateway == nil {
		opts.Gateway = gateway.NewClient(gateway.Config{})
	}
	return &Server{
		gateway:   opts.Gateway,
		typesense: opts.Typesense,
		gate:      opts.Gate,
		admin:     opts.Admin,
		metrics:   opts.Metrics,
		interval:  opts.PollInterval,
		staticDir: opts.StaticDir,
		logger:    opts.Logger,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.logger, s.metrics))
	if s.gate != nil {
		r.Use(s.gate.Protect)
	} else {
		s.logger.Warn("authentication disabled, all requests run as admin")
		r.Use(devSession)
	}

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/me", s.handleMe)

	for _, rt := range proxyRoutes {
		r.With(auth.RequirePermission(rt.Perm)).Method(rt.Method, rt.Pattern, s.forward(rt))
	}
	r.With(auth.RequirePermission(auth.PermMonitoringRead)).
		Get("/api/typesense/health", s.handleTypesenseHealth)
	r.With(auth.RequirePermission(auth.PermMonitoringRead)).
		Get("/api/scheduler/monitoring/stream", s.handleMonitoringStream)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.RequirePermission(auth.PermAdminManage))
		s.mountAdmin(r)
	})

	r.NotFound(s.handleNotFound)
	return r
}

// devSession runs unauthenticated requests as a local admin.
func devSession(next http.Handler) http.Handler {
	session := &auth.Session{
		UserID:      "local",
		Profile:     models.Profile{ID: "local", Email: "local@localhost", RoleName: string(auth.RoleAdmin), IsActive: true},
		Role:        auth.RoleAdmin,
		Permissions: auth.RoleAdmin.Permissions(),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"gateway_configured": s.gateway.Configured(),
		"auth_enabled":       s.gate != nil,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	writeJSON(w, http.StatusOK, session.Me())
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.staticDir != "" && r.Method == http.MethodGet && !isAPIPath(r.URL.Path) {
		s.serveStatic(w, r)
		return
	}
	writeError(w, http.StatusNotFound, "Not found", r.URL.Path)
}
