package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/examvault/internal/auth"
	"github.com/org/examvault/internal/gate"
	"github.com/org/examvault/internal/objectstore"
	"github.com/org/examvault/internal/storage"
	"github.com/org/examvault/pkg/models"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	ListenAddr   string
	TLSCertFile  string
	TLSKeyFile   string
	RateLimitRPS int
	// Production enables HTTPS redirects and HSTS.
	Production bool
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxy bool
}

// AuditQuerier is what the server needs from the audit log.
type AuditQuerier interface {
	Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditRecord, error)
}

// Server is the API server.
type Server struct {
	cfg     Config
	authn   *auth.Authenticator
	gate    *gate.Gate
	files   *objectstore.Store
	auditor AuditQuerier
	httpSrv *http.Server
}

// NewServer creates a fully wired Server.
func NewServer(cfg Config, authn *auth.Authenticator, g *gate.Gate, files *objectstore.Store, auditor AuditQuerier) *Server {
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	return &Server{
		cfg:     cfg,
		authn:   authn,
		gate:    g,
		files:   files,
		auditor: auditor,
	}
}

// readerRoles may fetch objects and links.
func readerRoles() []string {
	return append(models.AdminRoles(), models.RoleTeacher, models.RoleStudent)
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	if s.cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(rateLimitMiddleware(s.cfg.RateLimitRPS))
	r.Use(secureHeaders(s.cfg.Production))

	// Prometheus metrics (unauthenticated)
	r.Handle("/metrics", MetricsHandler())

	// Public routes
	r.Get("/v1/sys/health", s.HealthHandler)

	// Everything else carries a principal when the bearer token verifies;
	// the gate on each route decides.
	r.Group(func(r chi.Router) {
		r.Use(s.authn.Middleware)

		r.With(s.gate.Require()).Post("/v1/files/{folder}", s.FileUploadHandler)
		r.With(s.gate.Require()).Delete("/v1/files/{folder}/{filename}", s.FileDeleteHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.gate.Require(readerRoles()...))
			r.Get("/v1/files/{folder}/{filename}", s.FileStreamHandler)
			r.Get("/v1/files/{folder}/{filename}/url", s.FileURLHandler)
			r.Get("/v1/files/{folder}/{filename}/signed-url", s.FileSignedURLHandler)
		})

		r.With(s.gate.Require(models.RoleMasterAdmin, models.RoleAdmin)).Get("/v1/sys/audit-log", s.AuditLogHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		s.httpSrv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
