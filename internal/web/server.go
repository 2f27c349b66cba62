// Package web provides the HTTP server and handlers for the document
// and device-registry UI.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cvazzz/guiadocs/internal/config"
	"github.com/cvazzz/guiadocs/internal/conflicts"
	"github.com/cvazzz/guiadocs/internal/documents"
	"github.com/cvazzz/guiadocs/internal/importer"
	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/web/middleware"
)

// Server is the HTTP server for the application.
type Server struct {
	cfg      *config.Config
	store    *documents.Store
	backend  *lduapi.Client
	workflow *conflicts.Workflow
	sessions *importer.Manager
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the application services into an HTTP router.
func NewServer(cfg *config.Config, store *documents.Store, backend *lduapi.Client, workflow *conflicts.Workflow, sessions *importer.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		workflow: workflow,
		sessions: sessions,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(60 * time.Second))

	if s.cfg.Security.EnableCSP {
		s.router.Use(securityHeaders)
	}

	limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
	s.router.Use(limiter.middleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Scanned documents
		r.Route("/documentos", func(r chi.Router) {
			r.Get("/", s.handleSearchDocuments)
			r.Get("/stats", s.handleDocumentStats)
			r.Get("/recientes", s.handleRecentDocuments)
			r.Get("/proveedores", s.handleProveedores)
			r.Get("/export", s.handleExportDocuments)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})

		// Device registry, proxied to the LDU backend
		r.Route("/ldu", func(r chi.Router) {
			r.Get("/registros", s.handleSearchRegistros)
			r.Get("/registros/{imei}", s.handleGetRegistro)
			r.Get("/registros/responsable/{dni}", s.handleRegistrosByResponsable)
			r.Get("/stats", s.handleRegistryStats)
			r.Get("/responsables", s.handleResponsables)
			r.Get("/historial-responsables/{imei}", s.handleHistorialResponsables)
			r.Post("/reasignar", s.handleReassign)
			r.Post("/reasignar-masivo", s.handleReassignBulk)
			r.Get("/importaciones", s.handleImportaciones)
			r.Get("/importaciones/{id}", s.handleGetImportacion)
			r.Get("/auditoria", s.handleAuditoria)

			// Drive spreadsheet browser
			r.Get("/excel-files", s.handleExcelFiles)
			r.Get("/excel-files/{fileID}/preview", s.handleExcelFilePreview)

			// Registry reports
			r.Get("/reportes/sin-responsable", s.handleReport(s.backend.ReportSinResponsable))
			r.Get("/reportes/pendientes-devolucion", s.handleReport(s.backend.ReportPendientesDevolucion))
			r.Get("/reportes/ausentes", s.handleReport(s.backend.ReportAusentes))
			r.Get("/reportes/danados", s.handleReport(s.backend.ReportDanados))

			// Conflict resolution
			r.Get("/conflictos", s.handleListConflicts)
			r.Get("/conflictos/resumen", s.handleConflictSummary)
			r.Post("/conflictos/{id}/resolver", s.handleResolveConflict)
			r.Post("/conflictos/resolver-todos", s.handleResolveAllConflicts)

			// Import sessions
			r.Post("/import", s.handleImportFromDrive)
			r.Route("/sesiones", func(r chi.Router) {
				r.Post("/", s.handleCreateSession)
				r.Post("/{sessionID}/archivo", s.handleSessionUpload)
				r.Post("/{sessionID}/hoja", s.handleSessionSelectSheet)
				r.Get("/{sessionID}/preview", s.handleSessionPreview)
				r.Get("/{sessionID}/mapeo", s.handleSessionMapping)
				r.Post("/{sessionID}/mapeo", s.handleSessionAssign)
				r.Post("/{sessionID}/importar", s.handleSessionRun)
				r.Post("/{sessionID}/cancelar", s.handleSessionCancel)
				r.Get("/{sessionID}/resultado", s.handleSessionResult)
				r.Delete("/{sessionID}", s.handleSessionClose)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-src https://drive.google.com")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	if rate <= 0 {
		rate = 100
	}
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			respondDetail(w, http.StatusTooManyRequests, "demasiadas solicitudes, intente en un momento")
			return
		}
		next.ServeHTTP(w, r)
	})
}
