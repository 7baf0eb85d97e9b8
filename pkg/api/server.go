// Package api binaryprefs REST API
//
// @title           binaryprefs REST API
// @version         1.0.0
// @description     REST API over a binaryprefs preference store.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/swag"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
)

const shutdownTimeout = 10 * time.Second

// Server holds the API server state
type Server struct {
	prefs   *prefs.Preferences
	config  ServerConfig
	metrics *Metrics
	logger  log.FieldLogger
}

// NewServer creates a new API server. The store should be opened with
// prefs.WithMetrics(metrics) so that reads and commits are exported too.
func NewServer(p *prefs.Preferences, config ServerConfig, metrics *Metrics, logger log.FieldLogger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		prefs:   p,
		config:  config,
		metrics: metrics,
		logger:  logger.WithField("component", "api"),
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
}

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))
		}

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Preferences
		r.Get("/prefs", s.metrics.InstrumentHandler("GET", "/api/v1/prefs", s.handleList))
		r.Get("/prefs/{key}", s.metrics.InstrumentHandler("GET", "/api/v1/prefs/{key}", s.handleGet))
		r.Put("/prefs/{key}", s.metrics.InstrumentHandler("PUT", "/api/v1/prefs/{key}", s.handlePut))
		r.Delete("/prefs/{key}", s.metrics.InstrumentHandler("DELETE", "/api/v1/prefs/{key}", s.handleDelete))

		// Snapshots
		r.Get("/export", s.metrics.InstrumentHandler("GET", "/api/v1/export", s.handleExport))
		r.Post("/import", s.metrics.InstrumentHandler("POST", "/api/v1/import", s.handleImport))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/doc.json", s.handleSwagger)

	return r
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		s.logger.WithError(err).Error("failed to generate swagger doc")
		http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	SwaggerInfo.Host = ln.Addr().String()

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.WithFields(log.Fields{
		"addr":  ln.Addr().String(),
		"store": s.prefs.Name(),
		"auth":  s.config.APIKey != "",
	}).Info("Starting binaryprefs REST API server")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down REST API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// StartServer starts the HTTP server for p and blocks until ctx is cancelled
func StartServer(ctx context.Context, p *prefs.Preferences, config ServerConfig, metrics *Metrics, logger log.FieldLogger) error {
	return NewServer(p, config, metrics, logger).ListenAndServe(ctx)
}
