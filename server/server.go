// Package server exposes the gate over HTTP.
package server

import (
	"context"
	"image"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/controller"
	"github.com/nvr-ai/go-ppe/store"
)

// Config is the HTTP server configuration.
type Config struct {
	// Listen is the address to listen on, e.g. ":8000".
	Listen string `json:"listen" yaml:"listen"`
	// UploadDir receives every uploaded file.
	UploadDir string `json:"upload_dir" yaml:"upload_dir"`
	// MaxUploadMB caps the request body size.
	MaxUploadMB int `json:"max_upload_mb" yaml:"max_upload_mb"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Listen:      ":8000",
		UploadDir:   "uploads",
		MaxUploadMB: 100,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address is required")
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return errors.New("upload directory is required")
	}
	if c.MaxUploadMB <= 0 {
		return errors.Errorf("max upload size must be positive, got %d MB", c.MaxUploadMB)
	}
	return nil
}

// FrameSource extracts the frames of an uploaded video.
type FrameSource interface {
	Frames(path string) ([]image.Image, error)
}

// Server serves the gate API.
type Server struct {
	log        logs.Log
	config     Config
	controller *controller.Controller
	store      *store.Store
	frames     FrameSource
	router     *httprouter.Router
}

// New creates a server and its routes. frames may be nil, in which case
// video uploads receive the fallback verdict.
func New(config Config, ctrl *controller.Controller, st *store.Store, frames FrameSource, log logs.Log) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server config")
	}
	if err := os.MkdirAll(config.UploadDir, 0o770); err != nil {
		return nil, errors.Wrapf(err, "failed to create upload directory %v", config.UploadDir)
	}
	s := &Server{
		log:        log,
		config:     config,
		controller: ctrl,
		store:      st,
		frames:     frames,
	}
	s.setupHttpRoutes()
	return s, nil
}

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	handle := func(method, route string, h httprouter.Handle) {
		www.Handle(s.log, router, method, route, h)
	}

	handle("GET", "/api/ping", s.httpPing)
	handle("POST", "/api/detect", s.httpDetect)
	handle("GET", "/api/detections", s.httpListDetections)
	handle("GET", "/api/dashboard", s.httpDashboard)
	handle("GET", "/api/stats", s.httpStats)

	s.router = router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("Listening on %v", s.config.Listen)
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.log.Infof("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
