// Package assets serves fixture files and their companion assets to the
// browser under test. One server listens on a fixed port per active
// session; starting a second on the same port is a setup error.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var contentTypes = map[string]string{
	".html": "text/html",
	".js":   "text/javascript",
	".css":  "text/css",
}

// Server serves GET requests by resolving the request path against one
// root directory.
type Server struct {
	root   string
	port   int
	logger *slog.Logger
	srv    *http.Server
}

// New creates a Server for root on the given local port.
func New(root string, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{root: root, port: port, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/*", s.serveFile)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the port and begins serving. A busy port surfaces here, not
// at first request, so suite setup fails fast on a conflict.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("assets: listen %s: %w", s.srv.Addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("assets: serve", "error", err)
		}
	}()
	s.logger.Info("assets: serving", "root", s.root, "addr", s.srv.Addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// URL returns the absolute URL for a path relative to the server root.
func (s *Server) URL(rel string) string {
	return fmt.Sprintf("http://localhost:%d/%s", s.port, strings.TrimPrefix(rel, "/"))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET")
	h.Set("Access-Control-Allow-Headers", "Content-type")

	// Collapse traversal segments before touching the filesystem. Cleaning
	// a rooted path cannot escape "/", so the join stays under root.
	rel := path.Clean("/" + r.URL.Path)
	target := filepath.Join(s.root, filepath.FromSlash(rel))

	ct, ok := contentTypes[strings.ToLower(filepath.Ext(target))]
	if !ok {
		ct = "text/plain"
	}
	h.Set("Content-Type", ct)

	data, err := os.ReadFile(target)
	if err != nil {
		// A bad path yields an empty body, never a dead server. The miss
		// surfaces downstream as a navigation or evaluation failure.
		s.logger.Debug("assets: read failed", "path", rel, "error", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("assets: write response", "path", rel, "error", err)
	}
}
