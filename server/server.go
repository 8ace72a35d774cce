package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"book-trends/config"
	"book-trends/models"
	"book-trends/services"
	"book-trends/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// DatasetProvider returns the record set for one render.
type DatasetProvider interface {
	Get(ctx context.Context) (*models.RecordSet, error)
}

// Snapshotter renders a page URL to PNG.
type Snapshotter interface {
	Capture(ctx context.Context, pageURL string) ([]byte, error)
}

// Server serves the dashboard, its JSON API and the exports.
type Server struct {
	cfg       *config.Config
	logger    *utils.Logger
	data      DatasetProvider
	reports   *services.ReportCache
	snapshots Snapshotter
	tmpl      *template.Template
	server    *http.Server

	mu   sync.RWMutex
	base string
}

// New wires the HTTP routes. snapshots may be nil, which disables /snapshot.png.
func New(cfg *config.Config, logger *utils.Logger, data DatasetProvider, reports *services.ReportCache, snapshots Snapshotter) (*Server, error) {
	tmpl, err := template.New("dashboard.html").ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		data:      data,
		reports:   reports,
		snapshots: snapshots,
		tmpl:      tmpl,
		base:      strings.TrimRight(cfg.SnapshotBaseURL, "/"),
	}
	if s.base == "" {
		s.base = localBaseURL(cfg.HTTPAddr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/options/{field}", s.handleOptions)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export.parquet", s.handleExportParquet)
	mux.HandleFunc("GET /snapshot.png", s.handleSnapshot)
	mux.HandleFunc("GET /{$}", s.handleDashboard)

	s.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("[server] Listening on http://%s", l.Addr())
	if s.cfg.SnapshotBaseURL == "" {
		s.mu.Lock()
		s.base = localBaseURL(l.Addr().String())
		s.mu.Unlock()
	}
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// baseURL is the address snapshots load the dashboard from.
func (s *Server) baseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// localBaseURL turns a listen address into a URL reachable from this host.
// Wildcard hosts map to the loopback address.
func localBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("[server] %s %s → %d (%v)", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Microsecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
