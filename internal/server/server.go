package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotLoopback is returned when the start URL does not point at a
	// loopback host.
	ErrNotLoopback = errors.New("start URL host is not a loopback address")

	// ErrRootNotDirectory is returned when the directory to serve is missing
	// or is not a directory.
	ErrRootNotDirectory = errors.New("serve root is not a directory")
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// IsLoopback reports whether rawURL is an http(s) URL whose host is
// localhost or a loopback IP address.
func IsLoopback(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Server serves a directory over HTTP on a loopback address.
type Server struct {
	root   string
	addr   string
	logger *slog.Logger

	srv      *http.Server
	listener net.Listener
	group    *errgroup.Group
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New returns a server for root listening on the host and port of
// startURL. The port defaults to 80 for http and 443 for https.
func New(root, startURL string, opts ...Option) (*Server, error) {
	if !IsLoopback(startURL) {
		return nil, fmt.Errorf("%w: %s", ErrNotLoopback, startURL)
	}
	u, _ := url.Parse(startURL)
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	s := &Server{
		root:   root,
		addr:   net.JoinHostPort(u.Hostname(), port),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start binds the address and begins serving in the background. The site is
// reachable as soon as Start returns without error.
func (s *Server) Start(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDirectory, s.root)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           staticHandler(s.root),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.group = new(errgroup.Group)
	s.group.Go(func() error {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.logger.Info("serving site", "root", s.root, "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// BaseURL returns "http://" plus the bound address.
func (s *Server) BaseURL() string {
	return "http://" + s.Addr()
}

// Stop shuts the server down gracefully, waiting for active requests until
// ctx is done. Stopping a server that was never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	if err := s.group.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	s.logger.Info("stopped serving site", "addr", s.Addr())
	return nil
}

// staticHandler serves files from root. Unlike http.FileServer alone, it
// answers /index.html directly instead of redirecting to the directory,
// since a redirect would be reported as a broken link.
func staticHandler(root string) http.Handler {
	fsys := http.Dir(root)
	files := http.FileServer(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/index.html") {
			files.ServeHTTP(w, r)
			return
		}

		f, err := fsys.Open(path.Clean(r.URL.Path))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}
