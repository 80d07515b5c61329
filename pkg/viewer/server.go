// Package viewer serves converted frames to headset browsers on the local
// network.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Config holds the viewer settings.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Dir  string `json:"dir"`
}

// DefaultConfig serves ./output on every interface, port 8000.
func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 8000,
		Dir:  "output",
	}
}

// Validate checks the port and the served directory.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("cannot serve %s: %w", c.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot serve %s: not a directory", c.Dir)
	}
	return nil
}

// Server is a static file server for one directory.
type Server struct {
	config Config
}

// New creates a Server for cfg.
func New(cfg Config) *Server {
	return &Server{config: cfg}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Handler serves the directory with caching disabled so freshly converted
// frames show up on reload.
func (s *Server) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.config.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}

// URLs returns the addresses to open on this machine and on other devices.
func (s *Server) URLs() (local, lan string) {
	port := strconv.Itoa(s.config.Port)
	local = "http://" + net.JoinHostPort("localhost", port)
	if ip, err := LocalIP(); err == nil {
		lan = "http://" + net.JoinHostPort(ip, port)
	}
	return local, lan
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Infof(ctx, "serving %s on %s", s.config.Dir, ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("viewer stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Debugf(ctx, "shutting down viewer")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("viewer shutdown: %w", err)
	}
	return nil
}

// LocalIP returns the address of the interface used for outbound traffic.
// No packet is sent.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("could not determine IP: %w", err)
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("could not determine IP: unexpected address %v", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
