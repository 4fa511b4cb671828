package cinnamon

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ServerConfig holds configuration for the Cinnamon web server
type ServerConfig struct {
	// Port is the port to listen on (default: $PORT or 8080)
	Port string

	// Host is the host to bind to (default: "")
	Host string

	// MetricsPath serves Prometheus metrics when set (default: "/metrics")
	MetricsPath string

	// Gatherer is scraped at MetricsPath (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// ShutdownTimeout is the timeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns a server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &ServerConfig{
		Port:            port,
		MetricsPath:     "/metrics",
		Gatherer:        prometheus.DefaultGatherer,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Server mounts a Dispatcher on a web framework adapter and runs it until
// shutdown
type Server struct {
	web        WebServerInterface
	dispatcher *Dispatcher
	config     *ServerConfig
	logger     logrus.FieldLogger
}

// NewServer creates a new server with the given configuration
func NewServer(web WebServerInterface, dispatcher *Dispatcher, config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		web:        web,
		dispatcher: dispatcher,
		config:     config,
		logger:     pfxlog.Logger().Entry,
	}
}

// Web returns the underlying adapter for advanced configuration
func (s *Server) Web() WebServerInterface {
	return s.web
}

// mount registers the metrics endpoint and the dispatcher
func (s *Server) mount() {
	if s.config.MetricsPath != "" {
		gatherer := s.config.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		s.web.MountHTTP(s.config.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	s.web.Mount(s.dispatcher.Config().MountPrefix, s.dispatcher.Handle)
}

// Start starts the server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run starts the server and blocks until ctx is done, then shuts down
// gracefully
func (s *Server) Run(ctx context.Context) error {
	s.mount()

	errCh := make(chan error, 1)
	go func() {
		addr := s.config.Addr()
		s.logger.Infof("starting %s server on %s", s.web.Name(), addr)
		if err := s.web.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "server failed to start")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.web.Stop(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	s.logger.Info("server shutdown complete")
	return nil
}
