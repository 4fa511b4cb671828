package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajaimes/cinnamon/internal/config"
	"github.com/ajaimes/cinnamon/internal/demo"
	"github.com/ajaimes/cinnamon/pkg/cinnamon"
	"github.com/ajaimes/cinnamon/pkg/cinnamon/adapters"
	"github.com/ajaimes/cinnamon/pkg/cinnamon/sqlstore"
)

// sweepInterval is how often expired SQL sessions are deleted
const sweepInterval = time.Minute

func serveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registered handlers over HTTP",
		Long: `Mount the dispatcher on the selected web framework and serve until
interrupted. Prometheus metrics are exposed on --metrics-path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := initLogging(cfg.LogLevel); err != nil {
				return err
			}
			reg, err := opts.registry()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, reg, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
			if err != nil {
				return err
			}
			defer a.Close()

			d := opts.diagnostics(cmd)
			d.Header("serving " + strings.Join(reg.Names(), ", "))
			d.Summary("Configuration", map[string]any{
				"adapter":     a.server.Web().Name(),
				"address":     fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
				"controllers": cfg.Dispatch.ControllerPackage,
				"prefix":      cfg.Dispatch.MountPrefix,
				"sessions":    cfg.Session.Store,
				"slugs":       cfg.Dispatch.UseSlugs,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}

	addDispatchFlags(cmd.Flags())
	flags := cmd.Flags()
	flags.String("views", "views", "view template directory")
	flags.Bool("compress", false, "brotli-compress responses for clients that accept it")
	flags.String("adapter", "echo", "web framework: "+strings.Join(config.Adapters, ", "))
	flags.String("host", "", "host to bind to")
	flags.Int("port", 8080, "port to listen on")
	flags.String("metrics-path", "/metrics", "Prometheus metrics path, empty to disable")
	flags.String("session-store", "memory", "session store: "+strings.Join(config.SessionStores, ", "))
	flags.String("db-url", "", "session database URL (sqlite:// or postgres://)")

	return cmd
}

// addDispatchFlags declares the flags every command analyzing URLs needs
func addDispatchFlags(flags *pflag.FlagSet) {
	flags.String("controllers", demo.Package, "controller package prefixed to URL class names")
	flags.Bool("slugs", false, "accept hyphenated URL segments")
	flags.String("prefix", "/", "mount prefix stripped before analysis")
}

// app is a fully wired server and the resources it owns
type app struct {
	server  *cinnamon.Server
	sweeper *sqlstore.Store
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, reg *cinnamon.Registry, registerer prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	web, err := newWebServer(cfg.Server.Adapter)
	if err != nil {
		return nil, err
	}

	a := &app{}
	opts := []cinnamon.DispatcherOption{
		cinnamon.WithRegistry(reg),
		cinnamon.WithLogger(pfxlog.Logger().Entry),
		cinnamon.WithMetrics(cinnamon.NewMetrics(cinnamon.MetricsConfig{Registry: registerer})),
	}

	store, err := a.newSessionStore(ctx, cfg.Session)
	if err != nil {
		a.Close()
		return nil, err
	}
	if store != nil {
		opts = append(opts, cinnamon.WithSessionManager(cinnamon.NewSessionManager(store,
			cinnamon.WithCookieName(cfg.Dispatch.SessionCookieName),
			cinnamon.WithMaxInactive(cfg.Dispatch.SessionMaxInactive),
			cinnamon.WithSecureCookie(cfg.Session.Secure),
		)))
	}

	a.server = cinnamon.NewServer(web, cinnamon.NewDispatcher(cfg.Dispatch, opts...), &cinnamon.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            strconv.Itoa(cfg.Server.Port),
		MetricsPath:     cfg.Server.MetricsPath,
		Gatherer:        gatherer,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	return a, nil
}

func (a *app) newSessionStore(ctx context.Context, cfg config.SessionConfig) (cinnamon.SessionStore, error) {
	switch cfg.Store {
	case "none":
		return nil, nil
	case "memory":
		store := cinnamon.NewMemoryStore()
		a.closers = append(a.closers, store)
		return store, nil
	case "sql":
		db, err := sqlstore.Open(cfg.DBURL)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.New(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.sweeper = store
		a.closers = append(a.closers, store)
		return store, nil
	}
	return nil, errors.Errorf("unknown session store %q", cfg.Store)
}

// Run serves until ctx is done
func (a *app) Run(ctx context.Context) error {
	if a.sweeper != nil {
		go sweepExpired(ctx, a.sweeper, sweepInterval)
	}
	return a.server.Run(ctx)
}

// Close releases the session store
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			pfxlog.Logger().WithError(err).Warn("closing session store")
		}
	}
	a.closers = nil
}

func sweepExpired(ctx context.Context, store *sqlstore.Store, interval time.Duration) {
	log := pfxlog.Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("deleting expired sessions")
				continue
			}
			if n > 0 {
				log.Debugf("deleted %d expired sessions", n)
			}
		}
	}
}

func newWebServer(name string) (cinnamon.WebServerInterface, error) {
	switch name {
	case "echo":
		return adapters.NewDefaultEchoAdapter(), nil
	case "gin":
		return adapters.NewDefaultGinAdapter(), nil
	case "fiber":
		return adapters.NewDefaultFiberAdapter(), nil
	case "chi":
		return adapters.NewDefaultChiAdapter(), nil
	case "nethttp":
		return adapters.NewHTTPAdapter(), nil
	}
	return nil, errors.Errorf("unknown adapter %q", name)
}
