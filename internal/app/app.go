// Package app wires the checkout pricing API server.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/checkout-pricing/internal/catalog"
	"github.com/xenking/checkout-pricing/internal/domain/pricing"
	"github.com/xenking/checkout-pricing/internal/handler"
	"github.com/xenking/checkout-pricing/internal/storage/postgres"
	"github.com/xenking/checkout-pricing/pkg/health"
	"github.com/xenking/checkout-pricing/pkg/httpmiddleware"
)

// Run loads the catalog, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	s, err := NewServer(ctx, lg, cfg, m.MeterProvider(), m.TracerProvider())
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Serve(ctx)
}

// Server is the assembled API server.
type Server struct {
	lg      *zap.Logger
	cfg     *Config
	health  *health.Health
	server  *http.Server
	closers []func()
}

// NewServer picks the catalog source from cfg, loads the catalog and builds
// the HTTP handler chain. Readiness stays false until Serve binds the
// listener.
func NewServer(ctx context.Context, lg *zap.Logger, cfg *Config, mp metric.MeterProvider, tp trace.TracerProvider) (_ *Server, rerr error) {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	s := &Server{
		lg:     lg,
		cfg:    cfg,
		health: health.New(),
	}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()
	s.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	src, err := s.source(ctx)
	if err != nil {
		return nil, err
	}

	c, err := pricing.LoadCatalog(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.Int("services", c.Len()))

	s.health.AddReadinessCheck("catalog", time.Second, func(context.Context) error {
		if c.Len() == 0 {
			return errors.New("catalog is empty")
		}
		return nil
	})

	h, err := handler.NewHandler(c, mp, tp)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", s.health.LiveEndpoint)
	mux.HandleFunc("/readyz", s.health.ReadyEndpoint)
	h.Register(mux)

	s.server = &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("checkout-api", mp, tp),
			httpmiddleware.LogRequests(),
			httpmiddleware.Recovery(),
		),
	}

	return s, nil
}

func (s *Server) source(ctx context.Context) (pricing.Source, error) {
	switch {
	case s.cfg.DatabaseURL != "":
		pool, err := postgres.NewPool(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		s.closers = append(s.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		s.health.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		s.lg.Info("Using postgres catalog")
		return postgres.NewCatalogRepository(pool), nil
	case len(s.cfg.CatalogFiles) > 0:
		s.lg.Info("Using catalog files", zap.Strings("files", s.cfg.CatalogFiles))
		return catalog.NewFileSource(s.cfg.CatalogFiles...), nil
	default:
		s.lg.Info("Using built-in catalog")
		return pricing.StaticSource(pricing.DefaultRules()), nil
	}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Serve listens on the configured address and reports ready once the
// listener is bound. When ctx is cancelled it drops readiness, waits
// ReadinessDelay and shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		s.health.SetReady(false)
		s.lg.Info("Readiness set to false, draining", zap.Duration("delay", s.cfg.Graceful.ReadinessDelay))
		time.Sleep(s.cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Graceful.ShutdownTimeout)
		defer cancel()

		s.lg.Info("Shutting down server", zap.Duration("timeout", s.cfg.Graceful.ShutdownTimeout))
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.lg.Error("Server shutdown error", zap.Error(err))
		}
	}()

	s.health.SetReady(true)
	s.lg.Info("Server listening", zap.Stringer("addr", ln.Addr()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-shutdownDone
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// Close releases resources held by the catalog source.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
