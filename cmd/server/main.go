package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/report"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
	"github.com/mmynk/splitledger/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}
	logger := logging.SetupWithOptions(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	roster, err := calculator.NewRoster(cfg.Roster)
	if err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "backend", cfg.DataBackend, "database", cfg.DBPath, "members", roster.Members())

	m := metrics.New()
	sinks := []ledger.Sink{ledger.LogSink{Logger: logger.With("component", "settlement")}}
	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger.With("component", "amqp"))
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
		logger.Info("Publishing settlements", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	}

	recomputer := ledger.NewRecomputer(store, roster,
		ledger.WithSinks(sinks...),
		ledger.WithMetrics(m),
		ledger.WithLogger(logger.With("component", "recompute")),
	)

	handler := newHandler(cfg, store, roster, recomputer, m, logger)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recomputer.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		return memory.New(), nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return store, nil
	}
}

// newHandler mounts the RPC services, dashboard and metrics on one mux.
func newHandler(cfg *config.Config, store storage.Store, roster *calculator.Roster, recomputer *ledger.Recomputer, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	interceptors := []connect.Interceptor{
		middleware.LoggingInterceptor(logger),
		middleware.MetricsInterceptor(m),
	}

	mux := http.NewServeMux()

	if cfg.AuthEnabled() {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
		protected := append([]string{apiconnect.AuthServiceGetCurrentUserProcedure}, apiconnect.LedgerServiceMutatingProcedures...)
		interceptors = append(interceptors, middleware.RequireAuth(jwtManager, protected...))

		authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, roster, logger)
		mux.Handle(apiconnect.NewAuthServiceHandler(authSvc, connect.WithInterceptors(interceptors...)))
		logger.Info("Authentication enabled", "token_duration", cfg.TokenDuration)
	} else {
		logger.Warn("JWT_SECRET not set, ledger changes are not authenticated")
	}

	ledgerSvc := service.NewLedgerService(store, roster, logger)
	mux.Handle(apiconnect.NewLedgerServiceHandler(ledgerSvc, connect.WithInterceptors(interceptors...)))

	format := report.Formatter{Currency: cfg.CurrencyLabel}
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/report.json", report.ReportJSONHandler(recomputer))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := recomputer.LastError(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", report.DashboardHandler(cfg.AppTitle, format, recomputer))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	return h2c.NewHandler(loggingMiddleware(logger, corsMiddleware(mux)), &http2.Server{})
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		logger.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
