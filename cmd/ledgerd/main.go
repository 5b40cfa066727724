package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/josh-kwaku/bank-ledger/internal/config"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/fx"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/middleware"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
	"github.com/josh-kwaku/bank-ledger/internal/repository/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("ledgerd", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	stores, uow, db, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	table, err := fx.NewTable(fx.DefaultSnapshot())
	if err != nil {
		slog.Error("failed to build rate table", "error", err)
		os.Exit(1)
	}

	var cache fx.SnapshotCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		cache = fx.NewRedisCache(rdb, fx.DefaultCacheKey, cfg.RatesCacheTTL)
	}

	var source fx.RateSource = staticSource{}
	if cfg.RatesURL != "" {
		source = fx.NewHTTPSource(cfg.RatesURL, cfg.RatesHTTPTimeout, logger)
	}
	refresher := fx.NewRefresher(table, source, cache, domain.Currency(cfg.RatesBase), cfg.RatesRefreshInterval, logger)
	refresher.Warm(ctx)
	if cfg.RatesURL != "" {
		go refresher.Start(ctx)
	}

	engine := ledger.New(stores, uow, table, ledger.Options{
		LockTimeout:  cfg.LockTimeout,
		MaxRetries:   cfg.MaxRetries,
		HomeCurrency: domain.Currency(cfg.HomeCurrency),
	})

	if !cfg.SkipAudit {
		if err := engine.Audit(ctx); err != nil {
			slog.Error("ledger audit failed", "error", err)
			os.Exit(1)
		}
		slog.Info("ledger audit passed")
	}

	health := handler.NewHealthHandler(db, table, cfg.RatesMaxAge)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	h = otelhttp.NewHandler(h, "ledgerd")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "home_currency", cfg.HomeCurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore picks postgres when DATABASE_URL is set and the in-memory store
// otherwise. The returned pinger is nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (ledger.Stores, ledger.UnitOfWork, handler.Pinger, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		store := memory.New()
		return store.Stores(), store, nil, func() {}, nil
	}

	sqlDB, err := connectDB(ctx, cfg)
	if err != nil {
		return ledger.Stores{}, nil, nil, nil, err
	}
	db := repository.NewDB(sqlDB)
	return repository.NewStores(db), repository.NewUnitOfWork(db), sqlDB, func() { sqlDB.Close() }, nil
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		if db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connectDB: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}

// staticSource stands in when no RATES_URL is configured; the table keeps
// its built-in or cached snapshot.
type staticSource struct{}

func (staticSource) Name() string { return "static" }

func (staticSource) Fetch(ctx context.Context, base domain.Currency) (fx.Snapshot, error) {
	return fx.Snapshot{}, errors.New("no rate source configured")
}
