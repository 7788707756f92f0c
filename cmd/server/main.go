package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocksim/internal/auth"
	"stocksim/internal/config"
	"stocksim/internal/db"
	"stocksim/internal/handlers"
	"stocksim/internal/logger"
	"stocksim/internal/metrics"
	"stocksim/internal/quote"
	"stocksim/internal/services"
	"stocksim/internal/store"
	"stocksim/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	provider, err := newProvider(cfg)
	if err != nil {
		log.Fatal("failed to configure quotes", zap.Error(err))
	}
	provider = quote.Instrument(provider, m)

	revoker, closeRevoker := newRevoker(ctx, cfg, log)
	defer closeRevoker()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	ledger := store.NewLedgerStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	trading := services.NewTradingService(services.TradingDeps{
		TxRunner:     txRunner,
		Accounts:     accounts,
		Ledger:       ledger,
		Audit:        audit,
		Quotes:       provider,
		Hub:          hub,
		Recorder:     m,
		Logger:       log.Named("trading"),
		QuoteTimeout: cfg.Quote.Timeout,
	})
	portfolio := services.NewPortfolioService(accounts, ledger, audit, provider, log.Named("portfolio"), cfg.Quote.Timeout)

	handler := handlers.New(handlers.Deps{
		TxRunner:  txRunner,
		Config:    cfg,
		Users:     users,
		Audit:     audit,
		Trading:   trading,
		Portfolio: portfolio,
		Revoker:   revoker,
		Hub:       hub,
		Metrics:   m.Handler(),
		Requests:  m,
		Logger:    log.Named("http"),
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("stocksim listening",
			zap.String("addr", server.Addr),
			zap.String("quote_provider", cfg.Quote.Provider),
			zap.String("starting_cash", cfg.StartingCash),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}

func newProvider(cfg config.Config) (quote.Provider, error) {
	if cfg.Quote.Provider == "static" {
		return quote.ParseStatic(cfg.Quote.Static)
	}
	return quote.NewClient(cfg.Quote.BaseURL, cfg.Quote.APIKey, cfg.Quote.Timeout), nil
}

// Sessions are revoked in redis when REDIS_ADDR is set so logouts hold across replicas.
func newRevoker(ctx context.Context, cfg config.Config, log *zap.Logger) (auth.Revoker, func()) {
	if cfg.RedisAddr == "" {
		return auth.NewMemoryRevoker(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal("failed to reach redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return auth.NewRedisRevoker(client), func() { _ = client.Close() }
}
