package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/jasiri-lending/jasiri-sub001/internal/api"
	"github.com/jasiri-lending/jasiri-sub001/internal/config"
	"github.com/jasiri-lending/jasiri-sub001/internal/loanbook"
	"github.com/jasiri-lending/jasiri-sub001/internal/security"
	"github.com/jasiri-lending/jasiri-sub001/internal/statement"
	"github.com/jasiri-lending/jasiri-sub001/pkg/audit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	allowlist, err := security.ParseCIDRAllowlist(cfg.IPAllowlist)
	if err != nil {
		logger.Error("invalid API_IP_ALLOWLIST", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sources statement.Sources
	if cfg.UsesPostgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		sources = loanbook.NewPostgresLoanBook(pool)
	} else {
		db, err := sql.Open("sqlite3", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open sqlite database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		lb := loanbook.NewSQLiteLoanBook(db)
		if err := lb.Bootstrap(ctx); err != nil {
			logger.Error("failed to bootstrap sqlite schema", "error", err)
			os.Exit(1)
		}
		sources = lb
	}

	var rateLimiter *security.RedisTokenBucket
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		rateLimiter = &security.RedisTokenBucket{
			Redis:      redisClient,
			Prefix:     "stmt-api",
			Capacity:   cfg.RateLimitCapacity,
			RefillRate: cfg.RateLimitRefillPerSec,
		}
	}

	statements := statement.NewService(sources, statement.WithLogger(logger))
	auditor := audit.NewChainLogger()

	handler := api.NewRouter(api.Dependencies{
		Logger:       logger,
		Statements:   statements,
		Auditor:      auditor,
		RateLimiter:  rateLimiter,
		IPAllowlist:  allowlist,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info("statement api listening", "addr", cfg.ListenAddr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("statement api stopped")
}
