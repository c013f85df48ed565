package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivehive/internal/accounts"
	"trivehive/internal/audit"
	"trivehive/internal/auth"
	"trivehive/internal/calls"
	"trivehive/internal/config"
	"trivehive/internal/httpapi"
	"trivehive/internal/reporting"
	"trivehive/internal/vapi"
	"trivehive/pkg/logger"
	"trivehive/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	guard, err := vapi.NewRedisGuard(rdb, cfg.Vapi.DedupTTL)
	if err != nil {
		log.Error("dedup guard init failed", "err", err)
		os.Exit(1)
	}

	callStore := calls.NewRepository(db)
	acctStore := accounts.NewRepository(db)
	auditRepo := audit.NewRepository(db)

	handlers := httpapi.Handlers{
		Auth:     authManager,
		Calls:    callStore,
		Accounts: acctStore,
		Reports:  reporting.NewService(reporting.NewCallsRepo(db)),
		Audit:    audit.NewService(auditRepo),
		DB:       db,
	}

	webhook := &vapi.WebhookHandler{
		Calls:    callStore,
		Accounts: acctStore,
		Guard:    guard,
		Secret:   cfg.Vapi.WebhookSecret,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, webhook, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
