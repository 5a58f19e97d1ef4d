package app

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

	"finance-auth/internal/config"
	"finance-auth/internal/database"
	"finance-auth/internal/handler"
	"finance-auth/internal/middleware"
	"finance-auth/internal/ratelimit"
	"finance-auth/internal/repository"
	"finance-auth/internal/router"
	"finance-auth/internal/service"
	"finance-auth/internal/token"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterPruneWindow = 5 * time.Minute
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool := db.Pool
	memberRepo := repository.NewMemberRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slog.Info("database ready")

	hasher := service.NewBcryptHasher(service.DefaultBcryptCost)
	if cfg.SeedAdminEmail != "" {
		if err := seedAdmin(ctx, memberRepo, hasher, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	tokenService := service.NewTokenService(codec, tokenRepo, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	limiter := ratelimit.New(cfg.RecoveryMaxAttempts, cfg.RecoveryWindow)
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(memberRepo, tokenService, codec, hasher, limiter, auditService)

	authMiddleware := middleware.NewAuthMiddleware(codec)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(authService, cfg.CookieSecure),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(db),
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	go tokenService.StartCleanupTicker(bgCtx, cfg.TokenCleanupInterval)
	go limiter.StartPruneTicker(bgCtx, limiterPruneWindow)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			bgCancel,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Connections are drained before the pool goes away.
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return runErr
}
