package main

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rollcall-dev/rollcall/internal/api"
	"github.com/rollcall-dev/rollcall/internal/auth"
	"github.com/rollcall-dev/rollcall/internal/command"
	"github.com/rollcall-dev/rollcall/internal/config"
	"github.com/rollcall-dev/rollcall/internal/db"
	"github.com/rollcall-dev/rollcall/internal/repository"
	"github.com/rollcall-dev/rollcall/internal/service"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	cfg := config.Load()
	if cfg.TokenSecret != "" {
		auth.TokenSecretKey = cfg.TokenSecret
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	logger.Info("database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	defer rdb.Close()

	transactor := db.NewPgxTransactor(pool)

	adminRepo := repository.NewPgxAdminRepository(pool)
	teamRepo := repository.NewPgxTeamRepository(pool)
	memberRepo := repository.NewPgxMemberRepository(pool)
	attendanceRepo := repository.NewPgxAttendanceRepository(pool)

	identity := service.NewIdentityService(transactor).
		WithAdminRepo(adminRepo).
		WithTokenTTL(cfg.TokenTTL)
	registry := service.NewRegistryService(transactor).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo)
	attendance := service.NewAttendanceService(transactor).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo).
		WithAttendanceRepo(attendanceRepo)

	dispatcher := command.NewDispatcher().
		WithIdentityService(identity).
		WithRegistryService(registry).
		WithAttendanceService(attendance)

	healthChecker := api.MustNewHealthChecker(
		health.Config{
			Name:    "postgres",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				return pool.Ping(ctx)
			},
		},
		health.Config{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				return errors.Wrap(rdb.Ping(ctx).Err(), "redis ping")
			},
		},
	)

	e := echo.New()

	handler := api.NewHandler(logger).
		WithIdentityService(identity).
		WithRegistryService(registry).
		WithAttendanceService(attendance).
		WithDispatcher(dispatcher).
		WithHealthChecker(healthChecker).
		WithLoginRateLimiter(api.NewLoginRateLimiter(rdb, cfg.LoginRatePerMin))

	handler.RegisterRoutes(e)

	logger.Info("server starting", zap.String("port", cfg.HTTPPort))
	if err = e.Start(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
