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

	"github.com/yourorg/hrmslite/internal/featureflags"
	"github.com/yourorg/hrmslite/internal/handler"
	"github.com/yourorg/hrmslite/internal/infrastructure/logger"
	"github.com/yourorg/hrmslite/internal/infrastructure/redis"
	"github.com/yourorg/hrmslite/internal/observability/metrics"
	"github.com/yourorg/hrmslite/internal/observability/tracing"
	"github.com/yourorg/hrmslite/internal/reliability/circuitbreaker"
	"github.com/yourorg/hrmslite/internal/reliability/retry"
	"github.com/yourorg/hrmslite/internal/security/audit"
	"github.com/yourorg/hrmslite/internal/security/ratelimit"
	"github.com/yourorg/hrmslite/internal/service"
	"github.com/yourorg/hrmslite/pkg/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting HRMS Lite server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreDriver),
		slog.String("timezone", cfg.TimeZone.String()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	var shutdownTracing tracing.Shutdown = func(context.Context) error { return nil }
	if featureflags.Enabled(featureflags.Tracing, true) {
		shutdownTracing, err = tracing.Setup(ctx, tracing.Config{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: "hrms-lite",
			Version:     version,
			Environment: cfg.Environment,
			StoreDriver: cfg.StoreDriver,
			SampleRatio: cfg.SampleRatio,
		}, log)
		if err != nil {
			log.Error("failed to initialize tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 4. Open the store
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	checks := map[string]handler.Pinger{"store": st.check}

	// 5. Initialize services
	auditLogger := audit.NewLogger(log)
	employeeService := service.NewEmployeeService(st.employees, log, auditLogger)
	attendanceService := service.NewAttendanceService(st.attendance, st.employees, cfg.TimeZone, log, auditLogger)

	// 6. Rate limiting, shared through Redis when configured. A local limiter
	// answers while Redis is unavailable.
	var limiter ratelimit.Backend
	if featureflags.Enabled(featureflags.RateLimit, true) && cfg.RateLimit > 0 {
		memLimiter := ratelimit.NewLimiter(cfg.RateLimit, time.Minute)
		defer memLimiter.Stop()

		if cfg.RedisURL != "" {
			redisClient, err := retry.Do(ctx, retry.ConnectConfig(cfg.ConnectAttempts), log, "connect redis",
				func(ctx context.Context) (*redis.Client, error) {
					return redis.NewClient(ctx, cfg.RedisURL, log)
				})
			if err != nil {
				log.Error("failed to connect to Redis", slog.String("error", err.Error()))
				os.Exit(1)
			}
			defer redisClient.Close()
			checks["redis"] = redisClient
			breaker := circuitbreaker.New(5, 2, 30*time.Second)
			breaker.OnStateChange(func(from, to circuitbreaker.State) {
				metrics.SetBreakerState("redis_ratelimit", int(to))
				log.Warn("redis rate limiter breaker changed state",
					slog.String("from", from.String()), slog.String("to", to.String()))
			})
			limiter = ratelimit.NewFallback(
				ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit, time.Minute), memLimiter, breaker)
		} else {
			limiter = memLimiter
		}
	}

	// 7. Setup HTTP routes
	root := handler.NewRouter(handler.RouterConfig{
		Employees:          employeeService,
		Attendance:         attendanceService,
		Checks:             checks,
		Limiter:            limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,
	})

	// 8. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimit),
		slog.Bool("rate_limit_enabled", limiter != nil),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
