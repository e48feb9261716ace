package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notifyhub/lms-notify/internal/api"
	"github.com/notifyhub/lms-notify/internal/channel"
	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/config"
	"github.com/notifyhub/lms-notify/internal/db"
	"github.com/notifyhub/lms-notify/internal/dispatch"
	"github.com/notifyhub/lms-notify/internal/metrics"
	"github.com/notifyhub/lms-notify/internal/provider"
	"github.com/notifyhub/lms-notify/internal/queue"
	"github.com/notifyhub/lms-notify/internal/ratelimiter"
	"github.com/notifyhub/lms-notify/internal/repository"
	"github.com/notifyhub/lms-notify/internal/service"
	"github.com/notifyhub/lms-notify/internal/templates"
	"github.com/notifyhub/lms-notify/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	clk := clock.Real()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New()

	jobs := repository.NewPgJobRepository(pool)
	inbox := repository.NewPgInAppRepository(pool)
	users := repository.NewPgUserRepository(pool)
	audit := repository.NewPgDeliveryLogRepository(pool)
	tmpls := templates.NewCachedStore(repository.NewPgTemplateRepository(pool), cfg.TemplateCacheTTL, clk)

	// ---- transports ----
	mailer := provider.NewSendGridMailer(provider.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromName:  cfg.MailFromName,
		FromEmail: cfg.MailFromAddress,
		Host:      cfg.SendGridHost,
		Timeout:   cfg.TransportTimeout,
	})
	push := provider.NewPushGateway(cfg.PushGatewayURL, cfg.PushServerKey, cfg.TransportTimeout)
	sms := provider.NewSMSGateway(cfg.SMSGatewayURL, cfg.SMSAPIKey, cfg.TransportTimeout)

	var live provider.LivePublisher = provider.NopLivePublisher{}
	if cfg.RedisURL != "" {
		redisLive, err := provider.NewRedisLivePublisher(ctx, cfg.RedisURL, cfg.LiveEventsChannel)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisLive.Close() //nolint:errcheck
		live = redisLive
	}

	// ---- dispatch ----
	opts := channel.Options{
		Resolver: templates.NewResolver(tmpls, logger),
		Audit:    audit,
		Limiter:  ratelimiter.New(cfg.RateLimit),
		Timeout:  cfg.TransportTimeout,
		Clock:    clk,
		Logger:   logger,
	}
	dispatcher := dispatch.NewDispatcher(users, []channel.Sender{
		channel.NewInAppSender(inbox, live, cfg.OnlineWindow, opts),
		channel.NewEmailSender(mailer, opts),
		channel.NewPushSender(push, opts),
		channel.NewSMSSender(sms, cfg.SMSSignature, opts),
	}, cfg.Channels(), logger, m.DispatchHooks())

	svc := service.NewNotificationService(jobs, inbox, q, clk, cfg.MaxAttempts, logger)

	// ---- workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	exec := worker.NewExecutor(dispatcher, worker.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
	}, clk, logger)
	escalator := worker.NewEscalator(mailer, cfg.EscalationEmail, cfg.AppName, logger)

	workers := worker.NewPool(cfg.Workers, q, jobs, exec, escalator, logger, m.WorkerHooks())
	workers.Start(workerCtx)

	go worker.NewRetryWorker(jobs, q, clk, cfg.RetryInterval, logger).Run(workerCtx)
	go worker.NewRecoveryWorker(jobs, q, clk, cfg.RecoveryInterval, cfg.RecoveryAge, cfg.StaleProcessingAge, logger).Run(workerCtx)
	go m.SampleQueue(workerCtx, q, cfg.RetryInterval)

	logger.Info("workers started",
		zap.Int("workers", workers.Size()),
		zap.Bool("email", cfg.EmailEnabled),
		zap.Bool("push", cfg.PushEnabled),
		zap.Bool("sms", cfg.SMSEnabled),
		zap.Bool("live_events", cfg.RedisURL != ""),
	)

	// ---- HTTP server ----
	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.Deps{
			Service:  svc,
			Queue:    q,
			Gatherer: reg,
			DB:       pool,
			Workers:  workers.Size(),
			Logger:   logger,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the workers from taking new jobs.
	cancelWorkers()

	// 3. Let in-flight dispatches finish.
	workers.Wait()

	logger.Info("server stopped cleanly")
}

// newLogger builds a production JSON logger, or a console logger for debug.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
