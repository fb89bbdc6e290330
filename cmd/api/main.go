package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicecrm_backend/internal/bookings"
	"voicecrm_backend/internal/calsync"
	"voicecrm_backend/internal/customers"
	customersvc "voicecrm_backend/internal/customers/service"
	"voicecrm_backend/internal/dashboard"
	"voicecrm_backend/internal/email"
	"voicecrm_backend/internal/events"
	apphttp "voicecrm_backend/internal/http"
	"voicecrm_backend/internal/http/router"
	"voicecrm_backend/internal/notifier"
	"voicecrm_backend/internal/storage"
	"voicecrm_backend/internal/voiceagent"
	"voicecrm_backend/internal/webhooks"
	"voicecrm_backend/platform/config"
	"voicecrm_backend/platform/db"
	"voicecrm_backend/platform/logger"
	"voicecrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "db/migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Outbound integrations
	dispatcher := voiceagent.NewClient(cfg, log)
	schedulerClient := calsync.NewClient(cfg, log)
	sender := email.NewSender(cfg)

	// Import archive storage is optional; without MinIO configured, imports
	// simply are not archived.
	var archiver customersvc.Archiver
	if a, err := storage.NewArchiver(cfg, log); err != nil {
		log.Warn("import archive storage disabled", "error", err.Error())
	} else if a != nil {
		archiver = a
		log.Info("import archive storage initialized", "bucket", cfg.ImportArchiveBucket)
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	customersModule := customers.NewModule(pool, dispatcher, sender, archiver, eventBus, val, log)
	bookingsModule := bookings.NewModule(pool, schedulerClient, eventBus, val, log)
	webhooksModule := webhooks.NewModule(customersModule.Service(), bookingsModule.Service(), val, log)
	dashboardModule := dashboard.NewModule(customersModule.Service(), bookingsModule.Service())

	// Notifier subscribes to the bus and fans domain events out over SSE
	notifierModule := notifier.NewModule(ctx, cfg, eventBus, log)
	defer notifierModule.Close()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			customersModule,
			bookingsModule,
			webhooksModule,
			dashboardModule,
			notifierModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// withRetry runs fn up to attempts times with linear backoff. Startup
// dependencies like the database may come up after the API container does.
func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := fn(); err != nil {
			lastErr = err
		} else {
			return nil
		}

		if attempt < attempts {
			delay := time.Duration(attempt) * baseDelay
			log.Warn("retrying "+name, "attempt", attempt, "delay", delay.String(), "error", lastErr.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
