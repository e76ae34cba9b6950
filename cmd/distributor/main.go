package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"press_distributor/internal/app"
	"press_distributor/internal/domain/destination"
	"press_distributor/internal/infra/alert"
	"press_distributor/internal/infra/config"
	idb "press_distributor/internal/infra/database"
	"press_distributor/internal/infra/httpapi"
	"press_distributor/internal/infra/logger"
	"press_distributor/internal/infra/scheduler"
	"press_distributor/internal/infra/social"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Press Distribution Service starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, DefaultDestination: %s", cfg.LogLevel, cfg.Environment, cfg.DefaultDestination)

	// The operational clock is constructed up front: a missing timezone
	// database is a fatal startup error, not a per-call failure.
	clock, err := app.NewOperationalClock(cfg.OperationalTZ)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Infof("Operational timezone resolved: %s (current hour %d)", cfg.OperationalTZ, clock.CurrentHour())

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	noteRepo := idb.NewPostgresNoteRepository(db)
	institutionRepo := idb.NewPostgresInstitutionRepository(db)
	scheduleRepo := idb.NewPostgresScheduleRepository(db)
	log.Info("Repositories initialized.")

	// Destination Registry from configuration
	dests := []destination.Destination{{
		ID:          destination.IDPrimary,
		PageID:      cfg.PrimaryPageID,
		AccessToken: cfg.PrimaryPageToken,
		MinGap:      cfg.PrimaryMinGap,
	}}
	if cfg.SecondaryPageID != "" && cfg.SecondaryPageToken != "" {
		dests = append(dests, destination.Destination{
			ID:          destination.IDSecondary,
			PageID:      cfg.SecondaryPageID,
			AccessToken: cfg.SecondaryPageToken,
			MinGap:      cfg.SecondaryMinGap,
		})
	}
	registry := destination.NewRegistry(dests...)
	log.Infof("Destination registry initialized with %d destination(s).", len(registry.All()))

	// Delivery adapter
	graphClient := social.NewGraphClient(cfg.GraphAPIBaseURL, cfg.DeliveryTimeout, logger.Get().WithField("component", "graph_client"))

	// Application services
	publishService := app.NewPublishService(
		noteRepo, institutionRepo, scheduleRepo, registry, graphClient,
		cfg.SiteURL, cfg.DeliveryTimeout,
		logger.Get().WithField("component", "publish_service"),
	)
	backfillService := app.NewBackfillService(
		noteRepo, scheduleRepo, publishService, registry,
		logger.Get().WithField("component", "backfill_service"),
	)
	sourceService := app.NewSourceService(institutionRepo, logger.Get().WithField("component", "source_service"))
	log.Info("Application services initialized.")

	// Optional operator alerting via Telegram
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier scheduler.Notifier
	var bot *telebot.Bot
	if cfg.TelegramToken != "" && cfg.AdminChatID != 0 {
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				logger.Get().WithError(err).Error("telebot handler error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			log.Fatalf("FATAL: Could not create operator alert bot: %v", err)
		}
		notifier = alert.NewTelegramNotifier(bot, cfg.AdminChatID)
		publishService.SetNotifier(notifier)
		alert.RegisterOperatorHandlers(ctx, bot, backfillService, registry, cfg.AdminChatID, logger.Get().WithField("component", "operator_bot"))
		go bot.Start()
		log.Info("Operator alert bot started.")
	} else {
		log.Warn("Operator alerting disabled (TELEGRAM_TOKEN or ADMIN_CHAT_ID unset).")
	}

	// Periodic backfill audit
	auditScheduler := scheduler.NewBackfillAuditScheduler(
		backfillService, registry, notifier,
		logger.Get().WithField("component", "backfill_audit"),
		cfg.CronSpecBackfillAudit, cfg.BackfillLookbackHours, cfg.BackfillAutoExecute,
	)
	auditScheduler.Start()

	// HTTP API
	handler := httpapi.NewHandler(
		publishService, backfillService, sourceService,
		db.PingContext,
		cfg.DefaultDestination,
		logger.Get().WithField("component", "httpapi"),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      httpapi.NewRouter(handler, cfg.TriggerSecret),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Infof("HTTP server listening on :%d", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	log.Info("Application setup complete. Distribution service is running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}
	auditScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	// db.Close() is handled by defer
	log.Info("Application shut down gracefully.")
}
