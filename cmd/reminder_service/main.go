package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/invorium/dunning/internal/platform/config"
	"github.com/invorium/dunning/internal/platform/database"
	"github.com/invorium/dunning/internal/platform/logger"
	"github.com/invorium/dunning/internal/platform/messagebroker"
	"github.com/invorium/dunning/internal/reminder_service/adapters/notifier"
	"github.com/invorium/dunning/internal/reminder_service/app"
	"github.com/invorium/dunning/internal/reminder_service/repository/postgres"
)

const serviceName = "reminder-service"

func main() {
	mainCtx, mainCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).With("service", serviceName)
	log.Info("Starting service...")

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	var natsClient *messagebroker.NatsClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, log)
		if err != nil {
			// Events are an audit stream; the batch itself does not need NATS.
			log.Warn("NATS unavailable, dispatch events disabled", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			log.Info("NATS connection initialized")
		}
	}

	invoiceRepo := postgres.NewPgInvoiceRepository(dbPool, log)
	policyRepo := postgres.NewPgReminderPolicyRepository(dbPool, log)
	outboxRepo := postgres.NewPgOutboxRepository(dbPool, log)

	var sender notifier.Sender
	if cfg.NotifierSender == "http_email" && cfg.NotifierURL != "" {
		sender = notifier.NewHTTPEmailSender(log, cfg.NotifierURL, cfg.NotifierAPIKey, nil)
	} else {
		sender = notifier.NewMockSender(log, "mock-sender", 0)
	}
	log.Info("Notification sender configured", "sender", sender.Name())

	sweep := app.NewOverdueSweep(invoiceRepo, log)
	executor := app.NewDispatchExecutor(invoiceRepo, policyRepo, outboxRepo, sender, natsClient, log, app.DispatchConfig{
		MaxAttempts: cfg.DispatchMaxAttempts,
		BatchSize:   cfg.DispatchBatchSize,
	})

	runBatch := func(ctx context.Context) error {
		today := time.Now().UTC()

		// The sweep must be visible before eligibility runs: after-due
		// cadence depends on the overdue status.
		swept, err := sweep.MarkOverdueInvoices(ctx, today)
		if err != nil {
			return fmt.Errorf("overdue sweep failed: %w", err)
		}
		log.InfoContext(ctx, "Overdue sweep completed", "transitioned", swept.Transitioned, "skipped", swept.Skipped)

		dispatched, err := executor.ExecuteReminders(ctx, today)
		if err != nil {
			return fmt.Errorf("reminder dispatch failed: %w", err)
		}
		log.InfoContext(ctx, "Reminder dispatch completed", "sent", dispatched.Sent, "failed", dispatched.Failed)
		return nil
	}

	if cfg.RunOnce {
		if err := runBatch(mainCtx); err != nil {
			log.Error("Daily batch failed", "error", err)
			os.Exit(1)
		}
		log.Info("Daily batch finished, exiting (run-once mode)")
		return
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("Starting daily batch worker...", "interval", cfg.SweepInterval)
		if err := runBatch(groupCtx); err != nil {
			return err
		}
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := runBatch(groupCtx); err != nil {
					return err
				}
			case <-groupCtx.Done():
				log.Info("Daily batch worker stopping", "reason", groupCtx.Err())
				return groupCtx.Err()
			}
		}
	})

	opsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.OpsServerPort),
		Handler: newOpsRouter(),
	}

	g.Go(func() error {
		log.Info("Starting ops HTTP server...", "address", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("Service stopped gracefully")
}

func newOpsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
