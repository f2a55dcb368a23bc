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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Zhima-Mochi/readify/internal/application/notification"
	"github.com/Zhima-Mochi/readify/internal/config"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/rabbitmq"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/scheduler"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/temporal"
	"github.com/Zhima-Mochi/readify/internal/observability"
	httppresentation "github.com/Zhima-Mochi/readify/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/readify/internal/presentation/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "readify",
		Short:        "Readify bookstore backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with its background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), envFile)
		},
	}
	root.AddCommand(serve, maintenanceCmd(&envFile))
	root.RunE = serve.RunE
	return root
}

func runServer(parent context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	log := a.log

	notification.NewWorker(a.services.Notifications, workerpresentation.Subscriber(a.bus, log, "notifications"), a.tel).Start()
	if url := cfg.Storage.RabbitMQURL; url != "" {
		relay, err := rabbitmq.Dial(url, log)
		if err != nil {
			return err
		}
		defer func() { _ = relay.Close() }()
		relay.Attach(workerpresentation.Subscriber(a.bus, log, "rabbitmq_relay"))
		log.Info("event_relay_enabled", observability.F("exchange", rabbitmq.ExchangeName))
	}
	a.bus.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.bus.Stop(stopCtx)
	}()

	if a.temporal != nil {
		w := temporal.NewWorker(a.temporal, a.services.Orders)
		if err := w.Start(); err != nil {
			return fmt.Errorf("temporal worker: %w", err)
		}
		defer w.Stop()
		log.Info("temporal_worker_started", observability.F("task_queue", temporal.TaskQueue))
	}

	jobs := scheduler.New(a.tel, 0)
	if err := jobs.Add(scheduler.JobMediaCleanup, cfg.Media.CleanupSchedule, scheduler.MediaCleanupJob(a.services.Catalog, cfg.Media.TempTTL)); err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		jobs.Stop(stopCtx)
	}()

	handler := httppresentation.NewHandler(a.services, httppresentation.Config{
		FrontendURL:   cfg.App.FrontendURL,
		RateRPS:       cfg.Rate.RPS,
		RateBurst:     cfg.Rate.Burst,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
		SecureCookies: cfg.App.Env != "dev",
		Metrics:       promhttp.Handler(),
	}, a.tel)

	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("http_server_error", observability.F("error", err.Error()))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http_server_shutdown_error", observability.F("error", err.Error()))
		return err
	}
	log.Info("http_server_stopped")
	return nil
}
