package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bookdigest/internal/api"
	"github.com/dgallion1/bookdigest/internal/app"
	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

func main() {
	cfg := config.Load()
	log := app.NewLogger(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runner := pipeline.NewJobRunner(a.Service, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, a.Metrics, log)
	runner.Start(ctx)

	srv := api.NewServer(api.Deps{
		Service: a.Service,
		Runner:  runner,
		Stats:   a.Stats,
		Docs:    a.Docs,
		Metrics: a.Metrics,
	}, log, cfg)

	// A synchronous digest makes one generation call per section, so the
	// write timeout has to cover the whole pipeline.
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		runner.Stop()
		a.Close()
	}()

	log.Info("starting bookdigest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
