package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/timmy/ottgen/internal/api"
	"github.com/timmy/ottgen/internal/app"
	"github.com/timmy/ottgen/internal/config"
	"github.com/timmy/ottgen/internal/logger"
)

func main() {
	appLogger := logger.New(logger.ConfigFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer a.Close()

	router := api.SetupRouter(api.RouterDeps{
		Store:      a.Store,
		Pipeline:   a.Orchestrator,
		Server:     cfg.Server,
		DailyLimit: cfg.Generation.DailyLimit,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if cfg.Server.RunScheduler {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Scheduler().Run(ctx)
		}()
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":      cfg.Server.Port,
			"mode":      cfg.Server.Mode,
			"scheduler": cfg.Server.RunScheduler,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	wg.Wait()

	appLogger.Info("Server exited")
}
