// The moderation-api binary serves the synchronous moderation HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/modfox/moderation-pipeline/api"
	"github.com/modfox/moderation-pipeline/cache"
	"github.com/modfox/moderation-pipeline/clients/huggingface"
	"github.com/modfox/moderation-pipeline/config"
	"github.com/modfox/moderation-pipeline/logging"
	"github.com/modfox/moderation-pipeline/moderator"
)

func main() {
	// A .env file is a local convenience, not a requirement.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.ParseLevel(cfg.API.LogLevel))

	store, err := cache.Open(cfg.Cache.DBPath)
	if err != nil {
		slog.Error("opening result cache", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	classifier := huggingface.NewClient(cfg.Classifier.APIKey)
	if cfg.Classifier.Endpoint != "" {
		classifier.SetBaseURL(cfg.Classifier.Endpoint)
	}

	svc, err := moderator.New(moderator.Config{
		Classifier:    classifier,
		Cache:         store,
		ModelVersion:  cfg.Classifier.ModelVersion,
		FlagThreshold: cfg.Classifier.FlagThreshold,
	})
	if err != nil {
		slog.Error("building moderation service", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.API.Addr,
		Handler: api.NewRouter(svc),
	}

	go func() {
		slog.Info("moderation api listening",
			"addr", cfg.API.Addr,
			"model_version", cfg.Classifier.ModelVersion,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
