// Package main runs the Sonuby mobile backend API server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ptts/sonuby-api/internal/auth"
	"github.com/ptts/sonuby-api/internal/config"
	"github.com/ptts/sonuby-api/internal/feedback"
	"github.com/ptts/sonuby-api/internal/httputil"
	"github.com/ptts/sonuby-api/internal/logging"
	"github.com/ptts/sonuby-api/internal/offers"
	"github.com/ptts/sonuby-api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New("sonuby-api", cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	// The key set lives in Redis so rotations survive restarts and are
	// shared across instances. Without Redis (local development) an
	// in-process store is used instead.
	var keyStore auth.KeyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		keyStore = auth.NewRedisStore(rdb)
		logger.Info("using redis key store at %s", cfg.RedisAddr)
	} else {
		keyStore = auth.NewMemoryStore()
		logger.Info("REDIS_ADDR not set, using in-memory key store")
	}

	keySetCache := auth.NewKeySetCache(keyStore, httputil.NewClient(10*time.Second))
	verifier := auth.NewVerifier(cfg.FirebaseProjectID, keySetCache)

	notifier := feedback.NewNotifier(
		feedback.NewEmailSender(httputil.NewClient(15*time.Second), cfg.BrevoAPIKey),
		feedback.NewSlackClient(cfg.SlackWebhookURL),
		logger,
	)

	availableOffers, err := offers.LoadFromFile(cfg.OffersFile)
	if err != nil {
		log.Fatalf("Failed to load offers: %v", err)
	}
	logger.Info("loaded %d promotional offers", len(availableOffers))

	srv := server.New(cfg, logger, verifier, notifier, availableOffers)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening on :%s (environment %s)", cfg.Port, cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
