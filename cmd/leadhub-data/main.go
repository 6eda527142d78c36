package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadhub-data/internal/config"
	"leadhub-data/internal/database"
	httpapi "leadhub-data/internal/http"
	"leadhub-data/internal/repository"
	"leadhub-data/internal/service"
	"leadhub-data/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	buyersRepo := repository.NewPostgresBuyersRepository(db)
	usersRepo := repository.NewPostgresUsersRepository(db)

	var webhook *service.WebhookNotifier
	if cfg.Webhook.URL != "" {
		webhook = service.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout, logger)
		logger.Info("lead webhook enabled", zap.String("url", cfg.Webhook.URL))
	}

	buyerService := service.NewBuyerService(buyersRepo, webhook, logger)
	tagService := service.NewTagService(buyersRepo, kv, logger)
	authService := service.NewAuthService(usersRepo, kv, cfg.Auth.JWTSecret, cfg.Auth.LinkTTL, cfg.Auth.SessionTTL, logger)

	var resolver httpapi.IdentityResolver
	if cfg.Auth.Mode == "static" {
		// 非生产旁路：固定owner身份，绝不要在生产启用
		resolver = &httpapi.StaticIdentityResolver{OwnerID: cfg.Auth.StaticOwner}
		logger.Warn("static identity resolver enabled", zap.String("owner", cfg.Auth.StaticOwner))
	} else {
		resolver = httpapi.NewSessionIdentityResolver(authService)
	}

	router := httpapi.NewRouter(logger)
	router.RegisterBuyerRoutes(httpapi.NewBuyerHandler(buyerService, tagService, logger), resolver)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, logger))
	router.RegisterHealthRoutes(db)

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	_ = database.Close(db)
}
