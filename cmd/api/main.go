package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"jobtrack/internal/api"
	"jobtrack/internal/auth"
	"jobtrack/internal/config"
	"jobtrack/internal/database"
	"jobtrack/internal/seed"
	"jobtrack/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	if cfg.Seed.Enabled {
		if err := seed.Run(db, logger); err != nil {
			log.Fatalf("seed shared data: %v", err)
		}
	}

	privateKeyPEM, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKeyPEM, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}

	authService, err := auth.NewAuthService(privateKeyPEM, publicKeyPEM, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
	})

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, db, authService, redisClient, logger, storageClient, cfg)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
