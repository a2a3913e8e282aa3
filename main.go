package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/api"
	"trade-journal/internal/assistant"
	"trade-journal/internal/auth"
	"trade-journal/internal/cache"
	"trade-journal/internal/events"
	"trade-journal/internal/logging"
	"trade-journal/internal/market"
	"trade-journal/internal/search"
	"trade-journal/internal/store"
	"trade-journal/internal/store/postgres"
	"trade-journal/internal/store/rest"
	"trade-journal/internal/vault"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger.Info().Msg("Structured logging initialized")

	eventBus := events.NewEventBus()

	st := buildStore(cfg)
	defer st.Close()

	// Redis is optional. Everything it backs (conversation windows, market
	// snapshot cache, quota cooldowns) degrades to in-process behaviour.
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig, logging.WithComponent("cache"))
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, running without cache")
			cacheService = nil
		}
	}

	resolveProviderSecrets(cfg, logger)

	marketClient := market.NewClient(cfg.MarketConfig, logging.WithComponent("market"))
	refresher := market.NewRefresher(marketClient, cacheService, eventBus, cfg.MarketConfig, logging.WithComponent("market"))
	if err := refresher.Start(); err != nil {
		log.Fatalf("Failed to start market refresher: %v", err)
	}

	var assistantService *assistant.Service
	if cfg.AIConfig.Enabled && cfg.AIConfig.APIKey != "" {
		searchClient := search.NewClient(cfg.SearchConfig, logging.WithComponent("search"))
		aiClient := assistant.NewClient(cfg.AIConfig)
		assistantService = assistant.NewService(
			aiClient, st, cacheService, searchClient, nil,
			cfg.AIConfig, logging.WithComponent("assistant"),
		)
		logger.Info().Str("model", cfg.AIConfig.Model).Msg("Assistant initialized")
	} else {
		logger.Warn().Msg("Assistant disabled, chat and screenshot extraction unavailable")
	}

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" {
			log.Fatalf("AUTH_JWT_SECRET is required when auth is enabled")
		}
		jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.Issuer)
	} else {
		logger.Warn().Msg("Auth disabled, all requests run as the default user")
	}

	server := api.NewServer(
		cfg.ServerConfig, st, eventBus, cacheService,
		refresher, assistantService, jwtManager,
		logging.WithComponent("api"),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()
	logger.Info().
		Str("host", cfg.ServerConfig.Host).
		Int("port", cfg.ServerConfig.Port).
		Msg("Trade journal API listening")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down web server")
	}
	refresher.Stop()
	if cacheService != nil {
		cacheService.Close()
	}

	logger.Info().Msg("Shutdown complete")
}

// buildStore selects the trade store backend from configuration.
func buildStore(cfg *config.Config) store.Store {
	switch cfg.StoreConfig.Driver {
	case "postgres":
		db, err := postgres.NewDB(postgres.Config{
			Host:     cfg.StoreConfig.Postgres.Host,
			Port:     cfg.StoreConfig.Postgres.Port,
			User:     cfg.StoreConfig.Postgres.User,
			Password: cfg.StoreConfig.Postgres.Password,
			Database: cfg.StoreConfig.Postgres.Database,
			SSLMode:  cfg.StoreConfig.Postgres.SSLMode,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		return postgres.NewRepository(db)

	case "rest":
		return rest.NewClient(rest.Config{
			BaseURL:    cfg.StoreConfig.REST.BaseURL,
			ServiceKey: cfg.StoreConfig.REST.ServiceKey,
			Timeout:    time.Duration(cfg.StoreConfig.REST.Timeout) * time.Second,
		})

	default:
		log.Fatalf("Unknown store driver %q (want postgres or rest)", cfg.StoreConfig.Driver)
		return nil
	}
}

// resolveProviderSecrets fetches the AI and search API keys from Vault when
// it is enabled, falling back to whatever the environment already provided.
func resolveProviderSecrets(cfg *config.Config, logger zerolog.Logger) {
	client, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Warn().Err(err).Msg("Vault unavailable, using environment secrets")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if key, err := client.GetSecret(ctx, vault.SecretAIKey); err == nil && key != "" {
		cfg.AIConfig.APIKey = key
	} else if err != nil {
		logger.Warn().Err(err).Msg("AI API key not resolved")
	}

	if key, err := client.GetSecret(ctx, vault.SecretSearchKey); err == nil && key != "" {
		cfg.SearchConfig.APIKey = key
	} else if err != nil {
		logger.Warn().Err(err).Msg("Search API key not resolved")
	}
}
