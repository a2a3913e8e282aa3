package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig  ServerConfig  `json:"server"`
	AuthConfig    AuthConfig    `json:"auth"`
	StoreConfig   StoreConfig   `json:"store"`
	RedisConfig   RedisConfig   `json:"redis"`
	AIConfig      AIConfig      `json:"ai"`
	SearchConfig  SearchConfig  `json:"search"`
	MarketConfig  MarketConfig  `json:"market"`
	VaultConfig   VaultConfig   `json:"vault"`
	LoggingConfig LoggingConfig `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	ProductionMode  bool   `json:"production_mode"`
	AllowedOrigins  string `json:"allowed_origins"`
	StaticFilesPath string `json:"static_files_path"`
	ReadTimeout     int    `json:"read_timeout"`  // seconds
	WriteTimeout    int    `json:"write_timeout"` // seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// AuthConfig holds JWT validation settings. Tokens are issued by the hosted
// identity provider; this service only validates them.
type AuthConfig struct {
	Enabled   bool   `json:"enabled"`
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

// StoreConfig selects and configures the trade store backend.
// Driver "postgres" talks to the database directly; "rest" talks to the
// hosted table store's generated REST endpoint.
type StoreConfig struct {
	Driver   string         `json:"driver"` // "postgres" or "rest"
	Postgres PostgresConfig `json:"postgres"`
	REST     RESTConfig     `json:"rest"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RESTConfig struct {
	BaseURL    string `json:"base_url"`
	ServiceKey string `json:"service_key"`
	Timeout    int    `json:"timeout"` // seconds
}

// RedisConfig holds Redis configuration for conversation windows and
// market snapshot caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// AIConfig holds assistant configuration
type AIConfig struct {
	Enabled         bool    `json:"enabled"`
	APIKey          string  `json:"api_key"`
	Model           string  `json:"model"`
	VisionModel     string  `json:"vision_model"`
	BaseURL         string  `json:"base_url"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	Timeout         int     `json:"timeout"`           // seconds
	MaxRetries      int     `json:"max_retries"`       // text turns only
	CooldownMinutes int     `json:"cooldown_minutes"`  // quota backoff window
	HistoryWindow   int     `json:"history_window"`    // turns kept in the prompt
}

// SearchConfig holds web search augmentation configuration
type SearchConfig struct {
	Enabled    bool   `json:"enabled"`
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	MaxResults int    `json:"max_results"`
	Timeout    int    `json:"timeout"` // seconds
}

// MarketConfig holds market data provider configuration
type MarketConfig struct {
	CryptoURL       string `json:"crypto_url"`
	GoldURL         string `json:"gold_url"`
	SentimentURL    string `json:"sentiment_url"`
	NewsURL         string `json:"news_url"`
	Timeout         int    `json:"timeout"`          // seconds per fetch
	RefreshInterval int    `json:"refresh_interval"` // seconds between snapshot refreshes
	CacheTTL        int    `json:"cache_ttl"`        // seconds
}

// VaultConfig holds HashiCorp Vault configuration for provider secrets
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // JSON output instead of console
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", "false") == "true"
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:5173")
	cfg.ServerConfig.StaticFilesPath = getEnvOrDefault("STATIC_FILES_PATH", cfg.ServerConfig.StaticFilesPath)
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 15)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 15)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Auth config - ALWAYS apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "true") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.AuthConfig.Issuer)

	// Store config
	cfg.StoreConfig.Driver = getEnvOrDefault("STORE_DRIVER", "postgres")
	cfg.StoreConfig.Postgres.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.StoreConfig.Postgres.Port = getEnvIntOrDefault("DB_PORT", 5432)
	cfg.StoreConfig.Postgres.User = getEnvOrDefault("DB_USER", "journal")
	cfg.StoreConfig.Postgres.Password = getEnvOrDefault("DB_PASSWORD", cfg.StoreConfig.Postgres.Password)
	cfg.StoreConfig.Postgres.Database = getEnvOrDefault("DB_NAME", "journal")
	cfg.StoreConfig.Postgres.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	cfg.StoreConfig.REST.BaseURL = getEnvOrDefault("STORE_REST_URL", cfg.StoreConfig.REST.BaseURL)
	cfg.StoreConfig.REST.ServiceKey = getEnvOrDefault("STORE_REST_KEY", cfg.StoreConfig.REST.ServiceKey)
	cfg.StoreConfig.REST.Timeout = getEnvIntOrDefault("STORE_REST_TIMEOUT", 15)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", 0)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", 10)

	// AI config
	cfg.AIConfig.Enabled = getEnvOrDefault("AI_ENABLED", "true") == "true"
	cfg.AIConfig.APIKey = getEnvOrDefault("AI_API_KEY", cfg.AIConfig.APIKey)
	cfg.AIConfig.Model = getEnvOrDefault("AI_MODEL", "gemini-2.0-flash")
	cfg.AIConfig.VisionModel = getEnvOrDefault("AI_VISION_MODEL", "gemini-2.0-flash")
	cfg.AIConfig.BaseURL = getEnvOrDefault("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	cfg.AIConfig.MaxTokens = getEnvIntOrDefault("AI_MAX_TOKENS", 1024)
	cfg.AIConfig.Temperature = getEnvFloatOrDefault("AI_TEMPERATURE", 0.7)
	cfg.AIConfig.Timeout = getEnvIntOrDefault("AI_TIMEOUT", 30)
	cfg.AIConfig.MaxRetries = getEnvIntOrDefault("AI_MAX_RETRIES", 3)
	cfg.AIConfig.CooldownMinutes = getEnvIntOrDefault("AI_COOLDOWN_MINUTES", 5)
	cfg.AIConfig.HistoryWindow = getEnvIntOrDefault("AI_HISTORY_WINDOW", 20)

	// Search config
	cfg.SearchConfig.Enabled = getEnvOrDefault("SEARCH_ENABLED", "true") == "true"
	cfg.SearchConfig.APIKey = getEnvOrDefault("SEARCH_API_KEY", cfg.SearchConfig.APIKey)
	cfg.SearchConfig.BaseURL = getEnvOrDefault("SEARCH_BASE_URL", "https://google.serper.dev/search")
	cfg.SearchConfig.MaxResults = getEnvIntOrDefault("SEARCH_MAX_RESULTS", 5)
	cfg.SearchConfig.Timeout = getEnvIntOrDefault("SEARCH_TIMEOUT", 10)

	// Market data config
	cfg.MarketConfig.CryptoURL = getEnvOrDefault("MARKET_CRYPTO_URL",
		"https://api.coingecko.com/api/v3/simple/price?ids=bitcoin,ethereum&vs_currencies=usd&include_24hr_change=true")
	cfg.MarketConfig.GoldURL = getEnvOrDefault("MARKET_GOLD_URL", "https://api.gold-api.com/price/XAU")
	cfg.MarketConfig.SentimentURL = getEnvOrDefault("MARKET_SENTIMENT_URL", "https://api.alternative.me/fng/")
	cfg.MarketConfig.NewsURL = getEnvOrDefault("MARKET_NEWS_URL",
		"https://min-api.cryptocompare.com/data/v2/news/?lang=EN")
	cfg.MarketConfig.Timeout = getEnvIntOrDefault("MARKET_TIMEOUT", 10)
	cfg.MarketConfig.RefreshInterval = getEnvIntOrDefault("MARKET_REFRESH_INTERVAL", 120)
	cfg.MarketConfig.CacheTTL = getEnvIntOrDefault("MARKET_CACHE_TTL", 120)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", "http://localhost:8200")
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "trade-journal/providers")
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", "false") == "true"

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
