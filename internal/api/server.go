// Package api exposes the trading journal over HTTP: session and trade
// CRUD, analytics, market data, the assistant, exports and the websocket
// feed.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/assistant"
	"trade-journal/internal/auth"
	"trade-journal/internal/cache"
	"trade-journal/internal/events"
	"trade-journal/internal/market"
	"trade-journal/internal/store"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	store       store.Store
	eventBus    *events.EventBus
	cache       *cache.CacheService
	refresher   *market.Refresher
	assistant   *assistant.Service
	jwtManager  *auth.JWTManager
	authEnabled bool
	rateLimiter *RateLimiter
	hub         *WSHub
	config      config.ServerConfig
	logger      zerolog.Logger
}

// NewServer creates a new API server. The cache, refresher and assistant
// may be nil; their routes degrade accordingly.
func NewServer(
	cfg config.ServerConfig,
	st store.Store,
	eventBus *events.EventBus,
	cs *cache.CacheService,
	refresher *market.Refresher,
	as *assistant.Service,
	jwtManager *auth.JWTManager, // nil when auth is disabled
	logger zerolog.Logger,
) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		store:       st,
		eventBus:    eventBus,
		cache:       cs,
		refresher:   refresher,
		assistant:   as,
		jwtManager:  jwtManager,
		authEnabled: jwtManager != nil,
		rateLimiter: NewRateLimiter(120, time.Minute),
		hub:         NewWSHub(logger),
		config:      cfg,
		logger:      logger,
	}

	server.setupRoutes()

	go server.hub.Run()
	if eventBus != nil {
		eventBus.Subscribe(events.EventMarketUpdated, server.hub.BroadcastEvent)
	}

	return server
}

// rateLimitMiddleware rate limits requests by endpoint. The assistant
// routes call a paid provider, so they get a tighter dedicated limiter.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	aiLimiter := NewRateLimiter(20, time.Minute)
	aiPaths := map[string]bool{
		"/api/chat":    true,
		"/api/extract": true,
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		limiter := s.rateLimiter
		if aiPaths[path] {
			limiter = aiLimiter
		}

		if !limiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Rate limit exceeded. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		api.Use(auth.Middleware(s.jwtManager))
	}

	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handleCreateSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.PATCH("/sessions/:id/capital", s.handleUpdateSessionCapital)
	api.GET("/sessions/:id/trades", s.handleListTrades)
	api.POST("/sessions/:id/trades", s.handleAddTrade)
	api.GET("/sessions/:id/export", s.handleExportSession)

	api.PATCH("/trades/:id", s.handleUpdateTrade)
	api.DELETE("/trades/:id", s.handleDeleteTrade)

	api.GET("/analytics", s.handleAnalytics)
	api.GET("/market", s.handleMarket)

	api.POST("/chat", s.handleChat)
	api.GET("/chat/history", s.handleChatHistory)
	api.POST("/extract", s.handleExtract)

	api.POST("/import", s.handleImportSession)

	s.router.GET("/ws", s.handleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	readTimeout := time.Duration(s.config.ReadTimeout) * time.Second
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := time.Duration(s.config.WriteTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.store.HealthCheck(ctx); err != nil {
		status["status"] = "degraded"
		status["store"] = err.Error()
	}
	if s.cache != nil {
		status["cache_healthy"] = s.cache.IsHealthy()
	}
	status["ws_clients"] = s.hub.GetClientCount()

	c.JSON(http.StatusOK, status)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// defaultUserID stands in when auth is disabled (local development).
const defaultUserID = "00000000-0000-0000-0000-000000000000"

// getUserID returns the authenticated user's id
func (s *Server) getUserID(c *gin.Context) string {
	if !s.authEnabled {
		return defaultUserID
	}
	return auth.GetUserID(c)
}
