package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/embedding"
	"github.com/tripstack/attractions-api/internal/handler"
	"github.com/tripstack/attractions-api/internal/llm"
	"github.com/tripstack/attractions-api/internal/middleware"
	"github.com/tripstack/attractions-api/internal/migrations"
	"github.com/tripstack/attractions-api/internal/places"
	"github.com/tripstack/attractions-api/internal/repository"
	"github.com/tripstack/attractions-api/internal/service"
	"github.com/tripstack/attractions-api/internal/token"
	"github.com/tripstack/attractions-api/pkg/config"
	"github.com/tripstack/attractions-api/pkg/database"
	"github.com/tripstack/attractions-api/pkg/logger"
	"github.com/tripstack/attractions-api/pkg/redis"
	"github.com/tripstack/attractions-api/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Attractions API...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Apply database migrations before the pool comes up
	if err := migrations.Run(ctx, cfg.Database.DSN()); err != nil {
		appLog.Fatal(fmt.Sprintf("Migrations failed: %v", err))
	}
	appLog.Info("Migrations applied")

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  10 * time.Second,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Redis backs the embedding cache; the API works without it
	var cache *redis.Client
	if cfg.Redis.Enabled {
		redisCfg := &redis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: time.Second,
		}
		cache, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed, embedding cache disabled: %v", err))
			cache = nil
		} else {
			defer cache.Close()
			appLog.Info("Redis connected")
		}
	}

	// Token codec
	codec, err := buildTokenCodec(cfg, appLog)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Token codec setup failed: %v", err))
	}

	// Embedding provider
	provider, err := buildEmbeddingProvider(ctx, cfg, cache)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Embedding provider setup failed: %v", err))
	}

	// Generative model
	gemini, err := llm.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Gemini client setup failed: %v", err))
	}
	defer gemini.Close()

	// Places client
	placesClient := places.NewClient(cfg.Places.APIKey, cfg.Places.BaseURL, cfg.Places.Timeout, appLog)

	// Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db.Pool())
	attractionRepo := repository.NewPostgresAttractionRepository(db.Pool())
	embeddingRepo := repository.NewPostgresEmbeddingRepository(db.Pool())

	// Initialize services
	authService := service.NewAuthService(userRepo, codec, &service.AuthServiceConfig{BcryptCost: 12}, appLog)
	searchService := service.NewSearchService(embeddingRepo, attractionRepo, provider, appLog)
	ingestService := service.NewIngestService(placesClient, attractionRepo, embeddingRepo, provider, appLog)
	plannerService := service.NewPlannerService(gemini, searchService, attractionRepo, appLog)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.IsProduction())
	attractionHandler := handler.NewAttractionHandler(attractionRepo, searchService, ingestService)
	plannerHandler := handler.NewPlannerHandler(plannerService, appLog)
	healthHandler := handler.NewHealthHandler(db, cache)

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Session(authService, middleware.SessionConfig{
		Secure:      cfg.IsProduction(),
		PublicPaths: middleware.DefaultPublicPaths(),
	}, appLog))

	// Health check endpoints
	router.GET("/", healthHandler.Health)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API routes
	auth := router.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", authHandler.Me)
	}

	attractions := router.Group("/attractions")
	{
		attractions.GET("", attractionHandler.List)
		attractions.GET("/:id", attractionHandler.Get)
		attractions.GET("/search", attractionHandler.Search)
		attractions.POST("/search", attractionHandler.Search)
		attractions.GET("/near_by", attractionHandler.Nearby)
		attractions.POST("/collect", attractionHandler.Collect)
		attractions.POST("/dedupe", attractionHandler.Dedupe)
	}

	// The nearby lookup lives at the root, matching the public surface;
	// the grouped route above is kept as an alias.
	router.GET("/near_by", attractionHandler.Nearby)
	router.GET("/itinerary", plannerHandler.Itinerary)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Attractions API listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}

// buildTokenCodec parses the configured RSA keys. Development without
// key material falls back to an ephemeral keypair, which invalidates
// sessions on every restart.
func buildTokenCodec(cfg *config.Config, appLog *zap.Logger) (*token.Codec, error) {
	tokenCfg := token.Config{
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
	}

	if cfg.JWT.PrivateKeyLatest == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT key material is required in %s", cfg.App.Environment)
		}
		appLog.Warn("JWT keys not set, using ephemeral dev keypair (sessions reset on restart)")
		key, err := token.GenerateKeypair()
		if err != nil {
			return nil, err
		}
		tokenCfg.PrivateKeyLatest = key
		tokenCfg.PublicKeyLatest = &key.PublicKey
		return token.NewCodec(tokenCfg)
	}

	priv, err := token.ParsePrivateKey([]byte(cfg.JWT.LatestPrivatePEM()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	pub, err := token.ParsePublicKey([]byte(cfg.JWT.LatestPublicPEM()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	tokenCfg.PrivateKeyLatest = priv
	tokenCfg.PublicKeyLatest = pub

	if prev := cfg.JWT.PreviousPublicPEM(); prev != "" {
		prevPub, err := token.ParsePublicKey([]byte(prev))
		if err != nil {
			return nil, fmt.Errorf("failed to parse previous public key: %w", err)
		}
		tokenCfg.PublicKeyPrevious = prevPub
	}

	return token.NewCodec(tokenCfg)
}

// buildEmbeddingProvider wires the Bedrock Titan provider, wrapped in
// the Redis cache when a cache client is available.
func buildEmbeddingProvider(ctx context.Context, cfg *config.Config, cache *redis.Client) (embedding.Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Bedrock.Region),
	}
	if cfg.Bedrock.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Bedrock.AccessKeyID, cfg.Bedrock.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bedrock := bedrockruntime.NewFromConfig(awsCfg)
	var provider embedding.Provider = embedding.NewTitanProvider(bedrock, cfg.Bedrock.ModelID, cfg.Bedrock.Dimensions, logger.Get())
	if cache != nil {
		provider = embedding.NewCachedProvider(provider, cache, 0, logger.Get())
	}
	return provider, nil
}
