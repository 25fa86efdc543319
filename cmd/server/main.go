package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stemwave/api/internal/auth"
	"github.com/stemwave/api/internal/client"
	"github.com/stemwave/api/internal/config"
	"github.com/stemwave/api/internal/handler"
	"github.com/stemwave/api/internal/middleware"
	"github.com/stemwave/api/internal/service"
	"github.com/stemwave/api/internal/store"
	"github.com/stemwave/api/internal/worker"
	ws "github.com/stemwave/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
		redisAvailable = false
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Blob storage (R2 when configured, in-memory otherwise)
	var blobs store.BlobStore
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2, err := store.NewR2Blob(&cfg.R2)
		if err != nil {
			log.Fatalf("Failed to initialize R2 storage: %v", err)
		}
		blobs = r2
	} else {
		log.Println("Info: R2 storage not configured, using in-memory blobs")
		blobs = store.NewMemoryBlob()
	}

	// Metadata and state stores (Redis when available, in-memory otherwise)
	var signals store.SignalStore
	var states store.StateStore
	if redisAvailable {
		signals = store.NewRedisSignals(redisClient)
		states = store.NewRedisState(redisClient)
	} else {
		log.Println("Info: using in-memory signal and state stores")
		signals = store.NewMemorySignals()
		states = store.NewMemoryState()
	}

	// Separation service client (mock fallback when not configured)
	audioClient := client.NewAudioClient(&cfg.Separator)
	var prober client.Prober = audioClient
	var separator client.Separator = audioClient
	if !audioClient.IsConfigured() {
		log.Println("Info: separation service not configured, using local prober and mock separator")
		prober = client.LocalProber{}
		separator = client.NewMockSeparator(cfg.Separator.MusicStems, cfg.Separator.SpeechStems)
	}

	// Initialize Zitadel JWKS verifier (optional - falls back to legacy JWT)
	var jwksVerifier *auth.JWKSVerifier
	if cfg.Zitadel.Issuer != "" {
		var err error
		jwksVerifier, err = auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier not initialized: %v", err)
		} else {
			defer jwksVerifier.Close()
		}
	}

	// Initialize services
	enqueuer := service.NewAsynqEnqueuer(asynqClient)
	signalService := service.NewSignalService(blobs, signals, states, prober, enqueuer)
	augmentService := service.NewAugmentService(signalService)

	// Initialize handlers
	signalHandler := handler.NewSignalHandler(signalService, validate)
	augmentHandler := handler.NewAugmentHandler(augmentService, validate)

	// Initialize WebSocket hub over the state feed
	hub := ws.NewHub(signalService)

	// Initialize auth handler for ForwardAuth verification
	var tokenVerifier auth.TokenVerifier
	if jwksVerifier != nil {
		tokenVerifier = jwksVerifier
	}
	authHandler := handler.NewAuthHandler(tokenVerifier, cfg.JWT.Secret)

	// Initialize middleware (with fallback support)
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled — using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		// Direct mode: auth is handled by the backend itself
		var authMiddleware *middleware.AuthMiddleware
		if jwksVerifier != nil && cfg.JWT.Secret != "" {
			authMiddleware = middleware.NewAuthMiddlewareWithFallback(jwksVerifier, cfg.JWT.Secret)
		} else if jwksVerifier != nil {
			authMiddleware = middleware.NewAuthMiddleware(jwksVerifier)
		} else {
			authMiddleware = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
		}
		apiAuthMiddleware = authMiddleware.Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     redisAvailable,
				"r2":        cfg.R2.AccessKeyID != "",
				"separator": audioClient.IsConfigured(),
				"auth":      jwksVerifier != nil || cfg.JWT.Secret != "",
			},
		})
	})

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Signal routes. Static segments before parameterized ones.
	sig := api.Group("/signal")
	sig.Get("/", signalHandler.List)
	sig.Get("/state/:signalId", signalHandler.State)
	sig.Get("/stem/:signalId/:stem", signalHandler.DownloadStem)
	sig.Post("/copy/:signalId", rateLimiter.CopyLimit(cfg.RateLimit.CopyPerHour), signalHandler.Copy)
	sig.Patch("/rename/:signalId/:stem", signalHandler.RenameStem)
	sig.Post("/:signalType", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), signalHandler.Upload)
	sig.Patch("/:signalId/:stem", signalHandler.AttachStem)
	sig.Delete("/:signalId/:stem", signalHandler.DeleteStem)
	sig.Delete("/:signalId", signalHandler.Delete)

	// Augment routes
	augment := api.Group("/augment")
	augment.Get("/types", augmentHandler.Types)
	augment.Post("/", rateLimiter.AugmentLimit(cfg.RateLimit.AugmentPerHour), augmentHandler.Apply)

	// WebSocket routes
	app.Use("/ws", apiAuthMiddleware, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("owner", middleware.GetUserID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/signal/:signalId", websocket.New(func(c *websocket.Conn) {
		owner, _ := c.Locals("owner").(string)
		signalID := c.Params("signalId")
		hub.HandleConnection(c, owner, signalID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, signalService, separator)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, signalService *service.SignalService, separator client.Separator) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Separator.Concurrency,
			Queues: map[string]int{
				service.QueueSeparation: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	separateWorker := worker.NewSeparateWorker(signalService, separator, 2)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeSeparate, separateWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
