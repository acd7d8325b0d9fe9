package main

import (
	"context"
	"log"
	"os"
	"os/signal"
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

	"github.com/clipvibe/api/internal/broadcast"
	"github.com/clipvibe/api/internal/client"
	"github.com/clipvibe/api/internal/config"
	"github.com/clipvibe/api/internal/handler"
	"github.com/clipvibe/api/internal/middleware"
	"github.com/clipvibe/api/internal/pipeline"
	"github.com/clipvibe/api/internal/queue"
	"github.com/clipvibe/api/internal/service"
	"github.com/clipvibe/api/internal/store"
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
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize MySQL store
	st, err := store.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// Initialize Asynq client and queue
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	jobQueue := queue.New(asynqClient, time.Duration(cfg.Pipeline.LeaseSeconds)*time.Second)

	// Initialize validator
	validate := validator.New()

	// Initialize progress hub
	hub := broadcast.NewHub()
	go hub.Run()

	// External service clients
	storageClient, err := client.NewS3Client(&cfg.S3)
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}
	analysisClient := client.NewAnalysisClient(&cfg.Analysis)
	advisorClient := client.NewAdvisorClient(&cfg.Advisor)
	executorClient := client.NewExecutorClient(&cfg.Executor)

	// Initialize services
	jobService := service.NewJobService(st, jobQueue)
	clipService := service.NewClipService(st, storageClient)

	// Initialize handlers
	jobHandler := handler.NewJobHandler(jobService, validate)
	clipHandler := handler.NewClipHandler(clipService, validate)
	moodHandler := handler.NewMoodHandler()

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    200 * 1024 * 1024, // clip uploads
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/moods", moodHandler.List)

	clips := api.Group("/clips")
	clips.Post("/", rateLimiter.UploadLimit(cfg.RateLimit.UploadsPerHour), clipHandler.Upload)
	clips.Get("/", clipHandler.List)
	clips.Delete("/:clipId", clipHandler.Delete)

	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.JobLimit(cfg.RateLimit.JobsPerHour), jobHandler.Create)
	jobs.Get("/:jobId", jobHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start the pipeline worker server
	orchestrator := pipeline.New(pipeline.Options{
		Store:           st,
		Analysis:        analysisClient,
		Advisor:         advisorClient,
		Executor:        executorClient,
		Publisher:       hub,
		Retry:           pipeline.NewRetryPolicy(retryDelay(cfg.Pipeline.RetryShortMs), retryDelay(cfg.Pipeline.RetryLongMs)),
		AnalysisTimeout: time.Duration(cfg.Analysis.Timeout) * time.Second,
		AdvisorTimeout:  time.Duration(cfg.Advisor.Timeout) * time.Second,
		ExecutorTimeout: time.Duration(cfg.Executor.Timeout) * time.Second,
	})
	go startWorkerServer(cfg, orchestrator)

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

func startWorkerServer(cfg *config.Config, orchestrator *pipeline.Orchestrator) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Pipeline.Concurrency,
			Queues:      queue.QueueWeights,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeGradeJob, orchestrator.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func retryDelay(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
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
