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

	"github.com/vizwave/api/internal/client"
	"github.com/vizwave/api/internal/config"
	"github.com/vizwave/api/internal/handler"
	"github.com/vizwave/api/internal/middleware"
	"github.com/vizwave/api/internal/service"
	"github.com/vizwave/api/internal/shader"
	"github.com/vizwave/api/internal/worker"
	ws "github.com/vizwave/api/internal/websocket"
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

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
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

	// Load the bundled shader catalog
	catalog, err := shader.NewCatalog()
	if err != nil {
		log.Fatalf("Failed to load shader catalog: %v", err)
	}
	log.Printf("Loaded %d background shaders", len(catalog.List()))

	// Optional object storage — nil means local files only
	var storage client.StorageClient
	if r2, err := client.NewR2Client(&cfg.Storage); err == nil {
		storage = r2
		log.Println("Object storage configured, rendered videos will be published")
	} else {
		log.Printf("Object storage disabled: %v", err)
	}

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	jobService := service.NewJobService(redisClient, asynqClient)
	uploadService, err := service.NewUploadService(&cfg.Upload)
	if err != nil {
		log.Fatalf("Failed to initialize upload service: %v", err)
	}

	// Initialize handlers
	uploadHandler := handler.NewUploadHandler(uploadService, jobService, catalog, validate, cfg.Upload.MaxAudioSize, cfg.Upload.MaxBackgroundSize)
	jobHandler := handler.NewJobHandler(jobService, storage)
	shaderHandler := handler.NewShaderHandler(catalog)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(&cfg.Auth)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(cfg.Upload.MaxAudioSize + cfg.Upload.MaxBackgroundSize),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Job flow
	app.Post("/upload",
		authMiddleware.Authenticate(),
		rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour),
		middleware.CapacityGuard(cfg),
		uploadHandler.Upload,
	)
	app.Get("/job_status/:jobId",
		authMiddleware.Authenticate(),
		rateLimiter.StatusLimit(cfg.RateLimit.StatusPerMin),
		jobHandler.Status,
	)
	app.Get("/stream/:jobId", authMiddleware.Authenticate(), jobHandler.Stream)
	app.Get("/download/:jobId", authMiddleware.Authenticate(), jobHandler.Download)
	app.Post("/cancel/:jobId", authMiddleware.Authenticate(), jobHandler.Cancel)

	// Shader gallery, independent of the job flow
	app.Get("/shader-explorer", shaderHandler.Explorer)
	app.Get("/shader-preview/:name", shaderHandler.Preview)
	app.Get("/shader-error/:name", shaderHandler.ErrorPage)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Background loops
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	janitor := worker.NewJanitor(cfg.Render.OutputDir, cfg.Upload.WorkDir, cfg.Render.KeepDays)
	go janitor.Run(workerCtx)

	// Start Asynq worker server
	go startWorkerServer(cfg, jobService, catalog, storage, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopWorkers()
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

func startWorkerServer(cfg *config.Config, jobService *service.JobService, catalog *shader.Catalog, storage client.StorageClient, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Render.Concurrency,
			Queues: map[string]int{
				"render": 10,
			},
		},
	)

	renderWorker := worker.NewRenderWorker(jobService, catalog, storage, hub, cfg)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRender, renderWorker.ProcessTask)

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
		"error": message,
		"code":  "SERVICE_ERROR",
	})
}
