package e2e

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vizwave/api/internal/config"
	"github.com/vizwave/api/internal/handler"
	"github.com/vizwave/api/internal/middleware"
	"github.com/vizwave/api/internal/service"
	"github.com/vizwave/api/internal/shader"
)

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp creates a Fiber app identical to main.go, backed by Redis on
// localhost. No worker server runs, so submitted jobs stay queued.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	t.Cleanup(func() { redisClient.Close() })

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	cfg := &config.Config{
		Auth: config.AuthConfig{Enabled: false},
		Upload: config.UploadConfig{
			MaxAudioSize:      50 * 1024 * 1024,
			MaxBackgroundSize: 10 * 1024 * 1024,
			WorkDir:           t.TempDir(),
		},
		Render: config.RenderConfig{
			OutputDir: t.TempDir(),
		},
		// Thresholds the test host cannot trip
		Capacity: config.CapacityConfig{MaxCPUPercent: 100},
		// Very high limits so tests don't get blocked
		RateLimit: config.RateLimitConfig{UploadPerHour: 100000, StatusPerMin: 100000},
	}

	validate := validator.New()

	catalog, err := shader.NewCatalog()
	if err != nil {
		t.Fatalf("failed to load shader catalog: %v", err)
	}

	jobService := service.NewJobService(redisClient, asynqClient)
	uploadService, err := service.NewUploadService(&cfg.Upload)
	if err != nil {
		t.Fatalf("failed to init upload service: %v", err)
	}

	uploadHandler := handler.NewUploadHandler(uploadService, jobService, catalog, validate, cfg.Upload.MaxAudioSize, cfg.Upload.MaxBackgroundSize)
	jobHandler := handler.NewJobHandler(jobService, nil) // nil storage → local files only
	shaderHandler := handler.NewShaderHandler(catalog)

	authMiddleware := middleware.NewAuthMiddleware(&cfg.Auth)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Upload.MaxAudioSize + cfg.Upload.MaxBackgroundSize),
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

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

	app.Get("/shader-explorer", shaderHandler.Explorer)
	app.Get("/shader-preview/:name", shaderHandler.Preview)
	app.Get("/shader-error/:name", shaderHandler.ErrorPage)

	return &testApp{app: app}
}

// writeTestWAV renders a short sine tone to a valid 16-bit PCM WAV file and
// returns its bytes.
func writeTestWAV(t *testing.T, seconds float64) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wav file: %v", err)
	}

	rate := 44100
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	n := int(seconds * float64(rate))
	data := make([]int, n)
	for i := range data {
		data[i] = int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write wav data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close wav encoder: %v", err)
	}
	f.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read wav file back: %v", err)
	}
	return raw
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", body, err)
	}
	return result
}
