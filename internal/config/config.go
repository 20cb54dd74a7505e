package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Upload    UploadConfig
	Render    RenderConfig
	Storage   StorageConfig
	Capacity  CapacityConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
	BaseURL  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig controls the optional bearer-token mode. When disabled the API
// is open, matching a single-tenant deployment behind a private network.
type AuthConfig struct {
	Enabled    bool
	Secret     string
	Expiration int // hours
}

type UploadConfig struct {
	MaxAudioSize      int64 // bytes
	MaxBackgroundSize int64 // bytes
	WorkDir           string
}

type RenderConfig struct {
	FFmpegBin   string
	FFmpegArgs  string // extra args, shell-style
	Concurrency int
	TimeoutSec  int
	OutputDir   string
	KeepDays    int
}

type StorageConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type CapacityConfig struct {
	MaxCPUPercent float64
	MinFreeMemMB  int64
	MinFreeDiskMB int64
}

type RateLimitConfig struct {
	UploadPerHour int
	StatusPerMin  int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("AUTH_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.base_url", "BASE_URL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	_ = viper.BindEnv("auth.secret", "AUTH_SECRET")
	_ = viper.BindEnv("auth.expiration", "AUTH_EXPIRATION")
	_ = viper.BindEnv("upload.max_audio_size", "MAX_AUDIO_SIZE")
	_ = viper.BindEnv("upload.max_background_size", "MAX_BACKGROUND_SIZE")
	_ = viper.BindEnv("upload.work_dir", "UPLOAD_WORK_DIR")
	_ = viper.BindEnv("render.ffmpeg_bin", "FFMPEG_BIN")
	_ = viper.BindEnv("render.ffmpeg_args", "FFMPEG_ARGS")
	_ = viper.BindEnv("render.concurrency", "RENDER_CONCURRENCY")
	_ = viper.BindEnv("render.timeout_sec", "RENDER_TIMEOUT")
	_ = viper.BindEnv("render.output_dir", "RENDER_OUTPUT_DIR")
	_ = viper.BindEnv("render.keep_days", "RENDER_KEEP_DAYS")
	_ = viper.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("capacity.max_cpu_percent", "CAPACITY_MAX_CPU")
	_ = viper.BindEnv("capacity.min_free_mem_mb", "CAPACITY_MIN_FREE_MEM_MB")
	_ = viper.BindEnv("capacity.min_free_disk_mb", "CAPACITY_MIN_FREE_DISK_MB")
	_ = viper.BindEnv("ratelimit.upload_per_hour", "RATELIMIT_UPLOAD_PER_HOUR")
	_ = viper.BindEnv("ratelimit.status_per_min", "RATELIMIT_STATUS_PER_MIN")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.base_url", "")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.secret", "change-me-in-production")
	viper.SetDefault("auth.expiration", 24)
	viper.SetDefault("upload.max_audio_size", 100*1024*1024)
	viper.SetDefault("upload.max_background_size", 50*1024*1024)
	viper.SetDefault("upload.work_dir", os.TempDir())
	viper.SetDefault("render.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("render.ffmpeg_args", "")
	viper.SetDefault("render.concurrency", 2)
	viper.SetDefault("render.timeout_sec", 900)
	viper.SetDefault("render.output_dir", "./renders")
	viper.SetDefault("render.keep_days", 2)
	viper.SetDefault("capacity.max_cpu_percent", 90.0)
	viper.SetDefault("capacity.min_free_mem_mb", 256)
	viper.SetDefault("capacity.min_free_disk_mb", 512)
	viper.SetDefault("ratelimit.upload_per_hour", 20)
	viper.SetDefault("ratelimit.status_per_min", 600)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
			BaseURL:  viper.GetString("server.base_url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Enabled:    viper.GetBool("auth.enabled"),
			Secret:     viper.GetString("auth.secret"),
			Expiration: viper.GetInt("auth.expiration"),
		},
		Upload: UploadConfig{
			MaxAudioSize:      viper.GetInt64("upload.max_audio_size"),
			MaxBackgroundSize: viper.GetInt64("upload.max_background_size"),
			WorkDir:           viper.GetString("upload.work_dir"),
		},
		Render: RenderConfig{
			FFmpegBin:   viper.GetString("render.ffmpeg_bin"),
			FFmpegArgs:  viper.GetString("render.ffmpeg_args"),
			Concurrency: viper.GetInt("render.concurrency"),
			TimeoutSec:  viper.GetInt("render.timeout_sec"),
			OutputDir:   viper.GetString("render.output_dir"),
			KeepDays:    viper.GetInt("render.keep_days"),
		},
		Storage: StorageConfig{
			AccountID:       viper.GetString("storage.account_id"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
		},
		Capacity: CapacityConfig{
			MaxCPUPercent: viper.GetFloat64("capacity.max_cpu_percent"),
			MinFreeMemMB:  viper.GetInt64("capacity.min_free_mem_mb"),
			MinFreeDiskMB: viper.GetInt64("capacity.min_free_disk_mb"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
			StatusPerMin:  viper.GetInt("ratelimit.status_per_min"),
		},
	}

	return cfg, nil
}
