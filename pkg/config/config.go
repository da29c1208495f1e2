package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultJWTSecret = "your-secret-key-change-this-in-production"

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	FrontendURL string `yaml:"frontend_url"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	Media struct {
		VideoDir        string `yaml:"video_dir"`
		ThumbnailDir    string `yaml:"thumbnail_dir"`
		MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
		FFmpegPath      string `yaml:"ffmpeg_path"`
		FFprobePath     string `yaml:"ffprobe_path"`
		ThumbnailOffset string `yaml:"thumbnail_offset"`
	} `yaml:"media"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// RateLimit bounds requests per client IP. A zero request count disables
	// that limiter. Streams get their own budget since playback issues a range
	// request per chunk.
	RateLimit struct {
		Requests       int           `yaml:"requests"`
		Window         time.Duration `yaml:"window"`
		StreamRequests int           `yaml:"stream_requests"`
		StreamWindow   time.Duration `yaml:"stream_window"`
	} `yaml:"rate_limit"`

	SentryDSN string `yaml:"sentry_dsn"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	cfg := &Config{
		Port:        "3000",
		Environment: "development",
		FrontendURL: "http://localhost:3000",
	}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "./data/cinestream.db"
	cfg.Auth.JWTSecret = DefaultJWTSecret
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Media.VideoDir = "./uploads/videos"
	cfg.Media.ThumbnailDir = "./uploads/thumbnails"
	cfg.Media.MaxUploadBytes = 1 << 30
	cfg.Media.FFmpegPath = "ffmpeg"
	cfg.Media.FFprobePath = "ffprobe"
	cfg.Media.ThumbnailOffset = "00:00:05"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.Window = 15 * time.Minute
	cfg.RateLimit.StreamRequests = 300
	cfg.RateLimit.StreamWindow = time.Minute
	return cfg
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if set),
// then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file over cfg; fields absent in the file keep their values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.Environment = getEnvOrDefault("APP_ENV", cfg.Environment)
	cfg.FrontendURL = getEnvOrDefault("FRONTEND_URL", cfg.FrontendURL)

	cfg.Database.Driver = getEnvOrDefault("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnvOrDefault("DB_DSN", cfg.Database.DSN)

	cfg.Auth.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = GetEnvDuration("JWT_TTL", cfg.Auth.TokenTTL)

	cfg.Media.VideoDir = getEnvOrDefault("VIDEO_DIR", cfg.Media.VideoDir)
	cfg.Media.ThumbnailDir = getEnvOrDefault("THUMBNAIL_DIR", cfg.Media.ThumbnailDir)
	cfg.Media.MaxUploadBytes = GetEnvInt64("MAX_UPLOAD_BYTES", cfg.Media.MaxUploadBytes)
	cfg.Media.FFmpegPath = getEnvOrDefault("FFMPEG_PATH", cfg.Media.FFmpegPath)
	cfg.Media.FFprobePath = getEnvOrDefault("FFPROBE_PATH", cfg.Media.FFprobePath)
	cfg.Media.ThumbnailOffset = getEnvOrDefault("THUMBNAIL_OFFSET", cfg.Media.ThumbnailOffset)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)

	cfg.RateLimit.Requests = GetEnvInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = GetEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)
	cfg.RateLimit.StreamRequests = GetEnvInt("STREAM_RATE_LIMIT_REQUESTS", cfg.RateLimit.StreamRequests)
	cfg.RateLimit.StreamWindow = GetEnvDuration("STREAM_RATE_LIMIT_WINDOW", cfg.RateLimit.StreamWindow)

	cfg.SentryDSN = getEnvOrDefault("SENTRY_DSN", cfg.SentryDSN)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.StreamRequests < 0 {
		return fmt.Errorf("rate limit request counts must not be negative")
	}
	if (c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0) ||
		(c.RateLimit.StreamRequests > 0 && c.RateLimit.StreamWindow <= 0) {
		return fmt.Errorf("rate limit window must be positive")
	}
	return nil
}

// UsingDefaultSecret reports whether the JWT secret was never configured.
func (c *Config) UsingDefaultSecret() bool {
	return c.Auth.JWTSecret == DefaultJWTSecret
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func GetEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func GetEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
