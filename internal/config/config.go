package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	AppName     string `env:"APP_NAME" env-default:"recycle-assistant"`
	Environment string `env:"ENV" env-default:"development"`
	Port        string `env:"PORT" env-default:"8080"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" env-default:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	LoginRateLimit     int      `env:"LOGIN_RATE_LIMIT" env-default:"10"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" env-default:"localhost"`
	DBPort      int    `env:"DB_PORT" env-default:"5432"`
	DBName      string `env:"DB_NAME" env-default:"recycle"`
	DBUser      string `env:"DB_USER" env-default:"postgres"`
	DBPassword  string `env:"DB_PASSWORD" env-default:"postgres"`

	// JWT
	SecretKey                string `env:"SECRET_KEY" env-required:"true"`
	Algorithm                string `env:"ALGORITHM" env-default:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" env-default:"30"`
	RefreshTokenExpireHours  int    `env:"REFRESH_TOKEN_EXPIRE_HOURS" env-default:"3"`
	BcryptCost               int    `env:"BCRYPT_COST" env-default:"10"`

	// Denylist rows older than this past their expiry are swept by the housekeeper.
	DenylistRetention time.Duration `env:"DENYLIST_RETENTION" env-default:"0s"`

	// Classifier
	GeminiAPIKey      string        `env:"GEMINI_API_KEY"`
	GeminiModelName   string        `env:"GEMINI_MODEL_NAME" env-default:"gemini-1.5-flash"`
	GeminiEndpoint    string        `env:"GEMINI_ENDPOINT" env-default:"https://generativelanguage.googleapis.com"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" env-default:"30s"`

	// Image storage
	StorageBackend    string `env:"STORAGE_BACKEND" env-default:"local"`
	StorageDir        string `env:"STORAGE_DIR" env-default:"storage/image/items"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// Redis (optional, recommendation cache)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Recommendations
	RecommendMinUsers        int           `env:"RECOMMEND_MIN_USERS" env-default:"3"`
	RecommendMinInteractions int           `env:"RECOMMEND_MIN_INTERACTIONS" env-default:"20"`
	RecommendTopK            int           `env:"RECOMMEND_TOP_K" env-default:"6"`
	RecommendCacheTTL        time.Duration `env:"RECOMMEND_CACHE_TTL" env-default:"5m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`
}

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY environment variable is required")
	}
	if !supportedAlgorithms[c.Algorithm] {
		return fmt.Errorf("unsupported signing algorithm %q", c.Algorithm)
	}
	if c.AccessTokenExpireMinutes <= 0 || c.RefreshTokenExpireHours <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.RecommendTopK <= 0 {
		return fmt.Errorf("RECOMMEND_TOP_K must be positive")
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

// DSN returns DATABASE_URL, or a DSN assembled from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireHours) * time.Hour
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
