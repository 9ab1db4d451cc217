package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	Port           string        `env:"PORT" env-default:"8080"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS" env-default:"*"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"5m"`

	MongoURI string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" env-default:"media_vault"`

	JWTSecret string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" env-default:"720h"`

	Minio     MinioConfig
	Watermark WatermarkConfig
	Archive   ArchiveConfig
	Admin     AdminConfig
}

// MinioConfig points the storage gateway at the bucket that holds the
// remote file tree.
type MinioConfig struct {
	Endpoint   string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey  string `env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey  string `env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	Bucket     string `env:"MINIO_BUCKET" env-default:"media-vault"`
	RootPrefix string `env:"MINIO_ROOT_PREFIX" env-default:""`
	UseSSL     bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

type WatermarkConfig struct {
	LogoPath string  `env:"WATERMARK_LOGO" env-default:"watermarks/logo.png"`
	Opacity  float64 `env:"WATERMARK_OPACITY" env-default:"0.3"`
	Quality  int     `env:"WATERMARK_QUALITY" env-default:"80"`
	FFmpeg   string  `env:"FFMPEG_PATH" env-default:"ffmpeg"`
}

type ArchiveConfig struct {
	Concurrency int   `env:"ARCHIVE_CONCURRENCY" env-default:"3"`
	SizeCeiling int64 `env:"ARCHIVE_SIZE_CEILING" env-default:"52428800"`
}

// AdminConfig carries the single admin credential pair. The password is
// stored as a bcrypt hash, never in the clear.
type AdminConfig struct {
	Email        string `env:"ADMIN_EMAIL" env-default:"admin@localhost"`
	PasswordHash string `env:"ADMIN_PASSWORD_HASH" env-default:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if cfg.Watermark.Opacity <= 0 || cfg.Watermark.Opacity > 1 {
		return nil, fmt.Errorf("watermark opacity must be in (0,1], got %v", cfg.Watermark.Opacity)
	}
	if cfg.Archive.Concurrency < 1 {
		cfg.Archive.Concurrency = 1
	}
	return &cfg, nil
}

// MustLoad is Load with panic on error, for use in main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
