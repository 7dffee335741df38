package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint  string `env:"AWS_ENDPOINT_URL"`

	Bucket       string        `env:"S3_BUCKET"`
	MaxSpeakers  int           `env:"MAX_SPEAKERS" envDefault:"10"`
	AudioName    string        `env:"AUDIO_NAME" envDefault:"audio.mp3"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	CleanupAudio bool          `env:"CLEANUP_AUDIO" envDefault:"true"`
	CleanupJSON  bool          `env:"CLEANUP_JSON" envDefault:"true"`

	WatchDir  string `env:"WATCH_DIR"`
	Workers   int    `env:"WORKERS" envDefault:"2"`
	QueueSize int    `env:"QUEUE_SIZE" envDefault:"16"`

	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	// Tool calls block for the full pipeline (minutes) and progress streams
	// are long-lived, so there is no write timeout by default.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile   string
	HTTPAddr  string
	LogLevel  string
	AWSRegion string
	Bucket    string
	WatchDir  string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.AWSRegion != "" {
		cfg.AWSRegion = overrides.AWSRegion
	}
	if overrides.Bucket != "" {
		cfg.Bucket = overrides.Bucket
	}
	if overrides.WatchDir != "" {
		cfg.WatchDir = overrides.WatchDir
	}

	return cfg, nil
}
