package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration for all services. It is constructed
// once at startup and passed into component constructors; nothing reads
// the environment after Load returns.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"20971520"` // 20MB in bytes

	// Store
	DBURL string `env:"DB_URL"`

	// Queue
	QueueURL string `env:"QUEUE_URL"`

	// Cache
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Generation models
	AnthropicKey  string  `env:"ANTHROPIC_API_KEY"`
	OpenAIKey     string  `env:"OPENAI_API_KEY"`
	PrimaryModel  string  `env:"PRIMARY_MODEL" envDefault:"claude-sonnet-4-20250514"`
	FallbackModel string  `env:"FALLBACK_MODEL" envDefault:"gpt-4-turbo-preview"`
	Temperature   float64 `env:"TEMPERATURE" envDefault:"0.2" validate:"gte=0,lte=1"`
	MaxTokens     int     `env:"MAX_TOKENS" envDefault:"4096" validate:"gte=512,lte=8192"`

	// Chunking
	ChunkSize        int    `env:"CHUNK_SIZE" envDefault:"1000" validate:"gte=500,lte=2000"`
	ChunkOverlap     int    `env:"CHUNK_OVERLAP" envDefault:"200" validate:"gte=50,lte=500"`
	MaxSectionChunks int    `env:"MAX_SECTION_CHUNKS" envDefault:"20" validate:"gte=5,lte=50"`
	TokenEncoding    string `env:"TOKEN_ENCODING" envDefault:"cl100k_base"`

	// Generation retry
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3" validate:"gte=1,lte=10"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	BaseDelay      time.Duration `env:"BASE_DELAY" envDefault:"1s"`
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints. It runs before
// any pipeline work; a violation here is fatal.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid configuration: chunk_overlap (%d) must be less than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.RequestTimeout < 10*time.Second || c.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("invalid configuration: request_timeout %s out of range [10s, 5m]", c.RequestTimeout)
	}
	if c.BaseDelay < 100*time.Millisecond || c.BaseDelay > 10*time.Second {
		return fmt.Errorf("invalid configuration: base_delay %s out of range [100ms, 10s]", c.BaseDelay)
	}
	return nil
}
