// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/imgindex-server/internal/blob"
)

// ErrMissingAPIKey is returned when OPENAI_API_KEY is unset.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")

// Config holds everything the server and CLI need to wire the pipeline.
type Config struct {
	QdrantHost string
	QdrantPort int

	OpenAIKey     string
	DescribeModel string

	Blob blob.Config

	Port         string
	ServerMode   bool
	MCPStateless bool

	MaxUploadBytes int64
	PrivateTTL     time.Duration

	// StepMaxDelay caps every wait between pipeline step attempts,
	// including the retry hints returned by the index classifier.
	StepMaxDelay time.Duration

	GitHubToken string
	SeedOwner   string
	SeedRepo    string
	SeedPath    string
	SeedRef     string
}

// LoadDotEnv loads a .env file if present. It reports whether one was found.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		QdrantHost: getEnv("QDRANT_HOST", "localhost"),
		QdrantPort: getEnvInt("QDRANT_PORT", 6334),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		DescribeModel: os.Getenv("DESCRIBE_MODEL"),

		Blob: blob.Config{
			Endpoint:      getEnv("S3_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("S3_ACCESS_KEY", "minioadmin"),
			SecretKey:     getEnv("S3_SECRET_KEY", "minioadmin"),
			Bucket:        getEnv("S3_BUCKET", "images"),
			Region:        getEnv("S3_REGION", "us-east-1"),
			UseSSL:        getEnvBool("S3_USE_SSL", false),
			PublicBaseURL: os.Getenv("S3_PUBLIC_URL"),
		},

		Port:         getEnv("PORT", "8080"),
		ServerMode:   getEnvBool("SERVER_MODE", false),
		MCPStateless: getEnvBool("MCP_STATELESS", false),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		PrivateTTL:     time.Duration(getEnvInt("PRIVATE_IMAGE_TTL_HOURS", 0)) * time.Hour,
		StepMaxDelay:   time.Duration(getEnvInt("STEP_MAX_DELAY_SECONDS", 10)) * time.Second,

		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		SeedOwner:   os.Getenv("SEED_GITHUB_OWNER"),
		SeedRepo:    os.Getenv("SEED_GITHUB_REPO"),
		SeedPath:    getEnv("SEED_GITHUB_PATH", "images"),
		SeedRef:     os.Getenv("SEED_GITHUB_REF"),
	}
	cfg.Blob.MaxSize = cfg.MaxUploadBytes

	if cfg.QdrantPort <= 0 {
		return nil, fmt.Errorf("invalid QDRANT_PORT %d", cfg.QdrantPort)
	}
	if cfg.StepMaxDelay <= 0 {
		return nil, fmt.Errorf("invalid STEP_MAX_DELAY_SECONDS %q", os.Getenv("STEP_MAX_DELAY_SECONDS"))
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}

	return cfg, nil
}

// RequireOpenAI returns ErrMissingAPIKey when no OpenAI key is configured.
func (c *Config) RequireOpenAI() error {
	if c.OpenAIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
