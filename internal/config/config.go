package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Pipeline   PipelineConfig
	Auth       AuthConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	SupabaseURL     string
	SupabaseKey     string
	IncomingBucket  string
	ProcessedBucket string
	FailedBucket    string
}

type ExtractionConfig struct {
	Provider     string // "anthropic" or "openai"
	AnthropicKey string
	OpenAIKey    string
	Model        string
	MaxTokens    int
	MockMode     bool
}

type PipelineConfig struct {
	MaxDocumentSizeMB float64
	CompletionQueue   string
}

type AuthConfig struct {
	JWTSecret string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxTokens, err := getEnvInt("EXTRACTION_MAX_TOKENS", 4096)
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACTION_MAX_TOKENS: %w", err)
	}

	maxSizeMB, err := getEnvFloat("MAX_DOCUMENT_SIZE_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DOCUMENT_SIZE_MB: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Storage: StorageConfig{
			SupabaseURL:     getEnv("SUPABASE_URL", ""),
			SupabaseKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
			IncomingBucket:  getEnv("INCOMING_BUCKET", "documents-incoming"),
			ProcessedBucket: getEnv("PROCESSED_BUCKET", "documents-processed"),
			FailedBucket:    getEnv("FAILED_BUCKET", "documents-failed"),
		},
		Extraction: ExtractionConfig{
			Provider:     getEnv("EXTRACTION_PROVIDER", "anthropic"),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:        getEnv("EXTRACTION_MODEL", "claude-3-5-sonnet-20241022"),
			MaxTokens:    maxTokens,
			MockMode:     getEnvBool("ENABLE_MOCK_EXTRACTION", false),
		},
		Pipeline: PipelineConfig{
			MaxDocumentSizeMB: maxSizeMB,
			CompletionQueue:   getEnv("COMPLETION_QUEUE", "completions"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Storage.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if !c.Extraction.MockMode {
		switch c.Extraction.Provider {
		case "anthropic":
			if c.Extraction.AnthropicKey == "" {
				missing = append(missing, "ANTHROPIC_API_KEY")
			}
		case "openai":
			if c.Extraction.OpenAIKey == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		default:
			return fmt.Errorf("unknown EXTRACTION_PROVIDER: %s", c.Extraction.Provider)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}
