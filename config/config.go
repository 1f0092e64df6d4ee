package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for qrmatch.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Blob      BlobConfig      `yaml:"blob"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Match     MatchConfig     `yaml:"match"`
	Render    RenderConfig    `yaml:"render"`
	Cache     CacheConfig     `yaml:"cache"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// StoreConfig selects the row store holding entries.
type StoreConfig struct {
	Backend string       `yaml:"backend"` // "bolt", "memory", "dynamodb"
	Path    string       `yaml:"path"`    // bolt file; relative paths resolve against the root dir
	Dynamo  DynamoConfig `yaml:"dynamodb"`
}

// DynamoConfig holds DynamoDB row store settings.
type DynamoConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // e.g. http://localhost:8000 for dynamodb-local
}

// BlobConfig selects the store holding rendered artifacts.
type BlobConfig struct {
	Backend string      `yaml:"backend"` // "bolt", "memory", "minio", "s3"
	Prefix  string      `yaml:"prefix"`
	MinIO   MinIOConfig `yaml:"minio"`
	S3      S3Config    `yaml:"s3"`
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	Secure       bool   `yaml:"secure"`
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`    // "openai", "openai-compatible", "ollama", "jina", "mock"
	Model     string        `yaml:"model"`       // e.g., "text-embedding-3-small"
	BaseURL   string        `yaml:"base_url"`    // overrides the provider default
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int           `yaml:"burst"`
}

// MatchConfig holds the acceptance policy for retrieval.
type MatchConfig struct {
	Threshold float64 `yaml:"threshold"`
	Strategy  string  `yaml:"strategy"` // "linear"
}

// RenderConfig holds QR code rendering options.
type RenderConfig struct {
	Size          int    `yaml:"size"`
	RecoveryLevel string `yaml:"recovery_level"` // "low", "medium", "high", "highest"
}

// CacheConfig controls the prompt embedding cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"ttl"`
}

// TracingConfig holds OpenTelemetry settings. An empty endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    64 << 10,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Path:    filepath.Join(".qrmatch", "qrmatch.db"),
			Dynamo: DynamoConfig{
				Table: "qrmatch-entries",
			},
		},
		Blob: BlobConfig{
			Backend: "bolt",
			Prefix:  "qrcodes/",
			MinIO: MinIOConfig{
				AccessKeyEnv: "MINIO_ACCESS_KEY",
				SecretKeyEnv: "MINIO_SECRET_KEY",
			},
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
			Timeout:   60 * time.Second,
		},
		Match: MatchConfig{
			Threshold: 0.6,
			Strategy:  "linear",
		},
		Render: RenderConfig{
			Size:          256,
			RecoveryLevel: "medium",
		},
		Cache: CacheConfig{
			Enabled: true,
			MaxSize: 256,
			TTL:     10 * time.Minute,
		},
		Tracing: TracingConfig{
			ServiceName: "qrmatch",
			Environment: "development",
			SampleRate:  1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first configuration value that cannot be served.
func (c *Config) Validate() error {
	if math.IsNaN(c.Match.Threshold) || c.Match.Threshold < -1 || c.Match.Threshold > 1 {
		return fmt.Errorf("match.threshold %.3f is outside [-1, 1]", c.Match.Threshold)
	}
	if c.Match.Strategy != "linear" {
		return fmt.Errorf("unsupported match.strategy: %s", c.Match.Strategy)
	}
	switch c.Store.Backend {
	case "bolt", "memory":
	case "dynamodb":
		if c.Store.Dynamo.Table == "" {
			return fmt.Errorf("store.dynamodb.table is required")
		}
	default:
		return fmt.Errorf("unsupported store.backend: %s", c.Store.Backend)
	}
	switch c.Blob.Backend {
	case "bolt":
		if c.Store.Backend != "bolt" {
			return fmt.Errorf("blob.backend bolt requires store.backend bolt")
		}
	case "memory":
	case "minio":
		if c.Blob.MinIO.Endpoint == "" || c.Blob.MinIO.Bucket == "" {
			return fmt.Errorf("blob.minio.endpoint and blob.minio.bucket are required")
		}
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required")
		}
	default:
		return fmt.Errorf("unsupported blob.backend: %s", c.Blob.Backend)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Render.Size <= 0 {
		return fmt.Errorf("render.size must be positive, got %d", c.Render.Size)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for qrmatch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "qrmatch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".qrmatch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the absolute path of the bolt database for dir.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureStoreDir ensures the directory holding the bolt database exists.
func (c *Config) EnsureStoreDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}
