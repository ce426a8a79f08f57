package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/smartlead"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Smartlead SmartleadConfig `yaml:"smartlead"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Run       RunConfig       `yaml:"run"`
	Redis     RedisConfig     `yaml:"redis"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// SmartleadConfig holds Smartlead API configuration. The bearer token and
// API key are normally supplied through the environment.
type SmartleadConfig struct {
	GraphQLURL     string                `yaml:"graphql_url"`
	RESTBaseURL    string                `yaml:"rest_base_url"`
	BearerToken    string                `yaml:"bearer_token"`
	APIKey         string                `yaml:"api_key"`
	TimeoutSeconds int                   `yaml:"timeout_seconds"`
	BatchSize      int                   `yaml:"batch_size"`
	PageSize       int                   `yaml:"page_size"`
	Accounts       smartlead.QuerySchema `yaml:"accounts"`
	Tags           smartlead.QuerySchema `yaml:"tags"`
}

// Timeout returns the configured timeout as a duration
func (c SmartleadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ClientConfig converts the section into a client configuration.
func (c SmartleadConfig) ClientConfig() smartlead.Config {
	return smartlead.Config{
		GraphQLURL:  c.GraphQLURL,
		RESTBaseURL: c.RESTBaseURL,
		BearerToken: c.BearerToken,
		APIKey:      c.APIKey,
		Timeout:     c.Timeout(),
		PageSize:    c.PageSize,
		Accounts:    c.Accounts,
		Tags:        c.Tags,
	}
}

// IngestConfig bounds uploads
type IngestConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb"`
	PreviewRows int `yaml:"preview_rows"`
}

// MaxUploadBytes returns the upload limit in bytes
func (c IngestConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// RunConfig holds run defaults. Runs are dry unless a request asks to
// apply or DefaultApply is set.
type RunConfig struct {
	DefaultApply bool `yaml:"default_apply"`
}

// RedisConfig holds the optional Redis connection used for the apply lock.
// An empty Addr means an in-process lock.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// LockTTL returns the apply lock TTL as a duration
func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ArtifactsConfig holds S3 export upload settings
type ArtifactsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig holds logger settings. RedactPII is a pointer so an absent key
// keeps email redaction on.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// PIIRedacted reports whether emails are masked in logs. Unset means true.
func (c LogConfig) PIIRedacted() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Smartlead.GraphQLURL == "" {
		cfg.Smartlead.GraphQLURL = smartlead.DefaultGraphQLURL
	}
	if cfg.Smartlead.RESTBaseURL == "" {
		cfg.Smartlead.RESTBaseURL = smartlead.DefaultRESTBaseURL
	}
	if cfg.Smartlead.TimeoutSeconds == 0 {
		cfg.Smartlead.TimeoutSeconds = 60
	}
	if cfg.Smartlead.BatchSize == 0 {
		cfg.Smartlead.BatchSize = domain.MaxBatchSize
	}
	if cfg.Smartlead.PageSize == 0 {
		cfg.Smartlead.PageSize = smartlead.DefaultPageSize
	}
	cfg.Smartlead.Accounts = cfg.Smartlead.Accounts.WithDefaults(smartlead.DefaultAccountsSchema())
	cfg.Smartlead.Tags = cfg.Smartlead.Tags.WithDefaults(smartlead.DefaultTagsSchema())
	if cfg.Ingest.MaxUploadMB == 0 {
		cfg.Ingest.MaxUploadMB = 20
	}
	if cfg.Ingest.PreviewRows == 0 {
		cfg.Ingest.PreviewRows = 20
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 600
	}
	if cfg.Artifacts.S3Region == "" {
		cfg.Artifacts.S3Region = "us-west-2"
	}
	if cfg.Artifacts.Prefix == "" {
		cfg.Artifacts.Prefix = "tagmap"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.RedactPII == nil {
		redact := true
		cfg.Log.RedactPII = &redact
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SMARTLEAD_BEARER"); v != "" {
		cfg.Smartlead.BearerToken = v
	}
	if v := os.Getenv("SMARTLEAD_API_KEY"); v != "" {
		cfg.Smartlead.APIKey = v
	}
	if v := os.Getenv("SMARTLEAD_GRAPHQL_URL"); v != "" {
		cfg.Smartlead.GraphQLURL = v
	}
	if v := os.Getenv("SMARTLEAD_REST_URL"); v != "" {
		cfg.Smartlead.RESTBaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ARTIFACTS_S3_BUCKET"); v != "" {
		cfg.Artifacts.S3Bucket = v
		cfg.Artifacts.Enabled = true
	}
	if v := os.Getenv("ARTIFACTS_S3_REGION"); v != "" {
		cfg.Artifacts.S3Region = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	return cfg, nil
}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Smartlead.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("smartlead.timeout_seconds must not be negative"))
	}
	if c.Smartlead.BatchSize < 1 || c.Smartlead.BatchSize > domain.MaxBatchSize {
		errs = append(errs, fmt.Errorf("smartlead.batch_size must be between 1 and %d", domain.MaxBatchSize))
	}
	if c.Smartlead.PageSize < 1 || c.Smartlead.PageSize > smartlead.DefaultPageSize {
		errs = append(errs, fmt.Errorf("smartlead.page_size must be between 1 and %d", smartlead.DefaultPageSize))
	}
	if err := c.Smartlead.Accounts.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("smartlead.accounts: %w", err))
	}
	if err := c.Smartlead.Tags.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("smartlead.tags: %w", err))
	}
	if c.Ingest.MaxUploadMB < 0 {
		errs = append(errs, fmt.Errorf("ingest.max_upload_mb must not be negative"))
	}
	if c.Artifacts.Enabled && c.Artifacts.S3Bucket == "" {
		errs = append(errs, fmt.Errorf("artifacts.s3_bucket is required when artifacts are enabled"))
	}
	return errors.Join(errs...)
}
