// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	AI       AIConfig       `mapstructure:"ai"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	v *viper.Viper
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnableMetrics     bool          `mapstructure:"enable_metrics"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	ReadReplicas       []string      `mapstructure:"read_replicas"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig contains session token configuration
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTExpiration  time.Duration `mapstructure:"jwt_expiration"`
	Issuer         string        `mapstructure:"issuer"`
	AllowDevTokens bool          `mapstructure:"allow_dev_tokens"`
}

// AIConfig contains AI provider configuration
type AIConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	ChatModel          string        `mapstructure:"chat_model"`
	ImageModel         string        `mapstructure:"image_model"`
	ImageSize          string        `mapstructure:"image_size"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	Burst              int           `mapstructure:"burst"`
	ClassifierCache    string        `mapstructure:"classifier_cache"`
	ClassifierCacheTTL time.Duration `mapstructure:"classifier_cache_ttl"`
}

// StorageConfig contains image storage configuration
type StorageConfig struct {
	Provider        string        `mapstructure:"provider"`
	LocalPath       string        `mapstructure:"local_path"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	StagingDir      string        `mapstructure:"staging_dir"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	MaxImageBytes   int64         `mapstructure:"max_image_bytes"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	S3              S3Config      `mapstructure:"s3"`
}

// S3Config contains S3-compatible bucket configuration
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// PipelineConfig tunes meal creation
type PipelineConfig struct {
	StageTimeout      time.Duration `mapstructure:"stage_timeout"`
	EstimateNutrition bool          `mapstructure:"estimate_nutrition"`
}

// TracingConfig contains OTLP trace export configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Load loads configuration from an optional .env file, the config file and
// environment variables, in increasing order of precedence
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mealsync")
	}

	// Enable environment variable override
	v.SetEnvPrefix("MEALSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ai.api_key", "MEALSYNC_AI_API_KEY", "OPENAI_API_KEY")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.v = v
	return &config, nil
}

// Watch reloads the config file whenever it changes and passes each valid
// result to onChange. It reports false when no config file was loaded.
func (c *Config) Watch(logger *zap.Logger, onChange func(*Config)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(c.v)
		if err != nil {
			logger.Warn("Ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		onChange(next)
	})
	c.v.WatchConfig()
	return true
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "MealSync")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "3m") // image generation is slow
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.enable_metrics", true)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "mealsync.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "mealsync")
	v.SetDefault("database.username", "mealsync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.read_replicas", []string{})
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "200ms")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiration", "24h")
	v.SetDefault("auth.issuer", "mealsync")
	v.SetDefault("auth.allow_dev_tokens", false)

	// AI defaults
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1/")
	v.SetDefault("ai.chat_model", "gpt-4o")
	v.SetDefault("ai.image_model", "dall-e-3")
	v.SetDefault("ai.image_size", "1024x1024")
	v.SetDefault("ai.timeout", "90s")
	v.SetDefault("ai.requests_per_second", 2.0)
	v.SetDefault("ai.burst", 4)
	v.SetDefault("ai.classifier_cache", "memory")
	v.SetDefault("ai.classifier_cache_ttl", "24h")

	// Storage defaults
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_path", "./data/media")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/media")
	v.SetDefault("storage.staging_dir", "")
	v.SetDefault("storage.key_prefix", "mealImages")
	v.SetDefault("storage.max_image_bytes", 20<<20)
	v.SetDefault("storage.download_timeout", "60s")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")

	// Pipeline defaults
	v.SetDefault("pipeline.stage_timeout", "90s")
	v.SetDefault("pipeline.estimate_nutrition", false)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sampling_rate", 0.1)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	if c.Auth.AllowDevTokens && c.IsProduction() {
		return fmt.Errorf("auth.allow_dev_tokens must be off in production")
	}

	switch c.Storage.Provider {
	case "local":
		if c.Storage.PublicBaseURL == "" {
			return fmt.Errorf("storage.public_base_url is required for local storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.bucket and storage.s3.region are required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.provider must be local or s3, got %q", c.Storage.Provider)
	}

	switch c.AI.ClassifierCache {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("ai.classifier_cache must be none, memory or redis, got %q", c.AI.ClassifierCache)
	}
	if c.AI.ClassifierCache == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("ai.classifier_cache=redis requires redis.enabled")
	}

	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("pipeline.stage_timeout must be positive")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string for host
func (c *Config) GetDSN() string {
	return c.Database.DSN(c.Database.Host)
}

// DSN returns the postgres connection string against host
func (d DatabaseConfig) DSN(host string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		d.Port,
		d.Username,
		d.Password,
		d.Database,
		d.SSLMode,
	)
}

// RedisAddr returns the host:port address of the redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ServerAddr returns the listen address of the HTTP server
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
