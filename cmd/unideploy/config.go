package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Staging    StagingConfig    `mapstructure:"staging"`
	DeployCode DeployCodeConfig `mapstructure:"deploy_code"`
	Provision  ProvisionConfig  `mapstructure:"provision"`
	Docker     DockerConfig     `mapstructure:"docker"`
	Deployer   DeployerConfig   `mapstructure:"deployer"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds the saga journal database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig holds the deploy-code store configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StagingConfig holds upload staging configuration.
type StagingConfig struct {
	Dir            string `mapstructure:"dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// DeployCodeConfig holds deploy-code issuing configuration.
type DeployCodeConfig struct {
	// Store selects the backing store: "redis" (default) or "memory".
	// The memory store is single-process only.
	Store     string        `mapstructure:"store"`
	TTL       time.Duration `mapstructure:"ttl"`
	SingleUse bool          `mapstructure:"single_use"`
}

// ProvisionConfig holds collaborator endpoint configuration.
type ProvisionConfig struct {
	// Mode selects the compute backend: "http" (default) talks to the
	// external Compute Provisioner, "docker" runs projects as local
	// containers for development.
	Mode         string        `mapstructure:"mode"`
	ComputeURL   string        `mapstructure:"compute_url"`
	NetworkURL   string        `mapstructure:"network_url"`
	DirectoryURL string        `mapstructure:"directory_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DockerConfig holds local Docker configuration for dev-mode provisioning.
type DockerConfig struct {
	Host  string `mapstructure:"host"`
	Image string `mapstructure:"image"`
}

// DeployerConfig holds Source Deployer trigger configuration.
type DeployerConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	DeliverTimeout time.Duration `mapstructure:"deliver_timeout"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.dsn", "./data/unideploy.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("staging.dir", "./data/uploads")
	v.SetDefault("staging.max_upload_bytes", 256<<20)
	v.SetDefault("deploy_code.store", "redis")
	v.SetDefault("deploy_code.ttl", "900s")
	v.SetDefault("deploy_code.single_use", false)
	v.SetDefault("provision.mode", "http")
	v.SetDefault("provision.compute_url", "http://localhost:8081")
	v.SetDefault("provision.network_url", "http://localhost:8082")
	v.SetDefault("provision.directory_url", "http://localhost:8082")
	v.SetDefault("provision.api_key", "")
	v.SetDefault("provision.timeout", "30s")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.image", "alpine:3.20")
	v.SetDefault("deployer.url", "http://localhost:8083")
	v.SetDefault("deployer.api_key", "")
	v.SetDefault("deployer.timeout", "30s")
	v.SetDefault("deployer.queue_size", 64)
	v.SetDefault("deployer.deliver_timeout", "30s")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("UNIDEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DeployCode.Store {
	case "redis", "memory":
	default:
		return fmt.Errorf("deploy_code.store must be \"redis\" or \"memory\", got %q", c.DeployCode.Store)
	}
	switch c.Provision.Mode {
	case "http", "docker":
	default:
		return fmt.Errorf("provision.mode must be \"http\" or \"docker\", got %q", c.Provision.Mode)
	}
	if c.DeployCode.TTL <= 0 {
		return fmt.Errorf("deploy_code.ttl must be positive, got %s", c.DeployCode.TTL)
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
