package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the API server configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Trial        TrialConfig        `mapstructure:"trial"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Verification VerificationConfig `mapstructure:"verification"`
	Collector    CollectorConfig    `mapstructure:"collector"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// RedisConfig contains Redis connection settings for the verification code store
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AuthConfig holds token issuance configuration
type AuthConfig struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// TrialConfig holds the trial grant parameters applied at registration
type TrialConfig struct {
	PeriodDays int `mapstructure:"period_days"`
	MaxFollows int `mapstructure:"max_follows"`
}

// OAuthConfig holds per-provider settings for the id-token login flow
type OAuthConfig struct {
	Google OAuthProviderConfig `mapstructure:"google"`
	Apple  OAuthProviderConfig `mapstructure:"apple"`
}

// OAuthProviderConfig holds a single provider's verification settings
type OAuthProviderConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	TokenInfoURL string        `mapstructure:"token_info_url"`
	JWKSURL      string        `mapstructure:"jwks_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// VerificationConfig holds email verification code settings
type VerificationConfig struct {
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	SendRatePerMin int           `mapstructure:"send_rate_per_min"`
	SendBurst      int           `mapstructure:"send_burst"`
}

// CollectorConfig holds aggregation facade settings
type CollectorConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RegistryPath   string        `mapstructure:"registry_path"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "crypto_monitor")

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// Auth defaults
	viper.SetDefault("auth.issuer", "crypto-monitor")
	viper.SetDefault("auth.access_token_ttl", "30m")
	viper.SetDefault("auth.refresh_token_ttl", "168h")

	// Trial defaults
	viper.SetDefault("trial.period_days", 3)
	viper.SetDefault("trial.max_follows", 5)

	// OAuth defaults
	viper.SetDefault("oauth.google.token_info_url", "https://oauth2.googleapis.com/tokeninfo")
	viper.SetDefault("oauth.google.timeout", "10s")
	viper.SetDefault("oauth.apple.jwks_url", "https://appleid.apple.com/auth/keys")
	viper.SetDefault("oauth.apple.timeout", "10s")

	// Verification defaults
	viper.SetDefault("verification.code_ttl", "300s")
	viper.SetDefault("verification.send_rate_per_min", 3)
	viper.SetDefault("verification.send_burst", 3)

	// Collector defaults
	viper.SetDefault("collector.request_timeout", "10s")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if config.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be positive")
	}
	if config.Auth.RefreshTokenTTL <= config.Auth.AccessTokenTTL {
		return fmt.Errorf("auth.refresh_token_ttl must exceed auth.access_token_ttl")
	}
	if config.Trial.PeriodDays <= 0 {
		return fmt.Errorf("trial.period_days must be positive")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
