package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Relay    RelayConfig    `yaml:"relay"`
	Report   ReportConfig   `yaml:"report"`
	Auth     AuthConfig     `yaml:"auth"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// RelayConfig holds upstream mail relay settings. Vendor selects the
// delivery backend: "smtp" (default) or "ses".
type RelayConfig struct {
	Vendor                   string `yaml:"vendor"`
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	Username                 string `yaml:"username"`
	Password                 string `yaml:"password"`
	PoolSize                 int    `yaml:"pool_size"`
	MaxMessagesPerConnection int    `yaml:"max_messages_per_connection"`
	TimeoutSeconds           int    `yaml:"timeout_seconds"`
	InsecureSkipVerify       bool   `yaml:"insecure_skip_verify"`
	SESAccessKey             string `yaml:"ses_access_key"`
	SESSecretKey             string `yaml:"ses_secret_key"`
	SESRegion                string `yaml:"ses_region"`
}

// DialTimeout returns the relay dial timeout as a duration.
func (r RelayConfig) DialTimeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// ReportConfig holds report email settings
type ReportConfig struct {
	SystemSender string `yaml:"system_sender"`
}

// AuthConfig holds API key authentication settings
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
	DevMode bool     `yaml:"dev_mode"`
}

// ThrottleConfig holds rate limiting settings
type ThrottleConfig struct {
	Enabled           bool   `yaml:"enabled"`
	RedisURL          string `yaml:"redis_url"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	DailyLimit        int    `yaml:"daily_limit"`
}

// StorageConfig holds delivery log settings
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Relay.Vendor == "" {
		cfg.Relay.Vendor = "smtp"
	}
	if cfg.Relay.Port == 0 {
		cfg.Relay.Port = 25
	}
	if cfg.Relay.PoolSize == 0 {
		cfg.Relay.PoolSize = 5
	}
	if cfg.Relay.MaxMessagesPerConnection == 0 {
		cfg.Relay.MaxMessagesPerConnection = 100
	}
	if cfg.Relay.TimeoutSeconds == 0 {
		cfg.Relay.TimeoutSeconds = 30
	}
	if cfg.Relay.SESRegion == "" {
		cfg.Relay.SESRegion = "us-east-1"
	}
	if cfg.Report.SystemSender == "" {
		cfg.Report.SystemSender = "reports@localhost"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if vendor := os.Getenv("RELAY_VENDOR"); vendor != "" {
		cfg.Relay.Vendor = vendor
	}
	if host := os.Getenv("RELAY_HOST"); host != "" {
		cfg.Relay.Host = host
	}
	if port := os.Getenv("RELAY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Relay.Port = p
		}
	}
	if user := os.Getenv("RELAY_USERNAME"); user != "" {
		cfg.Relay.Username = user
	}
	if pass := os.Getenv("RELAY_PASSWORD"); pass != "" {
		cfg.Relay.Password = pass
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Relay.SESAccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Relay.SESSecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Relay.SESRegion = region
	}
	if sender := os.Getenv("REPORT_SENDER"); sender != "" {
		cfg.Report.SystemSender = sender
	}
	if keys := os.Getenv("API_KEYS"); keys != "" {
		cfg.Auth.APIKeys = splitKeys(keys)
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Throttle.RedisURL = redisURL
		cfg.Throttle.Enabled = true
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Storage.DatabaseURL = dbURL
	}
	if os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development" {
		cfg.Auth.DevMode = true
	}

	return cfg, nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
