package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MinSecretLen is the shortest accepted token signing secret.
const MinSecretLen = 32

// Config holds all service configuration. Values come from an optional YAML
// file (CONFIG_FILE) and are overridden by environment variables.
type Config struct {
	Port string `yaml:"port"`

	StoreDriver string `yaml:"store_driver"` // mongo, memory
	MongoURI    string `yaml:"mongo_uri"`
	MongoDB     string `yaml:"mongo_db"`

	AccessTokenSecret string `yaml:"access_token_secret"`
	RevokeOnLogout    bool   `yaml:"revoke_on_logout"`
	CookieSecure      bool   `yaml:"cookie_secure"`
	CookieDomain      string `yaml:"cookie_domain"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	PostgresDSN string `yaml:"postgres_dsn"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`

	AllowedOrigins     []string `yaml:"allowed_origins"`
	BidStatusPolicy    string   `yaml:"bid_status_policy"` // strict, open
	LoginRatePerMinute int      `yaml:"login_rate_per_minute"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"` // json, console
	LogOutput     string `yaml:"log_output"` // stdout, stderr
	LogSource     bool   `yaml:"log_source"`
	LogTimeFormat string `yaml:"log_time_format"`
}

func defaults() *Config {
	return &Config{
		Port:               "5000",
		StoreDriver:        "mongo",
		MongoDB:            "jobBidPro",
		CookieSecure:       true,
		RedisAddr:          "redis:6379",
		MinioBucket:        "job-briefs",
		AllowedOrigins:     []string{"http://localhost:5173"},
		BidStatusPolicy:    "strict",
		LoginRatePerMinute: 30,
		LogLevel:           "info",
		LogFormat:          "json",
		LogOutput:          "stdout",
	}
}

// Load builds the configuration from CONFIG_FILE (if set) and the
// environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	envString(&cfg.Port, "PORT")
	envString(&cfg.StoreDriver, "STORE_DRIVER")
	envString(&cfg.MongoURI, "MONGO_URI")
	envString(&cfg.MongoDB, "MONGO_DB")
	envString(&cfg.AccessTokenSecret, "ACCESS_TOKEN_SECRET")
	envString(&cfg.CookieDomain, "COOKIE_DOMAIN")
	envString(&cfg.RedisAddr, "REDIS_ADDR")
	envString(&cfg.RedisPassword, "REDIS_PASSWORD")
	envString(&cfg.PostgresDSN, "POSTGRES_DSN")
	envString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	envString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	envString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	envString(&cfg.MinioBucket, "MINIO_BUCKET")
	envString(&cfg.BidStatusPolicy, "BID_STATUS_POLICY")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.LogFormat, "LOG_FORMAT")
	envString(&cfg.LogOutput, "LOG_OUTPUT")
	envString(&cfg.LogTimeFormat, "LOG_TIME_FORMAT")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	for key, dst := range map[string]*bool{
		"REVOKE_ON_LOGOUT": &cfg.RevokeOnLogout,
		"COOKIE_SECURE":    &cfg.CookieSecure,
		"MINIO_USE_SSL":    &cfg.MinioUseSSL,
		"LOG_SOURCE":       &cfg.LogSource,
	} {
		if err := envBool(dst, key); err != nil {
			return nil, err
		}
	}
	for key, dst := range map[string]*int{
		"REDIS_DB":              &cfg.RedisDB,
		"LOGIN_RATE_PER_MINUTE": &cfg.LoginRatePerMinute,
	} {
		if err := envInt(dst, key); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if len(c.AccessTokenSecret) < MinSecretLen {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes", MinSecretLen)
	}
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver %q (must be mongo or memory)", c.StoreDriver)
	}
	if c.BidStatusPolicy != "strict" && c.BidStatusPolicy != "open" {
		return fmt.Errorf("unknown bid status policy %q (must be strict or open)", c.BidStatusPolicy)
	}
	if c.RevokeOnLogout && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REVOKE_ON_LOGOUT is set")
	}
	if c.LogOutput != "stdout" && c.LogOutput != "stderr" {
		return fmt.Errorf("unknown log output %q (must be stdout or stderr)", c.LogOutput)
	}
	if c.LoginRatePerMinute <= 0 {
		return fmt.Errorf("login rate must be greater than 0")
	}
	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
