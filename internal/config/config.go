package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string `yaml:"port"`
	LogLevel                string `yaml:"logLevel"`
	BackendURL              string `yaml:"backendURL"`
	SessionStore            string `yaml:"sessionStore"`
	SessionDir              string `yaml:"sessionDir"`
	SessionTTL              string `yaml:"sessionTTL"`
	RedisAddr               string `yaml:"redisAddr"`
	RedisPassword           string `yaml:"redisPassword"`
	LoginRateLimitPerMinute int    `yaml:"loginRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("DASHBOARD_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("DASHBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("DASHBOARD_BACKEND_URL"); v != "" {
		cfg.BackendURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("DASHBOARD_SESSION_STORE"); v != "" {
		cfg.SessionStore = strings.TrimSpace(v)
	}
	if v := os.Getenv("DASHBOARD_SESSION_DIR"); v != "" {
		cfg.SessionDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("DASHBOARD_SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("DASHBOARD_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.BackendURL == "" {
		return errors.New("config: backendURL is required (set in config.yaml or DASHBOARD_BACKEND_URL)")
	}
	switch cfg.SessionStore {
	case "", "memory", "file", "redis":
	default:
		return fmt.Errorf("config: unknown sessionStore %q (want memory, file, or redis)", cfg.SessionStore)
	}
	if cfg.SessionStore == "redis" && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required when sessionStore is redis")
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: loginRateLimitPerMinute must be >= 0")
	}
	if cfg.LoginRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for login rate limiting")
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}
