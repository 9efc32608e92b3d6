// Package config loads the gateway configuration with precedence
// environment > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. Credentials and device identity are
// immutable for the process lifetime.
type Config struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ForwardedIP string `yaml:"forwarded_ip"` // sent as X-Forwarded-For to work around geo restriction

	Listen   string `yaml:"listen"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	GuideDays int           `yaml:"guide_days"`
	LogoSize  int           `yaml:"logo_size"`
	Timeout   time.Duration `yaml:"timeout"`

	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"` // 0 disables artifact refresh

	RedisAddr string        `yaml:"redis_addr"` // empty selects the in-memory cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	RateLimitRPM int `yaml:"rate_limit_rpm"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen:            ":8183",
		DataDir:           "/tmp/ftv2g",
		LogLevel:          "info",
		GuideDays:         3,
		LogoSize:          400,
		Timeout:           15 * time.Second,
		KeepAliveInterval: 10 * time.Minute,
		RefreshInterval:   0,
		CacheTTL:          5 * time.Minute,
		RateLimitRPM:      600,
	}
}

// Load builds the effective configuration. path may be empty; when it is,
// $FTV2G_DATA/config.yaml is used if it exists.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		dataDir := ParseString("FTV2G_DATA", cfg.DataDir)
		auto := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(auto); err == nil {
			path = auto
		}
	}
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *Config) {
	cfg.Username = ParseString("FTV2G_USERNAME", cfg.Username)
	cfg.Password = ParseString("FTV2G_PASSWORD", cfg.Password)
	cfg.ForwardedIP = ParseString("FTV2G_IP", cfg.ForwardedIP)
	cfg.Listen = ParseString("FTV2G_LISTEN", cfg.Listen)
	cfg.DataDir = ParseString("FTV2G_DATA", cfg.DataDir)
	cfg.LogLevel = ParseString("FTV2G_LOG_LEVEL", cfg.LogLevel)
	cfg.GuideDays = ParseInt("FTV2G_GUIDE_DAYS", cfg.GuideDays)
	cfg.LogoSize = ParseInt("FTV2G_LOGO_SIZE", cfg.LogoSize)
	cfg.Timeout = ParseDuration("FTV2G_TIMEOUT", cfg.Timeout)
	cfg.KeepAliveInterval = ParseDuration("FTV2G_KEEPALIVE_INTERVAL", cfg.KeepAliveInterval)
	cfg.RefreshInterval = ParseDuration("FTV2G_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.RedisAddr = ParseString("FTV2G_REDIS_ADDR", cfg.RedisAddr)
	cfg.CacheTTL = ParseDuration("FTV2G_CACHE_TTL", cfg.CacheTTL)
	cfg.RateLimitRPM = ParseInt("FTV2G_RATE_LIMIT_RPM", cfg.RateLimitRPM)
}

// Validate checks settings the daemon cannot run without.
func (c Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return errors.New("FTV2G_USERNAME and FTV2G_PASSWORD are required")
	}
	if c.GuideDays < 1 || c.GuideDays > 14 {
		return fmt.Errorf("guide_days must be between 1 and 14, got %d", c.GuideDays)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
