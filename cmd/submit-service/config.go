package main

import (
	"fmt"
	"os"
	"time"

	"mlgrader/internal/common/cache"
	"mlgrader/internal/common/db"
	"mlgrader/internal/submit/service"
	"mlgrader/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSessionTTL      = 30 * time.Minute
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// RankingConfig selects how attack scores are ordered.
type RankingConfig struct {
	Order string `yaml:"order"`
}

// RegistrationConfig holds the registration dialogue settings.
type RegistrationConfig struct {
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

// AppConfig holds submit-service configuration.
type AppConfig struct {
	Server       ServerConfig         `yaml:"server"`
	Logger       logger.Config        `yaml:"logger"`
	Database     db.SQLiteConfig      `yaml:"database"`
	Redis        cache.RedisConfig    `yaml:"redis"`
	Intake       service.IntakeConfig `yaml:"intake"`
	Registration RegistrationConfig   `yaml:"registration"`
	Ranking      RankingConfig        `yaml:"ranking"`

	// LeaderboardURL is the public standings page shown to students after
	// registration. Optional.
	LeaderboardURL string `yaml:"leaderboardURL"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Intake.SolutionsRoot == "" {
		return nil, fmt.Errorf("intake solutionsRoot is required")
	}

	if cfg.Registration.SessionTTL == 0 {
		cfg.Registration.SessionTTL = defaultSessionTTL
	}
	if cfg.Ranking.Order == "" {
		cfg.Ranking.Order = "desc"
	}
	return &cfg, nil
}
