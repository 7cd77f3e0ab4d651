package main

import (
	"fmt"
	"os"
	"time"

	"mlgrader/internal/common/db"
	"mlgrader/internal/leaderboard"
	"mlgrader/internal/notify"
	"mlgrader/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultIdlePollInterval = 10 * time.Second
	defaultRunTimeout       = 5 * time.Minute
	defaultOutputMaxBytes   = 64 * 1024
)

// RankingConfig selects how attack scores are ordered.
type RankingConfig struct {
	Order string `yaml:"order"`
}

// WorkerConfig holds the evaluation loop settings.
type WorkerConfig struct {
	IdlePollInterval time.Duration `yaml:"idlePollInterval"`
	RunTimeout       time.Duration `yaml:"runTimeout"`
	OutputMaxBytes   int64         `yaml:"outputMaxBytes"`
}

// WorkspaceConfig holds the directory layout for evaluations.
type WorkspaceConfig struct {
	SolutionsRoot  string `yaml:"solutionsRoot"`
	EvaluationRoot string `yaml:"evaluationRoot"`
	HarnessPath    string `yaml:"harnessPath"`
}

// NotifierConfig selects the notification transport. Mode is "webhook" or
// "console"; console is meant for local runs.
type NotifierConfig struct {
	Mode    string               `yaml:"mode"`
	Webhook notify.WebhookConfig `yaml:"webhook"`
}

// LeaderboardConfig holds rendering and publishing settings.
type LeaderboardConfig struct {
	StylePath string                      `yaml:"stylePath"`
	WordPress leaderboard.WordPressConfig `yaml:"wordpress"`
}

// AppConfig holds check-service configuration.
type AppConfig struct {
	Logger      logger.Config     `yaml:"logger"`
	Database    db.SQLiteConfig   `yaml:"database"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Worker      WorkerConfig      `yaml:"worker"`
	Workspace   WorkspaceConfig   `yaml:"workspace"`
	Notifier    NotifierConfig    `yaml:"notifier"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
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

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.Workspace.SolutionsRoot == "" {
		return nil, fmt.Errorf("workspace solutionsRoot is required")
	}
	if cfg.Workspace.EvaluationRoot == "" {
		return nil, fmt.Errorf("workspace evaluationRoot is required")
	}
	if cfg.Workspace.HarnessPath == "" {
		return nil, fmt.Errorf("workspace harnessPath is required")
	}

	if cfg.Worker.IdlePollInterval == 0 {
		cfg.Worker.IdlePollInterval = defaultIdlePollInterval
	}
	if cfg.Worker.RunTimeout == 0 {
		cfg.Worker.RunTimeout = defaultRunTimeout
	}
	if cfg.Worker.OutputMaxBytes == 0 {
		cfg.Worker.OutputMaxBytes = defaultOutputMaxBytes
	}

	if cfg.Notifier.Mode == "" {
		cfg.Notifier.Mode = "console"
	}
	if cfg.Notifier.Mode == "webhook" && cfg.Notifier.Webhook.URL == "" {
		return nil, fmt.Errorf("notifier webhook url is required")
	}
	if cfg.Ranking.Order == "" {
		cfg.Ranking.Order = "desc"
	}
	return &cfg, nil
}
