package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErr "mlgrader/pkg/errors"
)

// Publisher pushes a rendered leaderboard page for one task to its public
// destination.
type Publisher interface {
	Publish(ctx context.Context, task string, content string) error
}

// WordPressConfig describes the WordPress site leaderboards are published
// to. Pages maps a task name to the page ID that holds its standings.
type WordPressConfig struct {
	BaseURL  string           `yaml:"baseURL"`
	Username string           `yaml:"username"`
	Password string           `yaml:"password"`
	Pages    map[string]int64 `yaml:"pages"`
	Timeout  time.Duration    `yaml:"timeout"`
}

// WordPressPublisher replaces page content through the WordPress REST API
// using basic auth.
type WordPressPublisher struct {
	cfg    WordPressConfig
	client *http.Client
}

func NewWordPressPublisher(cfg WordPressConfig) *WordPressPublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WordPressPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *WordPressPublisher) Publish(ctx context.Context, task string, content string) error {
	pageID, ok := p.cfg.Pages[task]
	if !ok {
		return appErr.Newf(appErr.PublishFailed, "no page configured for task %s", task)
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "encode page content failed")
	}

	url := fmt.Sprintf("%s/wp-json/wp/v2/pages/%d", p.cfg.BaseURL, pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "build publish request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.cfg.Username, p.cfg.Password)

	resp, err := p.client.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "publish request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return appErr.Newf(appErr.PublishFailed,
			"publish returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
