package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appErr "mlgrader/pkg/errors"
	"mlgrader/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultSendTimeout = 10 * time.Second

// WebhookConfig holds the chat front-end send endpoint settings.
type WebhookConfig struct {
	// URL is the front-end's message send endpoint.
	URL string `yaml:"url"`

	// Timeout bounds one delivery attempt. Default: 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookNotifier posts messages to the chat front-end over HTTP. Delivery is
// fire-and-forget at the protocol level: a non-2xx response is an error for
// the caller to log, but there is no retry queue.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultSendTimeout
	}
	return &WebhookNotifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type sendRequest struct {
	Identity int64  `json:"identity"`
	Text     string `json:"text"`
}

// Send delivers one message to one student via the front-end.
func (n *WebhookNotifier) Send(ctx context.Context, identity int64, text string) error {
	payload, err := json.Marshal(sendRequest{Identity: identity, Text: text})
	if err != nil {
		return appErr.Wrapf(err, appErr.NotifyFailed, "encode notification failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return appErr.Wrapf(err, appErr.NotifyFailed, "build notification request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.NotifyFailed, "send notification failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn(ctx, "notification rejected by front-end",
			zap.Int64("identity", identity),
			zap.Int("status", resp.StatusCode),
		)
		return appErr.Newf(appErr.NotifyFailed, "front-end returned status %d", resp.StatusCode)
	}
	return nil
}
