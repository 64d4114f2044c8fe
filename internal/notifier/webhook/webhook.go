// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

type params struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) MaxLength() int { return 0 }

func (w *Webhook) Init(cfg notifier.Config) error {
	var p params
	if err := notifier.DecodeParams(cfg.Params, &p); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if p.URL != "" {
		w.url = p.URL
	}
	if p.Headers != nil {
		w.headers = p.Headers
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}
	if w.now == nil {
		w.now = time.Now
	}

	return nil
}

// payload is the JSON body posted for each message.
type payload struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Image     string `json:"image,omitempty"`
	ImageName string `json:"image_name,omitempty"`
	SentAt    string `json:"sent_at"`
}

func (w *Webhook) Send(ctx context.Context, msg notifier.Message) error {
	p := payload{
		Type:   "report",
		Text:   msg.Text,
		SentAt: w.now().Format(time.RFC3339),
	}
	if len(msg.Image) > 0 {
		p.Image = base64.StdEncoding.EncodeToString(msg.Image)
		p.ImageName = msg.ImageName
	}
	return w.post(ctx, p)
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
