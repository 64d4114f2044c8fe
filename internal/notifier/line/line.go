// Package line implements a LINE Notify notifier
package line

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

// DefaultEndpoint is the LINE Notify API.
const DefaultEndpoint = "https://notify-api.line.me/api/notify"

// maxLength is the LINE Notify message limit.
const maxLength = 1000

type params struct {
	Token    string `mapstructure:"token"`
	Endpoint string `mapstructure:"endpoint"`
}

// Line implements the Notifier interface for LINE Notify
type Line struct {
	token    string
	endpoint string
	client   *http.Client
}

// New creates a new LINE notifier
func New(token string) *Line {
	return &Line{
		token:    token,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (l *Line) Name() string { return "line" }

func (l *Line) MaxLength() int { return maxLength }

func (l *Line) Init(cfg notifier.Config) error {
	var p params
	if err := notifier.DecodeParams(cfg.Params, &p); err != nil {
		return fmt.Errorf("line: %w", err)
	}
	if p.Token != "" {
		l.token = p.Token
	}
	if p.Endpoint != "" {
		l.endpoint = p.Endpoint
	}
	if l.endpoint == "" {
		l.endpoint = DefaultEndpoint
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: 30 * time.Second}
	}

	if l.token == "" {
		return fmt.Errorf("line: token is required")
	}
	return nil
}

// Send posts the message as multipart form data. An image goes in the
// imageFile part.
func (l *Line) Send(ctx context.Context, msg notifier.Message) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("message", msg.Text); err != nil {
		return fmt.Errorf("line: failed to write message: %w", err)
	}
	if len(msg.Image) > 0 {
		name := msg.ImageName
		if name == "" {
			name = "chart.png"
		}
		fw, err := mw.CreateFormFile("imageFile", name)
		if err != nil {
			return fmt.Errorf("line: failed to attach image: %w", err)
		}
		if _, err := fw.Write(msg.Image); err != nil {
			return fmt.Errorf("line: failed to attach image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("line: failed to encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, &body)
	if err != nil {
		return fmt.Errorf("line: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("line: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line: API error (status %d): %s", resp.StatusCode, detail)
	}
	return nil
}
