package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

// DefaultAPIURL is the Telegram Bot API base.
const DefaultAPIURL = "https://api.telegram.org"

// maxLength is the sendMessage text limit.
const maxLength = 4096

type params struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
}

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   DefaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) MaxLength() int {
	return maxLength
}

func (t *Telegram) Init(cfg notifier.Config) error {
	var p params
	if err := notifier.DecodeParams(cfg.Params, &p); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if p.BotToken != "" {
		t.botToken = p.BotToken
	}
	if p.ChatID != "" {
		t.chatID = p.ChatID
	}
	if p.APIURL != "" {
		t.apiURL = strings.TrimRight(p.APIURL, "/")
	}
	if t.apiURL == "" {
		t.apiURL = DefaultAPIURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

// Send posts the image first, when present, then the text.
func (t *Telegram) Send(ctx context.Context, msg notifier.Message) error {
	if len(msg.Image) > 0 {
		if err := t.sendPhoto(ctx, msg.Image, msg.ImageName); err != nil {
			return err
		}
	}
	return t.sendMessage(ctx, msg.Text)
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiURL, t.botToken, method)
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req)
}

func (t *Telegram) sendPhoto(ctx context.Context, image []byte, name string) error {
	if name == "" {
		name = "chart.png"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("telegram: failed to encode form: %w", err)
	}
	fw, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return fmt.Errorf("telegram: failed to attach photo: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return fmt.Errorf("telegram: failed to attach photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("telegram: failed to encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendPhoto"), &body)
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return t.do(req)
}

func (t *Telegram) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
