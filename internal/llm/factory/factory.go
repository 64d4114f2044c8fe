package factory

import (
	"context"
	"fmt"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm/claude"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm/gemini"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm/ollama"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// name returns a nil Provider and no error; callers fall back to rules.
func New(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	case "gemini":
		return gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
