// internal/llm/ollama/ollama_test.go
package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint %s, got %s", DefaultEndpoint, p.endpoint)
	}
	if p.model != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, p.model)
	}
}

func TestNew_CustomValues(t *testing.T) {
	p, err := New("http://custom:8080/", "llama3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != "http://custom:8080" {
		t.Errorf("expected trimmed custom endpoint, got %s", p.endpoint)
	}
	if p.model != "llama3" {
		t.Errorf("expected custom model, got %s", p.model)
	}
}

func TestChat(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Message:         ollamaMessage{Role: "assistant", Content: "ok"},
			Done:            true,
			DoneReason:      "stop",
			PromptEvalCount: 5,
			EvalCount:       1,
		})
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "llama3")
	req := llm.UserPrompt("sys", "hi")
	req.JSONMode = true

	resp, err := p.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Usage.InputTokens != 5 || resp.Usage.OutputTokens != 1 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if got.Format != "json" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Options.NumPredict != llm.DefaultMaxTokens {
		t.Errorf("num_predict = %d", got.Options.NumPredict)
	}
}

func TestChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'qwen2.5:7b' not found"}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "")
	_, err := p.Chat(context.Background(), llm.UserPrompt("", "hi"))
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected upstream message in error, got %v", err)
	}
}

func TestChat_Incomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"部分"},"done":false}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "")
	if _, err := p.Chat(context.Background(), llm.UserPrompt("", "hi")); err == nil {
		t.Error("expected error for incomplete response")
	}
}
