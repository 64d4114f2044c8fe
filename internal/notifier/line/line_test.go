package line

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

func TestLine_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Line)(nil)
}

func TestLine_Init(t *testing.T) {
	l := &Line{}
	err := l.Init(notifier.Config{Params: map[string]any{"token": "test-token"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.token != "test-token" {
		t.Errorf("expected token 'test-token', got '%s'", l.token)
	}
	if l.endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint, got '%s'", l.endpoint)
	}
}

func TestLine_Init_MissingToken(t *testing.T) {
	l := &Line{}
	if err := l.Init(notifier.Config{}); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestLine_Send(t *testing.T) {
	var (
		auth    string
		message string
		image   []byte
		name    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		message = r.FormValue("message")
		if f, h, err := r.FormFile("imageFile"); err == nil {
			image, _ = io.ReadAll(f)
			name = h.Filename
			f.Close()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	l := New("test-token")
	l.endpoint = srv.URL

	err := l.Send(context.Background(), notifier.Message{Text: "1位 [3778] さくらネット", Image: []byte("png"), ImageName: "3778.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if message != "1位 [3778] さくらネット" {
		t.Errorf("message = %q", message)
	}
	if string(image) != "png" || name != "3778.png" {
		t.Errorf("image = %q (%s)", image, name)
	}
}

func TestLine_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":401,"message":"Invalid access token"}`))
	}))
	defer srv.Close()

	l := New("bad-token")
	l.endpoint = srv.URL

	if err := l.Send(context.Background(), notifier.Message{Text: "x"}); err == nil {
		t.Error("expected error for 401 response")
	}
}
