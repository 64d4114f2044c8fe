// Package session provides scraping HTTP sessions. Each fetcher owns its
// own Session and connection pool; sessions are never shared.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every request made through a session.
	DefaultTimeout = 30 * time.Second

	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "ja,en-US;q=0.7,en;q=0.3"
	maxBodyBytes   = 8 << 20
)

// ErrClosed is returned by requests issued after Close.
var ErrClosed = errors.New("session closed")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Session is an HTTP client with browser-like headers, a fixed timeout and
// an optional shared per-origin limiter.
type Session struct {
	name      string
	client    *http.Client
	transport *http.Transport
	header    http.Header
	limiters  *Limiters
	logger    *zap.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithLimiters attaches a shared per-origin limiter set.
func WithLimiters(l *Limiters) Option {
	return func(s *Session) {
		s.limiters = l
	}
}

// WithLogger sets a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a session with its own connection pool.
func New(name string, opts ...Option) *Session {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	s := &Session{
		name:      name,
		transport: transport,
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
		header: http.Header{},
		logger: zap.NewNop(),
	}
	s.header.Set("User-Agent", userAgent)
	s.header.Set("Accept", acceptHTML)
	s.header.Set("Accept-Language", acceptLanguage)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the session owner's name.
func (s *Session) Name() string {
	return s.name
}

// Get fetches rawURL and returns the body. Non-2xx responses, transport
// errors and timeouts are all returned as errors.
func (s *Session) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if err := s.limiters.Wait(ctx, u); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = s.header.Clone()

	s.logger.Debug("http get", zap.String("session", s.name), zap.String("url", rawURL))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// Document fetches rawURL and parses it as HTML.
func (s *Session) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := s.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return ParseHTML(body)
}

// Close releases pooled connections. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.transport.CloseIdleConnections()
		s.logger.Debug("session closed", zap.String("session", s.name))
	})
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}
