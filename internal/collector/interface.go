package collector

import (
	"context"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/session"
)

// Config holds ranking source configuration
type Config struct {
	URL     string
	Timeout time.Duration

	// Limiters paces requests per origin. Sharing one instance with the
	// context providers keeps the ranking fetch inside the same budget.
	Limiters *session.Limiters
}

// SessionOptions returns the session options implied by c.
func (c Config) SessionOptions() []session.Option {
	opts := []session.Option{session.WithTimeout(c.Timeout)}
	if c.Limiters != nil {
		opts = append(opts, session.WithLimiters(c.Limiters))
	}
	return opts
}

// Source acquires and parses one after-hours ranking table.
type Source interface {
	// Name returns the unique identifier for this source
	Name() string

	// FetchRanking performs a single acquisition attempt. Rows are returned
	// in source order.
	FetchRanking(ctx context.Context) ([]core.RawSignal, error)

	// Close releases the source's network session
	Close() error
}
