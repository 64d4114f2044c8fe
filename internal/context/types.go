// internal/context/types.go
package context

import (
	"context"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// NewsProvider provides recent headlines for a symbol, newest first.
type NewsProvider interface {
	FetchNews(ctx context.Context, code string, limit int) ([]core.NewsItem, error)
}

// ProfileProvider provides basic company information for a symbol.
type ProfileProvider interface {
	FetchProfile(ctx context.Context, code string) (core.CompanyProfile, error)
}

// DisclosureProvider provides recent regulatory disclosures for a symbol.
// Returned records are not yet classified.
type DisclosureProvider interface {
	FetchDisclosures(ctx context.Context, code string, limit int) ([]core.Disclosure, error)
}
