package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/stillreel/internal/config"
)

var (
	// ErrCredentialMissing means the search key or engine id is not configured
	ErrCredentialMissing = errors.New("search credentials missing")
	// ErrNetwork covers transport failures and non-2xx responses
	ErrNetwork = errors.New("network error")
)

// Source lists image URLs for a keyword query in ranked order.
// Fetch never fails; problems are logged and yield an empty slice.
type Source interface {
	Name() string
	Fetch(ctx context.Context, keywords string, maxResults int) []string
}

// FixedSource returns a static list, used in test mode
type FixedSource struct {
	urls []string
}

// NewFixedSource creates a source over urls
func NewFixedSource(urls []string) *FixedSource {
	return &FixedSource{urls: urls}
}

func (f *FixedSource) Name() string { return config.ModeTest }

// Fetch returns the first maxResults URLs regardless of keywords
func (f *FixedSource) Fetch(_ context.Context, _ string, maxResults int) []string {
	n := len(f.urls)
	if maxResults >= 0 && maxResults < n {
		n = maxResults
	}
	out := make([]string, n)
	copy(out, f.urls[:n])
	return out
}

// New picks the source for the configured mode
func New(logger zerolog.Logger, cfg *config.Config) (Source, error) {
	switch cfg.Mode {
	case config.ModeTest:
		return NewFixedSource(cfg.Search.TestImages), nil
	case config.ModeProduction:
		return NewSearchSource(logger, cfg.Search), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
