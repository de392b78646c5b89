package sources

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/kikiluvv/stillreel/internal/config"
)

// maxPerRequest is the Custom Search API page size limit
const maxPerRequest = 10

// SearchSource queries the Google Custom Search JSON API for images
type SearchSource struct {
	logger  zerolog.Logger
	cfg     config.SearchConfig
	options []option.ClientOption
}

// NewSearchSource creates an image search source. Extra client options
// are appended after the API key.
func NewSearchSource(logger zerolog.Logger, cfg config.SearchConfig, opts ...option.ClientOption) *SearchSource {
	return &SearchSource{
		logger:  logger.With().Str("component", "search").Logger(),
		cfg:     cfg,
		options: opts,
	}
}

func (s *SearchSource) Name() string { return config.ModeProduction }

// Fetch returns image links for keywords, or nothing on any failure
func (s *SearchSource) Fetch(ctx context.Context, keywords string, maxResults int) []string {
	links, err := s.Search(ctx, keywords, maxResults)
	if err != nil {
		s.logger.Error().Err(err).Str("keywords", keywords).Msg("image search failed")
		return []string{}
	}
	return links
}

// Search runs one query and reports why it produced nothing
func (s *SearchSource) Search(ctx context.Context, keywords string, maxResults int) ([]string, error) {
	if s.cfg.APIKey == "" || s.cfg.CX == "" {
		return nil, fmt.Errorf("%w: set GOOGLE_API_KEY and GOOGLE_CX", ErrCredentialMissing)
	}

	opts := append([]option.ClientOption{option.WithAPIKey(s.cfg.APIKey)}, s.options...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	num := clampNum(maxResults)
	s.logger.Info().Str("keywords", keywords).Int64("num", num).Msg("searching images")

	call := svc.Cse.List().
		Cx(s.cfg.CX).
		Q(keywords).
		SearchType("image").
		Num(num)
	if s.cfg.SafeSearch != "" {
		call = call.Safe(s.cfg.SafeSearch)
	}
	if s.cfg.ImageSize != "" {
		call = call.ImgSize(s.cfg.ImageSize)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("no images found for %q", keywords)
	}

	links := make([]string, 0, len(res.Items))
	for i, item := range res.Items {
		if item.Link == "" {
			continue
		}
		s.logger.Debug().Int("rank", i+1).Str("url", item.Link).Str("title", item.Title).Msg("search result")
		links = append(links, item.Link)
	}
	return links, nil
}

func clampNum(n int) int64 {
	if n < 1 {
		return 1
	}
	if n > maxPerRequest {
		return maxPerRequest
	}
	return int64(n)
}
