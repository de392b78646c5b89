package youtube

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Criteria filters search results
type Criteria struct {
	MaxResults     int
	MaxDuration    time.Duration
	MinViews       uint64
	PublishedAfter time.Time
}

// Video is a search hit that passed the criteria
type Video struct {
	ID       string
	Title    string
	Duration time.Duration
	Views    uint64
}

// URL returns the watch page for the video
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// Client wraps the YouTube Data API v3
type Client struct {
	logger  zerolog.Logger
	service *yt.Service
}

// NewClient creates an API-key client. Extra options follow the key.
func NewClient(ctx context.Context, logger zerolog.Logger, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return &Client{
		logger:  logger.With().Str("component", "youtube").Logger(),
		service: service,
	}, nil
}

// Search finds short English videos for keywords and keeps those within
// the duration and view criteria, in relevance order
func (c *Client) Search(ctx context.Context, keywords string, crit Criteria) ([]Video, error) {
	maxResults := crit.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	call := c.service.Search.List([]string{"snippet"}).
		Q(keywords).
		Type("video").
		VideoDuration("short").
		Order("relevance").
		RelevanceLanguage("en").
		MaxResults(int64(maxResults))
	if !crit.PublishedAfter.IsZero() {
		call = call.PublishedAfter(crit.PublishedAfter.UTC().Format(time.RFC3339))
	}

	found, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("video search: %w", err)
	}

	var ids []string
	titles := make(map[string]string)
	for _, item := range found.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
		if item.Snippet != nil {
			titles[item.Id.VideoId] = item.Snippet.Title
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	details, err := c.service.Videos.List([]string{"contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}

	byID := make(map[string]*yt.Video, len(details.Items))
	for _, v := range details.Items {
		byID[v.Id] = v
	}

	var videos []Video
	for _, id := range ids {
		v, ok := byID[id]
		if !ok || v.ContentDetails == nil {
			continue
		}
		var views uint64
		if v.Statistics != nil {
			views = v.Statistics.ViewCount
		}
		d := ParseISODuration(v.ContentDetails.Duration)

		if crit.MaxDuration > 0 && d > crit.MaxDuration {
			c.logger.Debug().Str("id", id).Dur("duration", d).Msg("skipping long video")
			continue
		}
		if views < crit.MinViews {
			c.logger.Debug().Str("id", id).Uint64("views", views).Msg("skipping low view video")
			continue
		}

		videos = append(videos, Video{ID: id, Title: titles[id], Duration: d, Views: views})
	}

	c.logger.Info().
		Str("keywords", keywords).
		Int("results", len(ids)).
		Int("kept", len(videos)).
		Msg("video search complete")

	return videos, nil
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO 8601 duration such as PT1M30S.
// Unparseable input yields zero.
func ParseISODuration(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += time.Duration(n) * unit
	}
	return total
}
