package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/stillreel/internal/config"
)

// ErrNoTargets means neither S3 nor YouTube publishing is configured
var ErrNoTargets = errors.New("no publish targets configured")

// Artifact is a finished video ready for upload
type Artifact struct {
	Path  string
	RunID string
	Title string
}

// Publisher uploads an artifact and returns where it landed
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a Artifact) (string, error)
}

// FromConfig builds every publisher that has credentials or a destination
func FromConfig(ctx context.Context, logger zerolog.Logger, cfg config.PublishConfig) ([]Publisher, error) {
	var pubs []Publisher

	if cfg.S3.Bucket != "" {
		s3pub, err := NewS3(ctx, logger, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 publisher: %w", err)
		}
		pubs = append(pubs, s3pub)
	}

	if cfg.YouTube.ServiceAccountFile != "" {
		ytpub, err := NewYouTube(ctx, logger, cfg.YouTube)
		if err != nil {
			return nil, fmt.Errorf("youtube publisher: %w", err)
		}
		pubs = append(pubs, ytpub)
	}

	if len(pubs) == 0 {
		return nil, ErrNoTargets
	}
	return pubs, nil
}

// All runs every publisher. Each failure is logged and joined into the
// returned error; successful locations are still returned.
func All(ctx context.Context, logger zerolog.Logger, pubs []Publisher, a Artifact) ([]string, error) {
	var locations []string
	var errs []error

	for _, p := range pubs {
		loc, err := p.Publish(ctx, a)
		if err != nil {
			logger.Error().Err(err).Str("publisher", p.Name()).Str("path", a.Path).Msg("publish failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		logger.Info().Str("publisher", p.Name()).Str("location", loc).Msg("published")
		locations = append(locations, loc)
	}

	return locations, errors.Join(errs...)
}

// ObjectKey places the run under prefix as <run-id>.mp4
func ObjectKey(prefix, runID string) string {
	name := runID + ".mp4"
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// TruncateTitle keeps titles within the 100 character upload limit
func TruncateTitle(title string) string {
	r := []rune(title)
	if len(r) > 100 {
		return string(r[:97]) + "..."
	}
	return title
}
