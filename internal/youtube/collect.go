package youtube

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
)

type searcher interface {
	Search(ctx context.Context, keywords string, crit Criteria) ([]Video, error)
}

type fetcher interface {
	Download(ctx context.Context, v Video) (string, error)
}

// Cutter probes downloads and extracts the clip window
type Cutter interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	ExtractClip(ctx context.Context, input string, opts fexec.ClipOptions) error
}

// ClipSpec shapes extracted clips to match the slideshow
type ClipSpec struct {
	Keywords   string
	MaxClips   int
	Length     time.Duration
	Width      int
	Height     int
	FPS        int
	Dir        string
	VideoCodec string
	Preset     string
	CRF        int
	Progress   fexec.ProgressFunc
}

// Collector turns search hits into canvas-sized clips
type Collector struct {
	logger   zerolog.Logger
	search   searcher
	download fetcher
	cutter   Cutter
}

func NewCollector(logger zerolog.Logger, client *Client, downloader *Downloader, cutter Cutter) *Collector {
	return &Collector{
		logger:   logger.With().Str("component", "external-clips").Logger(),
		search:   client,
		download: downloader,
		cutter:   cutter,
	}
}

// Collect returns the paths of extracted clips in search order. Failures
// for a single video are logged and skipped; a failed search yields nothing.
func (c *Collector) Collect(ctx context.Context, crit Criteria, spec ClipSpec) []string {
	videos, err := c.search.Search(ctx, spec.Keywords, crit)
	if err != nil {
		c.logger.Warn().Err(err).Msg("external clip search failed")
		return nil
	}

	var clips []string
	for _, v := range videos {
		if spec.MaxClips > 0 && len(clips) >= spec.MaxClips {
			break
		}
		if ctx.Err() != nil {
			break
		}

		path, err := c.clip(ctx, v, spec, len(clips))
		if err != nil {
			c.logger.Warn().Err(err).Str("id", v.ID).Msg("skipping external clip")
			continue
		}
		clips = append(clips, path)
	}

	c.logger.Info().Int("clips", len(clips)).Msg("external clips collected")
	return clips
}

func (c *Collector) clip(ctx context.Context, v Video, spec ClipSpec, n int) (string, error) {
	source, err := c.download.Download(ctx, v)
	if err != nil {
		return "", err
	}

	total, err := c.cutter.ProbeDuration(ctx, source)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", v.ID, err)
	}

	length := spec.Length
	if length <= 0 || length > total {
		length = total
	}
	if length <= 0 {
		return "", fmt.Errorf("video %s has no duration", v.ID)
	}

	output := filepath.Join(spec.Dir, fmt.Sprintf("external_%03d.mp4", n))
	err = c.cutter.ExtractClip(ctx, source, fexec.ClipOptions{
		Start:      fexec.MiddleWindow(total, length),
		Duration:   length,
		Output:     output,
		Width:      spec.Width,
		Height:     spec.Height,
		FPS:        spec.FPS,
		DropAudio:  true,
		VideoCodec:   spec.VideoCodec,
		Preset:       spec.Preset,
		CRF:          spec.CRF,
		ProgressFunc: spec.Progress,
	})
	if err != nil {
		return "", err
	}
	return output, nil
}
