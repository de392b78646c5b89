package audio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
	"github.com/kikiluvv/stillreel/pkg/util"
)

// Track is an audio file mixed under the video
type Track struct {
	Name   string
	Path   string
	Volume float64
}

// Runner executes an ffmpeg argument list and probes media lengths
type Runner interface {
	Run(ctx context.Context, opts fexec.RunOptions) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// LoopCount returns the smallest n >= 1 with n·track >= video
func LoopCount(track, video time.Duration) int {
	if track <= 0 || video <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(video) / float64(track)))
	if n < 1 {
		n = 1
	}
	return n
}

// planned is a track that exists and has a known length
type planned struct {
	Track
	Duration time.Duration
}

// Mixer loops, attenuates and mixes tracks to the video length
type Mixer struct {
	logger zerolog.Logger
	runner Runner
	codec  string
}

// NewMixer creates a mixer that runs its graphs through runner
func NewMixer(logger zerolog.Logger, runner Runner, codec string) *Mixer {
	if codec == "" {
		codec = fexec.DefaultAudioCodec
	}
	return &Mixer{
		logger: logger.With().Str("component", "audio").Logger(),
		runner: runner,
		codec:  codec,
	}
}

// plan drops tracks that are missing or cannot be probed
func (m *Mixer) plan(ctx context.Context, tracks []Track) []planned {
	var out []planned
	for _, t := range tracks {
		if t.Path == "" {
			continue
		}
		if !util.FileExists(t.Path) {
			m.logger.Warn().Str("track", t.Name).Str("path", t.Path).Msg("audio file not found, skipping")
			continue
		}
		d, err := m.runner.ProbeDuration(ctx, t.Path)
		if err != nil {
			m.logger.Warn().Err(err).Str("track", t.Name).Msg("audio probe failed, skipping")
			continue
		}
		out = append(out, planned{Track: t, Duration: d})
	}
	return out
}

// Mix writes the mixed soundtrack to output and returns the tracks used.
// No usable tracks means no file is written and the video stays silent.
func (m *Mixer) Mix(ctx context.Context, tracks []Track, video time.Duration, output string) ([]Track, error) {
	if video <= 0 {
		return nil, fmt.Errorf("video duration must be positive, got %v", video)
	}

	plan := m.plan(ctx, tracks)
	if len(plan) == 0 {
		m.logger.Info().Msg("no audio tracks available, output will be silent")
		return nil, nil
	}

	used := make([]Track, 0, len(plan))
	for _, p := range plan {
		m.logger.Info().
			Str("track", p.Name).
			Dur("length", p.Duration).
			Int("loops", LoopCount(p.Duration, video)).
			Float64("volume", p.Volume).
			Msg("mixing track")
		used = append(used, p.Track)
	}

	err := m.runner.Run(ctx, fexec.RunOptions{
		Args: mixArgs(plan, video, output, m.codec),
		LogHandler: func(line string) {
			m.logger.Debug().Str("ffmpeg", line).Msg("audio mix")
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: audio mix: %v", fexec.ErrEncode, err)
	}

	return used, nil
}

// mixArgs builds loop → volume → atrim per track, then amix, capped at the video length
func mixArgs(plan []planned, video time.Duration, output, codec string) []string {
	length := util.FormatSeconds(video)

	streams := make([]*ffmpeg.Stream, 0, len(plan))
	for _, p := range plan {
		in := ffmpeg.Input(p.Path, ffmpeg.KwArgs{"stream_loop": LoopCount(p.Duration, video) - 1})
		s := in.Audio().
			Filter("volume", ffmpeg.Args{fmt.Sprintf("%.2f", p.Volume)}).
			Filter("atrim", nil, ffmpeg.KwArgs{"duration": length})
		streams = append(streams, s)
	}

	mixed := streams[0]
	if len(streams) > 1 {
		mixed = ffmpeg.Filter(streams, "amix", nil, ffmpeg.KwArgs{
			"inputs":    len(streams),
			"duration":  "longest",
			"normalize": 0,
		})
	}

	return mixed.Output(output, ffmpeg.KwArgs{
		"t":   length,
		"c:a": codec,
	}).GetArgs()
}
