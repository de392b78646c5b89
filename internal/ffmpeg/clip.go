package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/stillreel/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start    time.Duration
	Duration time.Duration
	Output   string

	// Width/Height scale-to-cover and center crop the segment when set
	Width  int
	Height int
	FPS    int

	DropAudio    bool
	VideoCodec   string
	AudioCodec   string
	Preset       string
	CRF          int // Quality (0-51, lower = better)
	ProgressFunc ProgressFunc
}

// clipArgs seeks before the input so long downloads are not decoded from the start
func clipArgs(input string, opts ClipOptions, threads int) []string {
	args := []string{
		"-ss", util.FormatSeconds(opts.Start),
		"-i", input,
		"-t", util.FormatSeconds(opts.Duration),
	}

	filters := NewFilterBuilder().
		Cover(opts.Width, opts.Height).
		SAR().
		FPS(float64(opts.FPS))
	if vf := filters.Build(); vf != "" {
		args = append(args, "-vf", vf)
	}

	codec := opts.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	args = append(args, "-c:v", codec)
	args = append(args, threadArgs(threads)...)
	args = append(args,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", "yuv420p",
	)

	if opts.DropAudio {
		args = append(args, "-an")
	} else {
		audioCodec := opts.AudioCodec
		if audioCodec == "" {
			audioCodec = DefaultAudioCodec
		}
		args = append(args, "-c:a", audioCodec)
	}

	return append(args, opts.Output)
}

// ExtractClip cuts and re-encodes a segment from a video
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("invalid clip duration %v", opts.Duration)
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", opts.Duration).
		Msg("extracting clip")

	runOpts := RunOptions{
		Args:            clipArgs(input, opts, e.threads),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// MiddleWindow returns the start of a length-long window centered in total.
// A clip longer than the video starts at zero.
func MiddleWindow(total, length time.Duration) time.Duration {
	if length >= total {
		return 0
	}
	return (total - length) / 2
}
