package ffmpeg

import (
	"context"
	"fmt"
	"io"
)

// encodeArgs builds the rawvideo-on-stdin to H.264 invocation
func encodeArgs(opts EncodeOptions, threads int) []string {
	opts = opts.withDefaults()
	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", fmt.Sprintf("%d", opts.FPS),
		"-i", "pipe:0",
		"-an",
		"-c:v", opts.VideoCodec,
	}
	args = append(args, threadArgs(threads)...)
	return append(args,
		"-preset", opts.Preset,
		"-crf", fmt.Sprintf("%d", opts.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		opts.Output,
	)
}

// EncodeRaw runs ffmpeg reading raw RGBA frames that produce writes.
// produce runs on its own goroutine; its error is reported alongside any
// ffmpeg failure.
func (e *Executor) EncodeRaw(ctx context.Context, opts EncodeOptions, produce func(w io.Writer) error) error {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%2 != 0 || opts.Height%2 != 0 {
		return fmt.Errorf("%w: frame size %dx%d must be positive and even", ErrEncode, opts.Width, opts.Height)
	}
	if opts.Output == "" {
		return fmt.Errorf("%w: output path is required", ErrEncode)
	}

	e.logger.Info().
		Str("output", opts.Output).
		Int("width", opts.Width).
		Int("height", opts.Height).
		Int("fps", opts.withDefaults().FPS).
		Msg("encoding frames")

	pr, pw := io.Pipe()
	produced := make(chan error, 1)
	go func() {
		err := produce(pw)
		pw.CloseWithError(err)
		produced <- err
	}()

	runErr := e.Run(ctx, RunOptions{
		Args:            encodeArgs(opts, e.threads),
		Stdin:           pr,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("encode output")
		},
	})
	// unblock the producer if ffmpeg stopped reading early
	pr.CloseWithError(io.ErrClosedPipe)
	prodErr := <-produced

	if runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrEncode, runErr)
	}
	if prodErr != nil {
		return fmt.Errorf("%w: frame producer: %v", ErrEncode, prodErr)
	}

	e.logger.Info().Str("output", opts.Output).Msg("encode complete")
	return nil
}

// muxArgs copies the video stream and encodes the audio next to it
func muxArgs(video, audio, output, audioCodec string) []string {
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	return []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", audioCodec,
		"-shortest",
		"-movflags", "+faststart",
		output,
	}
}

// Mux adds an audio track to a video without re-encoding the video
func (e *Executor) Mux(ctx context.Context, video, audio, output, audioCodec string) error {
	if video == "" || audio == "" || output == "" {
		return fmt.Errorf("%w: mux needs video, audio and output paths", ErrEncode)
	}

	e.logger.Info().
		Str("video", video).
		Str("audio", audio).
		Str("output", output).
		Msg("muxing audio")

	err := e.Run(ctx, RunOptions{
		Args: muxArgs(video, audio, output, audioCodec),
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("mux output")
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: mux: %v", ErrEncode, err)
	}
	return nil
}
