package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/kikiluvv/stillreel/internal/clips"
)

// Renderer turns a timeline into raw RGBA frames at a fixed rate
type Renderer struct {
	logger zerolog.Logger
	fps    int
}

// New creates a renderer
func New(logger zerolog.Logger, fps int) *Renderer {
	return &Renderer{
		logger: logger.With().Str("component", "render").Logger(),
		fps:    fps,
	}
}

// FPS returns the output frame rate
func (r *Renderer) FPS() int {
	return r.fps
}

// FrameCount returns round(d·fps)
func FrameCount(d time.Duration, fps int) int {
	return int(math.Round(d.Seconds() * float64(fps)))
}

// FrameTime returns the timeline offset of frame i
func FrameTime(i, fps int) time.Duration {
	return time.Duration(float64(i) / float64(fps) * float64(time.Second))
}

// ComposeAt draws every clip active at the given time over black
func (r *Renderer) ComposeAt(tl *clips.Timeline, at time.Duration) *image.RGBA {
	canvas := image.NewRGBA(tl.Canvas.Bounds())
	xdraw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, xdraw.Src)

	for _, clip := range tl.Active(at) {
		local := at - clip.Start
		opacity := clip.Opacity(local)
		if opacity <= 0 {
			continue
		}

		frame := clip.Frame(local)
		if opacity >= 1 {
			xdraw.Draw(canvas, canvas.Bounds(), frame, frame.Rect.Min, xdraw.Over)
			continue
		}
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
		xdraw.DrawMask(canvas, canvas.Bounds(), frame, frame.Rect.Min, mask, image.Point{}, xdraw.Over)
	}

	return canvas
}

// Render streams every frame of tl to w and returns the frame count
func (r *Renderer) Render(ctx context.Context, tl *clips.Timeline, w io.Writer) (int, error) {
	if tl == nil || tl.Len() == 0 {
		return 0, clips.ErrEmptyInput
	}

	total := FrameCount(tl.Duration(), r.fps)
	r.logger.Info().
		Int("frames", total).
		Int("fps", r.fps).
		Str("canvas", tl.Canvas.String()).
		Dur("duration", tl.Duration()).
		Msg("rendering timeline")

	start := time.Now()
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		frame := r.ComposeAt(tl, FrameTime(i, r.fps))
		if _, err := w.Write(frame.Pix); err != nil {
			return i, fmt.Errorf("write frame %d: %w", i, err)
		}

		if r.fps > 0 && (i+1)%(r.fps*5) == 0 {
			r.logger.Debug().
				Int("frame", i+1).
				Int("total", total).
				Float64("percent", float64(i+1)/float64(total)*100).
				Msg("render progress")
		}
	}

	r.logger.Info().
		Int("frames", total).
		Dur("elapsed", time.Since(start)).
		Msg("render complete")

	return total, nil
}
