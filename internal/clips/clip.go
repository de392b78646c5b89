package clips

import (
	"image"
	"time"

	"github.com/kikiluvv/stillreel/internal/frames"
)

// Clip is one still on the timeline with its motion and entry transition
type Clip struct {
	ID                 string
	Index              int
	URL                string
	Start              time.Duration
	Duration           time.Duration
	Transition         Transition
	TransitionDuration time.Duration
	Pan                frames.PanDirection

	motion frames.Motion
	still  *image.RGBA
}

// End returns the timeline offset where the clip stops
func (c *Clip) End() time.Duration {
	return c.Start + c.Duration
}

// Covers reports whether timeline time at falls inside the clip
func (c *Clip) Covers(at time.Duration) bool {
	return at >= c.Start && at < c.End()
}

// Frame renders the clip t after its own start. The result always has
// the still's dimensions.
func (c *Clip) Frame(t time.Duration) *image.RGBA {
	sec := t.Seconds()
	frame := frames.PanZoom(c.still, sec, c.Duration.Seconds(), c.Pan, c.motion)
	if s := c.Transition.Scale(sec); s > 1 {
		frame = frames.ScaleCentered(frame, s)
	}
	return frame
}

// Opacity returns the compositing weight in [0,1] t after the clip start
func (c *Clip) Opacity(t time.Duration) float64 {
	td := c.TransitionDuration
	if td <= 0 {
		return 1
	}

	switch {
	case c.Transition.Overlaps():
		if t < td {
			return clamp01(float64(t) / float64(td))
		}
	case c.Transition == FadeOut:
		if remaining := c.Duration - t; remaining < td {
			return clamp01(float64(remaining) / float64(td))
		}
	}
	return 1
}

// Bounds returns the frame rectangle
func (c *Clip) Bounds() image.Rectangle {
	return c.still.Rect
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
