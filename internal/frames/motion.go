package frames

import (
	"image"
	"math"
	"math/rand"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// Motion controls the Ken Burns zoom applied across a clip
type Motion struct {
	StartScale float64
	EndScale   float64
}

// DefaultMotion zooms to 105% over the clip
var DefaultMotion = Motion{StartScale: 1.0, EndScale: 1.05}

// PanDirection picks which edge the crop window travels toward on each
// axis. The zero value pans from the top-left corner to the bottom-right.
type PanDirection struct {
	ReverseX bool
	ReverseY bool
}

// RandomPan draws one direction per axis
func RandomPan(rng *rand.Rand) PanDirection {
	return PanDirection{
		ReverseX: rng.Intn(2) == 1,
		ReverseY: rng.Intn(2) == 1,
	}
}

// Window is the zoomed frame size and the crop offset inside it
type Window struct {
	Ratio  float64
	Width  int
	Height int
	X      int
	Y      int
}

// EvenCeil rounds x up to the next even integer
func EvenCeil(x float64) int {
	n := int(math.Ceil(x - 1e-9))
	if n%2 != 0 {
		n++
	}
	return n
}

// Geometry computes the pan/zoom window for a w×h frame at t seconds
// into a clip of length d
func Geometry(w, h int, t, d float64, dir PanDirection, m Motion) Window {
	p := 1.0
	if d > 0 {
		p = math.Max(0, math.Min(1, t/d))
	}

	ratio := m.StartScale + (m.EndScale-m.StartScale)*p
	zw := EvenCeil(float64(w) * ratio)
	zh := EvenCeil(float64(h) * ratio)
	if zw < w {
		zw = w
	}
	if zh < h {
		zh = h
	}

	return Window{
		Ratio:  ratio,
		Width:  zw,
		Height: zh,
		X:      travel(zw-w, p, dir.ReverseX),
		Y:      travel(zh-h, p, dir.ReverseY),
	}
}

func travel(span int, p float64, reverse bool) int {
	start, end := 0.0, float64(span)
	if reverse {
		start, end = end, start
	}
	return int(start + (end-start)*p)
}

// PanZoom renders frame zoomed and panned for time t of a clip lasting d seconds.
// The output keeps the input dimensions.
func PanZoom(frame *image.RGBA, t, d float64, dir PanDirection, m Motion) *image.RGBA {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	win := Geometry(w, h, t, d, dir, m)
	if win.Width == w && win.Height == h {
		return Clone(frame)
	}

	zoomed := resize.Resize(uint(win.Width), uint(win.Height), frame, resize.Bilinear)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sp := zoomed.Bounds().Min.Add(image.Pt(win.X, win.Y))
	xdraw.Draw(dst, dst.Bounds(), zoomed, sp, xdraw.Src)
	return dst
}

// ScaleCentered zooms into the center of frame by s (s <= 1 is a copy)
func ScaleCentered(frame *image.RGBA, s float64) *image.RGBA {
	if s <= 1 {
		return Clone(frame)
	}

	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	sw := int(math.Round(float64(w) / s))
	sh := int(math.Round(float64(h) / s))
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	x0 := frame.Rect.Min.X + (w-sw)/2
	y0 := frame.Rect.Min.Y + (h-sh)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, image.Rect(x0, y0, x0+sw, y0+sh), xdraw.Src, nil)
	return dst
}
