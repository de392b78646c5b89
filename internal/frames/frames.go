package frames

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageDecode marks bytes that are not a supported still image
var ErrImageDecode = errors.New("image decode failed")

// Canvas is the output frame size for a run
type Canvas struct {
	Width  int
	Height int
}

var (
	Horizontal = Canvas{Width: 1920, Height: 1080}
	Vertical   = Canvas{Width: 1080, Height: 1920}
)

// Ratio returns width over height
func (c Canvas) Ratio() float64 {
	return float64(c.Width) / float64(c.Height)
}

// Bounds returns the canvas rectangle anchored at the origin
func (c Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// Valid reports whether both sides are positive and even, which yuv420p needs
func (c Canvas) Valid() bool {
	return c.Width > 0 && c.Height > 0 && c.Width%2 == 0 && c.Height%2 == 0
}

func (c Canvas) String() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Decode reads a JPEG, PNG, GIF or WebP still
func Decode(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrImageDecode, format)
	}
	return img, nil
}

// CropWindow returns the largest centered rectangle of img with the
// canvas aspect ratio. Each side is at least one pixel.
func CropWindow(bounds image.Rectangle, canvas Canvas) image.Rectangle {
	w, h := int64(bounds.Dx()), int64(bounds.Dy())
	cw, ch := int64(canvas.Width), int64(canvas.Height)

	cropW, cropH := w, h
	if w*ch > h*cw {
		// wider than target: keep full height
		cropW = (h*cw + ch/2) / ch
	} else {
		cropH = (w*ch + cw/2) / cw
	}
	cropW = clamp64(cropW, 1, w)
	cropH = clamp64(cropH, 1, h)

	x0 := bounds.Min.X + int((w-cropW)/2)
	y0 := bounds.Min.Y + int((h-cropH)/2)
	return image.Rect(x0, y0, x0+int(cropW), y0+int(cropH))
}

// ResizeAndCrop fits img to the canvas without distortion, cropping the
// overflowing axis around the center
func ResizeAndCrop(img image.Image, canvas Canvas) *image.RGBA {
	window := CropWindow(img.Bounds(), canvas)
	cropped := imaging.Crop(img, window)
	scaled := resize.Resize(uint(canvas.Width), uint(canvas.Height), cropped, resize.Lanczos3)
	return toRGBA(scaled, canvas)
}

// toRGBA copies img into a fresh canvas-sized RGBA anchored at the origin
func toRGBA(img image.Image, canvas Canvas) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == canvas.Bounds() {
		return rgba
	}
	dst := image.NewRGBA(canvas.Bounds())
	xdraw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, xdraw.Src)
	return dst
}

// Clone returns a deep copy of frame
func Clone(frame *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, frame.Rect.Dx(), frame.Rect.Dy()))
	xdraw.Draw(dst, dst.Bounds(), frame, frame.Rect.Min, xdraw.Src)
	return dst
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
