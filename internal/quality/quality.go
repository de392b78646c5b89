package quality

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// sampleSize bounds the longer side of the image that is actually scored
const sampleSize = 256

// Scores are the individual metrics and their weighted total, all in [0,1]
type Scores struct {
	Colorfulness float64
	Contrast     float64
	Brightness   float64
	Total        float64
}

// Score rates an image with simple colour and luminance heuristics
func Score(img image.Image) Scores {
	b := img.Bounds()
	if b.Empty() {
		return Scores{}
	}

	sample := imaging.Fit(img, sampleSize, sampleSize, imaging.Box)
	pixels := float64(len(sample.Pix) / 4)

	var rSum, gSum, bSum, lumSum, lumSqSum float64
	for i := 0; i+3 < len(sample.Pix); i += 4 {
		r := float64(sample.Pix[i])
		g := float64(sample.Pix[i+1])
		bl := float64(sample.Pix[i+2])

		rSum += r
		gSum += g
		bSum += bl

		lum := 0.299*r + 0.587*g + 0.114*bl
		lumSum += lum
		lumSqSum += lum * lum
	}

	rMean, gMean, bMean := rSum/pixels, gSum/pixels, bSum/pixels
	spread := math.Abs(rMean-gMean) + math.Abs(gMean-bMean) + math.Abs(bMean-rMean)
	colorfulness := math.Min(1, spread/255)

	mean := lumSum / pixels
	variance := math.Max(0, lumSqSum/pixels-mean*mean)
	// typical stddev sits in 0-60
	contrast := math.Min(1, math.Sqrt(variance)/60)

	// moderate exposure scores highest
	brightness := 1 - math.Min(1, math.Abs(mean-128)/128)

	total := 0.4*colorfulness + 0.3*contrast + 0.3*brightness

	return Scores{
		Colorfulness: colorfulness,
		Contrast:     contrast,
		Brightness:   brightness,
		Total:        math.Max(0, math.Min(1, total)),
	}
}

// Gate rejects stills whose total score falls below a threshold.
// A zero threshold accepts everything.
type Gate struct {
	logger   zerolog.Logger
	minScore float64
}

func NewGate(logger zerolog.Logger, minScore float64) *Gate {
	return &Gate{
		logger:   logger.With().Str("component", "quality").Logger(),
		minScore: minScore,
	}
}

func (g *Gate) Enabled() bool {
	return g != nil && g.minScore > 0
}

// Check scores img and returns an error when it is below the threshold
func (g *Gate) Check(url string, img image.Image) error {
	if !g.Enabled() {
		return nil
	}

	s := Score(img)
	g.logger.Debug().
		Str("url", url).
		Float64("colorfulness", s.Colorfulness).
		Float64("contrast", s.Contrast).
		Float64("brightness", s.Brightness).
		Float64("score", s.Total).
		Msg("quality scored")

	if s.Total < g.minScore {
		return fmt.Errorf("quality score %.3f below %.3f", s.Total, g.minScore)
	}
	return nil
}
