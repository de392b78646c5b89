package clips

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"time"

	"github.com/kikiluvv/stillreel/internal/frames"
)

// ErrEmptyInput is returned when no still survived fetching and decoding
var ErrEmptyInput = errors.New("no usable images")

// Still is a canvas-sized frame ready to become a clip, or the reason it
// could not be produced
type Still struct {
	Index int
	URL   string
	Image *image.RGBA
	Err   error
}

// Sequencer turns stills into a timeline. All randomness comes from rng.
type Sequencer struct {
	rng         *rand.Rand
	transitions []Transition
	motion      frames.Motion
}

// NewSequencer creates a sequencer. An empty transition set uses
// DefaultTransitions.
func NewSequencer(rng *rand.Rand, transitions []Transition, motion frames.Motion) *Sequencer {
	if len(transitions) == 0 {
		transitions = DefaultTransitions
	}
	return &Sequencer{
		rng:         rng,
		transitions: transitions,
		motion:      motion,
	}
}

// BuildTimeline wraps each usable still in a clip of length perClip.
// Failed stills are recorded in the manifest and skipped.
func (s *Sequencer) BuildTimeline(stills []Still, perClip, transition time.Duration) (*Timeline, error) {
	if perClip <= 0 {
		return nil, fmt.Errorf("clip duration must be positive, got %v", perClip)
	}
	if transition < 0 {
		transition = 0
	}
	if transition > perClip {
		transition = perClip
	}

	var tl *Timeline
	manifest := &Manifest{}

	for _, st := range stills {
		if st.Err != nil {
			manifest.Add(st.Index, st.URL, "load", st.Err)
			continue
		}
		if st.Image == nil {
			manifest.Add(st.Index, st.URL, "load", fmt.Errorf("missing frame"))
			continue
		}

		canvas := frames.Canvas{Width: st.Image.Rect.Dx(), Height: st.Image.Rect.Dy()}
		if tl == nil {
			tl = NewTimeline(canvas)
		} else if canvas != tl.Canvas {
			manifest.Add(st.Index, st.URL, "size", fmt.Errorf("frame %s does not match canvas %s", canvas, tl.Canvas))
			continue
		}

		clip := &Clip{
			ID:         fmt.Sprintf("clip_%03d", st.Index),
			Index:      st.Index,
			URL:        st.URL,
			Duration:   perClip,
			Transition: TransitionNone,
			Pan:        frames.RandomPan(s.rng),
			motion:     s.motion,
			still:      st.Image,
		}

		if prev := tl.Len(); prev > 0 {
			clip.Transition = s.transitions[s.rng.Intn(len(s.transitions))]
			clip.TransitionDuration = transition
			clip.Start = tl.All()[prev-1].End()
			if clip.Transition.Overlaps() {
				clip.Start -= transition
			}
		}

		tl.Add(clip)
	}

	if tl == nil {
		return nil, fmt.Errorf("%w: %d of %d inputs failed", ErrEmptyInput, manifest.Len(), len(stills))
	}
	tl.Manifest = manifest
	return tl, nil
}
