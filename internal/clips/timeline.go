package clips

import (
	"time"

	"github.com/kikiluvv/stillreel/internal/frames"
)

// Failure records an input that was skipped
type Failure struct {
	Index  int
	URL    string
	Reason string
	Err    error
}

// Manifest collects per-item failures for a run
type Manifest struct {
	Failures []Failure
}

// Add records a failure
func (m *Manifest) Add(index int, url, reason string, err error) {
	m.Failures = append(m.Failures, Failure{Index: index, URL: url, Reason: reason, Err: err})
}

// Len returns the number of recorded failures
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Failures)
}

// Timeline holds ordered clips with their start offsets
type Timeline struct {
	Canvas   frames.Canvas
	Manifest *Manifest

	clips []*Clip
}

// NewTimeline creates an empty timeline for canvas
func NewTimeline(canvas frames.Canvas) *Timeline {
	return &Timeline{
		Canvas:   canvas,
		Manifest: &Manifest{},
		clips:    make([]*Clip, 0),
	}
}

// Add appends a clip
func (tl *Timeline) Add(clip *Clip) {
	tl.clips = append(tl.clips, clip)
}

// Get retrieves a clip by ID
func (tl *Timeline) Get(id string) *Clip {
	for _, clip := range tl.clips {
		if clip.ID == id {
			return clip
		}
	}
	return nil
}

// All returns all clips in playback order
func (tl *Timeline) All() []*Clip {
	return tl.clips
}

// Len returns the clip count
func (tl *Timeline) Len() int {
	return len(tl.clips)
}

// Duration is the end of the last-ending clip
func (tl *Timeline) Duration() time.Duration {
	var end time.Duration
	for _, clip := range tl.clips {
		if e := clip.End(); e > end {
			end = e
		}
	}
	return end
}

// Active returns the clips visible at timeline time at, bottom first
func (tl *Timeline) Active(at time.Duration) []*Clip {
	var active []*Clip
	for _, clip := range tl.clips {
		if clip.Covers(at) {
			active = append(active, clip)
		}
	}
	return active
}
