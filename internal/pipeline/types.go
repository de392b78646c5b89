package pipeline

import (
	"time"

	"github.com/kikiluvv/stillreel/internal/audio"
	"github.com/kikiluvv/stillreel/internal/clips"
	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
	"github.com/kikiluvv/stillreel/internal/frames"
	"github.com/kikiluvv/stillreel/internal/sources"
)

// Failure sentinels, matched with errors.Is. Only ErrEmptyInput and
// ErrEncode abort a run; the others are recorded per item.
var (
	ErrCredentialMissing = sources.ErrCredentialMissing
	ErrNetwork           = sources.ErrNetwork
	ErrImageDecode       = frames.ErrImageDecode
	ErrEmptyInput        = clips.ErrEmptyInput
	ErrEncode            = fexec.ErrEncode
)

// CreateOptions holds per-run switches that are not part of the config file
type CreateOptions struct {
	Publish bool
}

// Result describes a finished run
type Result struct {
	RunID    string
	Seed     int64
	Output   string
	Duration time.Duration

	// Clips is the number of stills on the timeline
	Clips         int
	ExternalClips int
	Manifest      *clips.Manifest
	Audio         []audio.Track
	Subtitled     bool
	Thumbnail     string
	Published     []string
}
