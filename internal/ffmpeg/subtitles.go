package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kikiluvv/stillreel/pkg/util"
)

// SubtitleStyle maps onto libass force_style overrides
type SubtitleStyle struct {
	FontName     string
	FontSize     int
	PrimaryColor string
	OutlineWidth int
}

// ForceStyle renders the style as a force_style value
func (s SubtitleStyle) ForceStyle() string {
	var parts []string
	if s.FontName != "" {
		parts = append(parts, "FontName="+s.FontName)
	}
	if s.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("FontSize=%d", s.FontSize))
	}
	if s.PrimaryColor != "" {
		parts = append(parts, "PrimaryColour="+s.PrimaryColor)
	}
	if s.OutlineWidth > 0 {
		parts = append(parts, "BorderStyle=1", fmt.Sprintf("Outline=%d", s.OutlineWidth))
	}
	parts = append(parts, "Alignment=2")
	return strings.Join(parts, ",")
}

// Cue is one subtitle entry
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// FormatSRT renders cues as SubRip text
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, util.FormatSRT(c.Start), util.FormatSRT(c.End), strings.TrimSpace(c.Text))
	}
	return b.String()
}

// WriteSRT writes cues to path
func WriteSRT(path string, cues []Cue) error {
	if err := util.EnsureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(FormatSRT(cues)), 0644)
}

// ApplySubtitles burns subtitles into the video
func (e *Executor) ApplySubtitles(ctx context.Context, input, subtitles, output string, style SubtitleStyle, enc EncodeOptions) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if subtitles == "" {
		return fmt.Errorf("subtitles path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("subtitles", subtitles).
		Str("output", output).
		Msg("applying subtitles")

	if err := e.Run(ctx, RunOptions{
		Args:            subtitleArgs(input, subtitles, output, style, enc, e.threads),
		ProgressHandler: enc.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("subtitle output")
		},
	}); err != nil {
		return fmt.Errorf("%w: subtitles: %v", ErrEncode, err)
	}

	e.logger.Info().Str("output", output).Msg("subtitles applied")
	return nil
}

func subtitleArgs(input, subtitles, output string, style SubtitleStyle, enc EncodeOptions, threads int) []string {
	enc = enc.withDefaults()
	vf := NewFilterBuilder().Subtitles(subtitles, style.ForceStyle()).Build()
	args := []string{
		"-i", input,
		"-vf", vf,
		"-c:v", enc.VideoCodec,
	}
	args = append(args, threadArgs(threads)...)
	return append(args,
		"-preset", enc.Preset,
		"-crf", fmt.Sprintf("%d", enc.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart",
		output,
	)
}

// escapeFilterPath escapes a file path for use inside a filter argument
func escapeFilterPath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	if runtime.GOOS == "windows" {
		absPath = strings.ReplaceAll(absPath, "\\", "/")
	}

	escaped := strings.ReplaceAll(absPath, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, ":", "\\:")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	escaped = strings.ReplaceAll(escaped, ",", "\\,")

	return escaped
}
