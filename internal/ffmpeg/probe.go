package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kikiluvv/stillreel/pkg/util"
)

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	output, err := e.probe(ctx, filePath)
	if err != nil {
		return nil, err
	}

	return parseProbe(filePath, output)
}

// ProbeDuration returns the container duration of a media file
func (e *Executor) ProbeDuration(ctx context.Context, filePath string) (time.Duration, error) {
	info, err := e.ProbeVideo(ctx, filePath)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("probe %s: no duration", filePath)
	}
	return info.Duration, nil
}

func (e *Executor) probe(ctx context.Context, filePath string) ([]byte, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return output, nil
}

// parseProbe reads ffprobe JSON output
func parseProbe(filePath string, output []byte) (*VideoInfo, error) {
	if !gjson.ValidBytes(output) {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s", filePath)
	}
	doc := gjson.ParseBytes(output)

	info := &VideoInfo{
		FilePath: filePath,
		Duration: util.FromSeconds(doc.Get("format.duration").Float()),
		Bitrate:  doc.Get("format.bit_rate").Int(),
	}

	doc.Get("streams").ForEach(func(_, stream gjson.Result) bool {
		switch stream.Get("codec_type").String() {
		case "video":
			if info.VideoCodec != "" {
				return true
			}
			info.Width = int(stream.Get("width").Int())
			info.Height = int(stream.Get("height").Int())
			info.VideoCodec = stream.Get("codec_name").String()
			if rate := stream.Get("r_frame_rate").String(); rate != "" {
				info.FPS = util.ParseFrameRate(rate)
			}
		case "audio":
			if info.HasAudio {
				return true
			}
			info.HasAudio = true
			info.AudioCodec = stream.Get("codec_name").String()
			info.AudioBitrate = stream.Get("bit_rate").Int()
		}
		return true
	})

	return info, nil
}
