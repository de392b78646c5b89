package youtube

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/stillreel/pkg/util"
)

// Downloader fetches videos with yt-dlp
type Downloader struct {
	logger zerolog.Logger
	path   string
	dir    string
}

// NewDownloader resolves the yt-dlp binary and writes into dir
func NewDownloader(logger zerolog.Logger, binary, dir string) (*Downloader, error) {
	if binary == "" {
		binary = "yt-dlp"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found in PATH: %w", err)
	}
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}

	return &Downloader{
		logger: logger.With().Str("component", "yt-dlp").Logger(),
		path:   path,
		dir:    dir,
	}, nil
}

func downloadArgs(url, output string) []string {
	return []string{
		"-f", "mp4[height<=720]",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"-o", output,
		url,
	}
}

// Download saves the video and returns its path
func (d *Downloader) Download(ctx context.Context, v Video) (string, error) {
	output := filepath.Join(d.dir, v.ID+".mp4")

	d.logger.Info().Str("id", v.ID).Str("title", v.Title).Msg("downloading video")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.path, downloadArgs(v.URL(), output)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp %s: %w: %s", v.ID, err, strings.TrimSpace(stderr.String()))
	}
	if !util.FileExists(output) {
		return "", fmt.Errorf("yt-dlp %s: no file at %s", v.ID, output)
	}
	return output, nil
}
