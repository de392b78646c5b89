package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kikiluvv/stillreel/internal/config"
)

// Downloader fetches image bytes over HTTP
type Downloader struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewDownloader creates a downloader from config
func NewDownloader(cfg config.DownloadConfig) *Downloader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Downloader{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// Fetch downloads url. Transport failures, non-2xx statuses and bodies
// over the size cap are ErrNetwork.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrNetwork, url, resp.Status)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrNetwork, url, err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrNetwork, url, d.maxBytes)
	}
	return data, nil
}
