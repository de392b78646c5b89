package publish

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/kikiluvv/stillreel/internal/config"
)

// YouTube uploads videos with a service account
type YouTube struct {
	logger  zerolog.Logger
	service *yt.Service
	cfg     config.YouTubeConfig
}

// NewYouTube authenticates with the service account JSON in cfg
func NewYouTube(ctx context.Context, logger zerolog.Logger, cfg config.YouTubeConfig) (*YouTube, error) {
	data, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, yt.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := yt.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return newYouTube(logger, cfg, service), nil
}

func newYouTube(logger zerolog.Logger, cfg config.YouTubeConfig, service *yt.Service) *YouTube {
	return &YouTube{
		logger:  logger.With().Str("component", "youtube-upload").Logger(),
		service: service,
		cfg:     cfg,
	}
}

func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) metadata(a Artifact) *yt.Video {
	title := y.cfg.Title
	if title == "" {
		title = a.Title
	}
	if title == "" {
		title = a.RunID
	}

	privacy := y.cfg.Privacy
	if privacy == "" {
		privacy = "private"
	}

	return &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       TruncateTitle(title),
			Description: y.cfg.Description,
			Tags:        y.cfg.Tags,
			CategoryId:  y.cfg.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
		},
	}
}

// Publish uploads the artifact and returns the watch URL
func (y *YouTube) Publish(ctx context.Context, a Artifact) (string, error) {
	file, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}

	video := y.metadata(a)
	y.logger.Info().
		Str("path", a.Path).
		Str("title", video.Snippet.Title).
		Float64("mb", float64(info.Size())/(1024*1024)).
		Msg("uploading video")

	resp, err := y.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	return "https://www.youtube.com/watch?v=" + resp.Id, nil
}
