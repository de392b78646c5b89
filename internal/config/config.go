package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Modes and formats accepted on the command line and in config files
const (
	ModeTest       = "test"
	ModeProduction = "production"

	FormatHorizontal = "horizontal"
	FormatVertical   = "vertical"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Mode      string `yaml:"mode"`
	Format    string `yaml:"format"`
	Keywords  string `yaml:"keywords"`
	MaxImages int    `yaml:"max_images"`
	Output    string `yaml:"output"`
	WorkDir   string `yaml:"work_dir"`
	Seed      int64  `yaml:"seed"`
	Thumbnail bool   `yaml:"thumbnail"`

	// Canvas overrides the format preset when both sides are set
	Canvas CanvasConfig `yaml:"canvas"`

	Timing        TimingConfig        `yaml:"timing"`
	Motion        MotionConfig        `yaml:"motion"`
	Transitions   []string            `yaml:"transitions"`
	Search        SearchConfig        `yaml:"search"`
	Download      DownloadConfig      `yaml:"download"`
	Quality       QualityConfig       `yaml:"quality"`
	Audio         AudioConfig         `yaml:"audio"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	Subtitles     SubtitleConfig      `yaml:"subtitles"`
	ExternalClips ExternalClipsConfig `yaml:"external_clips"`
	Publish       PublishConfig       `yaml:"publish"`
}

type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type TimingConfig struct {
	DurationPerImage time.Duration `yaml:"duration_per_image"`
	Transition       time.Duration `yaml:"transition"`
}

type MotionConfig struct {
	StartScale float64 `yaml:"start_scale"`
	EndScale   float64 `yaml:"end_scale"`
}

type SearchConfig struct {
	APIKey     string   `yaml:"api_key,omitempty"`
	CX         string   `yaml:"cx,omitempty"`
	SafeSearch string   `yaml:"safe"`
	ImageSize  string   `yaml:"image_size"`
	TestImages []string `yaml:"test_images"`
}

type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

type QualityConfig struct {
	MinScore float64 `yaml:"min_score"`
}

type AudioConfig struct {
	BackgroundPath   string  `yaml:"background_path"`
	BackgroundVolume float64 `yaml:"background_volume"`
	VoiceOverPath    string  `yaml:"voice_over_path"`
	VoiceOverVolume  float64 `yaml:"voice_over_volume"`
}

type FFmpegConfig struct {
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	FPS        int    `yaml:"fps"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
}

type SubtitleConfig struct {
	Text         string `yaml:"text"`
	FontName     string `yaml:"font_name"`
	FontSize     int    `yaml:"font_size"`
	FontColor    string `yaml:"font_color"`
	OutlineWidth int    `yaml:"outline_width"`
}

type ExternalClipsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Keywords    string        `yaml:"keywords"`
	MaxResults  int           `yaml:"max_results"`
	MaxClips    int           `yaml:"max_clips"`
	MaxDuration time.Duration `yaml:"max_duration"`
	MinViews    uint64        `yaml:"min_views"`
	ClipLength  time.Duration `yaml:"clip_length"`
	YtDlpPath   string        `yaml:"yt_dlp_path"`
}

type PublishConfig struct {
	S3      S3Config      `yaml:"s3"`
	YouTube YouTubeConfig `yaml:"youtube"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type YouTubeConfig struct {
	ServiceAccountFile string   `yaml:"service_account_file"`
	Title              string   `yaml:"title"`
	Description        string   `yaml:"description"`
	Tags               []string `yaml:"tags"`
	CategoryID         string   `yaml:"category_id"`
	Privacy            string   `yaml:"privacy"`
}

// Load reads configuration from file or returns defaults, then applies
// credentials from the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv fills credentials that are not set in the file from the environment
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Search.APIKey, "GOOGLE_API_KEY")
	setFromEnv(&c.Search.CX, "GOOGLE_CX")
	setFromEnv(&c.ExternalClips.APIKey, "YOUTUBE_API_KEY")
	setFromEnv(&c.Publish.S3.Bucket, "STILLREEL_S3_BUCKET")
	setFromEnv(&c.Publish.YouTube.ServiceAccountFile, "YOUTUBE_SERVICE_ACCOUNT")
}

func setFromEnv(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Save writes configuration to file, omitting credentials
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders the configuration as YAML without credentials
func (c *Config) Marshal() ([]byte, error) {
	redacted := *c
	redacted.Search.APIKey = ""
	redacted.ExternalClips.APIKey = ""
	return yaml.Marshal(&redacted)
}

// Validate reports the first setting that cannot produce a video
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeTest, ModeProduction:
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, ModeTest, ModeProduction)
	}

	switch c.Format {
	case FormatHorizontal, FormatVertical:
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", c.Format, FormatHorizontal, FormatVertical)
	}

	if c.Canvas.Width != 0 || c.Canvas.Height != 0 {
		if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
			return fmt.Errorf("canvas %dx%d: both sides must be positive", c.Canvas.Width, c.Canvas.Height)
		}
		if c.Canvas.Width%2 != 0 || c.Canvas.Height%2 != 0 {
			return fmt.Errorf("canvas %dx%d: both sides must be even", c.Canvas.Width, c.Canvas.Height)
		}
	}

	if c.MaxImages <= 0 {
		return fmt.Errorf("max_images must be positive, got %d", c.MaxImages)
	}
	if c.Timing.DurationPerImage <= 0 {
		return fmt.Errorf("duration_per_image must be positive, got %v", c.Timing.DurationPerImage)
	}
	if c.Timing.Transition < 0 || c.Timing.Transition >= c.Timing.DurationPerImage {
		return fmt.Errorf("transition %v must be in [0, %v)", c.Timing.Transition, c.Timing.DurationPerImage)
	}
	// pan-zoom starts from the uncropped still
	if c.Motion.StartScale != 1 {
		return fmt.Errorf("motion.start_scale must be 1, got %.3f", c.Motion.StartScale)
	}
	if c.Motion.EndScale < c.Motion.StartScale {
		return fmt.Errorf("motion scales %.3f -> %.3f: end must not shrink", c.Motion.StartScale, c.Motion.EndScale)
	}
	if c.FFmpeg.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FFmpeg.FPS)
	}
	// the encoder reads crf 0 as unset
	if c.FFmpeg.CRF < 1 || c.FFmpeg.CRF > 51 {
		return fmt.Errorf("crf must be between 1 and 51, got %d", c.FFmpeg.CRF)
	}
	for _, name := range c.Transitions {
		if !knownTransitions[name] {
			return fmt.Errorf("unknown transition %q", name)
		}
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

var knownTransitions = map[string]bool{
	"none":          true,
	"fade_in":       true,
	"fade_out":      true,
	"zoom_in_fade":  true,
	"zoom_out_fade": true,
}

// CanvasSize returns the frame dimensions for the configured format,
// honouring an explicit canvas override
func (c *Config) CanvasSize() (int, int) {
	if c.Canvas.Width > 0 && c.Canvas.Height > 0 {
		return c.Canvas.Width, c.Canvas.Height
	}
	if c.Format == FormatVertical {
		return 1080, 1920
	}
	return 1920, 1080
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Mode:      ModeTest,
		Format:    FormatHorizontal,
		Keywords:  "wizard of oz",
		MaxImages: 5,
		Output:    "output.mp4",
		Timing: TimingConfig{
			DurationPerImage: 2 * time.Second,
			Transition:       time.Second,
		},
		Motion: MotionConfig{
			StartScale: 1.0,
			EndScale:   1.05,
		},
		Transitions: []string{"fade_in", "fade_out", "zoom_in_fade", "zoom_out_fade"},
		Search: SearchConfig{
			SafeSearch: "medium",
			ImageSize:  "large",
			TestImages: []string{
				"https://i0.wp.com/www.thejudyroom.com/wp-content/uploads/2023/06/Munchkinland-Set-1-FX.jpg?ssl=1",
				"https://c8.alamy.com/comp/DWEEG0/judy-garland-on-set-of-the-film-the-wizard-of-oz-1939-DWEEG0.jpg",
				"http://farm4.staticflickr.com/3417/4626284019_9215b506bb_z.jpg",
			},
		},
		Download: DownloadConfig{
			Timeout:   30 * time.Second,
			MaxBytes:  25 << 20,
			UserAgent: "stillreel/1.0",
		},
		Audio: AudioConfig{
			BackgroundPath:   filepath.Join("audio", "background_audio", "background.mp3"),
			BackgroundVolume: 0.5,
			VoiceOverPath:    filepath.Join("audio", "voice_over", "voice_over.mp3"),
			VoiceOverVolume:  1.0,
		},
		FFmpeg: FFmpegConfig{
			Threads:    4,
			Preset:     "medium",
			CRF:        23,
			FPS:        24,
			VideoCodec: "libx264",
			AudioCodec: "aac",
		},
		Subtitles: SubtitleConfig{
			FontName:     "Arial",
			FontSize:     24,
			FontColor:    "&H00FFFFFF",
			OutlineWidth: 2,
		},
		ExternalClips: ExternalClipsConfig{
			MaxResults:  5,
			MaxClips:    1,
			MaxDuration: time.Minute,
			MinViews:    1000,
			ClipLength:  5 * time.Second,
			YtDlpPath:   "yt-dlp",
		},
		Publish: PublishConfig{
			S3: S3Config{
				Prefix: "videos",
			},
			YouTube: YouTubeConfig{
				CategoryID: "22",
				Privacy:    "private",
			},
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./stillreel.yaml",
		"./stillreel.yml",
		filepath.Join(os.Getenv("HOME"), ".stillreel", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
