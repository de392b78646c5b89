package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/stillreel/internal/audio"
	"github.com/kikiluvv/stillreel/internal/clips"
	"github.com/kikiluvv/stillreel/internal/config"
	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
	"github.com/kikiluvv/stillreel/internal/frames"
	"github.com/kikiluvv/stillreel/internal/publish"
	"github.com/kikiluvv/stillreel/internal/quality"
	"github.com/kikiluvv/stillreel/internal/render"
	"github.com/kikiluvv/stillreel/internal/sources"
	"github.com/kikiluvv/stillreel/internal/youtube"
	"github.com/kikiluvv/stillreel/pkg/util"
)

// Pipeline orchestrates one video build from image URLs to the output file
type Pipeline struct {
	logger     zerolog.Logger
	cfg        *config.Config
	ffmpeg     *fexec.Executor
	source     sources.Source
	downloader *sources.Downloader
	gate       *quality.Gate
	renderer   *render.Renderer
	mixer      *audio.Mixer
}

// New validates cfg and wires the stages
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ffmpegExec, err := fexec.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	source, err := sources.New(logger, cfg)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		cfg:        cfg,
		ffmpeg:     ffmpegExec,
		source:     source,
		downloader: sources.NewDownloader(cfg.Download),
		gate:       quality.NewGate(logger, cfg.Quality.MinScore),
		renderer:   render.New(logger, cfg.FFmpeg.FPS),
		mixer:      audio.NewMixer(logger, ffmpegExec, cfg.FFmpeg.AudioCodec),
	}, nil
}

// Canvas returns the output frame size
func (p *Pipeline) Canvas() frames.Canvas {
	w, h := p.cfg.CanvasSize()
	return frames.Canvas{Width: w, Height: h}
}

// FetchImages lists image URLs for the configured keywords. It never
// fails; an empty slice means nothing usable was found.
func (p *Pipeline) FetchImages(ctx context.Context) []string {
	urls := p.source.Fetch(ctx, p.cfg.Keywords, p.cfg.MaxImages)
	p.logger.Info().
		Str("source", p.source.Name()).
		Str("keywords", p.cfg.Keywords).
		Int("urls", len(urls)).
		Msg("images fetched")
	return urls
}

// LoadStills downloads, decodes, scores and crops each URL in order.
// Every failure is carried on its Still instead of aborting.
func (p *Pipeline) LoadStills(ctx context.Context, urls []string) []clips.Still {
	canvas := p.Canvas()
	stills := make([]clips.Still, 0, len(urls))

	for i, url := range urls {
		st := clips.Still{Index: i, URL: url}
		img, err := p.loadStill(ctx, url, canvas)
		if err != nil {
			st.Err = err
			p.logger.Warn().Err(err).Int("index", i).Str("url", url).Msg("skipping image")
		} else {
			st.Image = img
			p.logger.Debug().Int("index", i).Str("url", url).Msg("image ready")
		}
		stills = append(stills, st)
	}
	return stills
}

func (p *Pipeline) loadStill(ctx context.Context, url string, canvas frames.Canvas) (*image.RGBA, error) {
	data, err := p.downloader.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := frames.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := p.gate.Check(url, img); err != nil {
		return nil, err
	}
	return frames.ResizeAndCrop(img, canvas), nil
}

// Create runs every stage and leaves the finished video at cfg.Output.
// Publishing failures are returned together with the result; the local
// output is kept.
func (p *Pipeline) Create(ctx context.Context, opts CreateOptions) (*Result, error) {
	cfg := p.cfg
	start := time.Now()

	res := &Result{RunID: uuid.NewString(), Seed: cfg.Seed}
	if res.Seed == 0 {
		res.Seed = time.Now().UnixNano()
	}

	log := p.logger.With().Str("run", res.RunID).Logger()
	log.Info().
		Str("mode", cfg.Mode).
		Str("format", cfg.Format).
		Str("canvas", p.Canvas().String()).
		Int("threads", p.ffmpeg.Threads()).
		Int64("seed", res.Seed).
		Msg("starting video creation")

	// Stage 1: images
	urls := p.FetchImages(ctx)
	stills := p.LoadStills(ctx, urls)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: timeline
	transitions, err := clips.ParseTransitions(cfg.Transitions)
	if err != nil {
		return nil, err
	}
	motion := frames.Motion{StartScale: cfg.Motion.StartScale, EndScale: cfg.Motion.EndScale}
	seq := clips.NewSequencer(rand.New(rand.NewSource(res.Seed)), transitions, motion)

	tl, err := seq.BuildTimeline(stills, cfg.Timing.DurationPerImage, cfg.Timing.Transition)
	if err != nil {
		log.Error().Err(err).Int("urls", len(urls)).Msg("no video created")
		return nil, err
	}
	res.Clips = tl.Len()
	res.Manifest = tl.Manifest
	res.Duration = tl.Duration()

	log.Info().
		Int("clips", tl.Len()).
		Int("failed", tl.Manifest.Len()).
		Dur("duration", res.Duration).
		Msg("timeline built")

	workDir, err := p.workDir(res.RunID)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	// Stage 3: render and encode
	video := filepath.Join(workDir, "slideshow.mp4")
	enc := p.encodeOptions(video)
	err = p.ffmpeg.EncodeRaw(ctx, enc, func(w io.Writer) error {
		n, err := p.renderer.Render(ctx, tl, w)
		log.Debug().Int("frames", n).Msg("frames rendered")
		return err
	})
	if err != nil {
		return nil, err
	}

	// Stage 4: external clips
	if cfg.ExternalClips.Enabled && cfg.ExternalClips.APIKey != "" {
		if combined, n := p.appendExternalClips(ctx, log, video, workDir); n > 0 {
			video = combined
			res.ExternalClips = n
			if d, err := p.ffmpeg.ProbeDuration(ctx, video); err == nil {
				res.Duration = d
			} else {
				log.Warn().Err(err).Msg("could not probe combined video")
			}
		}
	}

	// Stage 5: audio
	mixed := filepath.Join(workDir, "audio"+audioExt(cfg.FFmpeg.AudioCodec))
	used, err := p.mixer.Mix(ctx, p.tracks(), res.Duration, mixed)
	if err != nil {
		return nil, err
	}
	if len(used) > 0 {
		muxed := filepath.Join(workDir, "muxed.mp4")
		if err := p.ffmpeg.Mux(ctx, video, mixed, muxed, cfg.FFmpeg.AudioCodec); err != nil {
			return nil, err
		}
		video = muxed
		res.Audio = used
	}

	// Stage 6: subtitles
	if text := strings.TrimSpace(cfg.Subtitles.Text); text != "" {
		srt := filepath.Join(workDir, "subtitles.srt")
		cues := []fexec.Cue{{Start: 0, End: res.Duration, Text: text}}
		if err := fexec.WriteSRT(srt, cues); err != nil {
			return nil, fmt.Errorf("write subtitles: %w", err)
		}
		subtitled := filepath.Join(workDir, "subtitled.mp4")
		burn := enc
		burn.ProgressFunc = p.progressLogger("subtitles")
		if err := p.ffmpeg.ApplySubtitles(ctx, video, srt, subtitled, p.subtitleStyle(), burn); err != nil {
			return nil, err
		}
		video = subtitled
		res.Subtitled = true
	}

	// Stage 7: output
	if err := util.MoveFile(video, cfg.Output); err != nil {
		return nil, fmt.Errorf("write output %s: %w", cfg.Output, err)
	}
	res.Output = cfg.Output

	if cfg.Thumbnail {
		thumb := ThumbnailPath(cfg.Output)
		if err := p.ffmpeg.GenerateThumbnail(ctx, cfg.Output, thumb, res.Duration/2); err != nil {
			log.Warn().Err(err).Msg("thumbnail generation failed")
		} else {
			res.Thumbnail = thumb
		}
	}

	log.Info().
		Str("output", res.Output).
		Dur("duration", res.Duration).
		Int("clips", res.Clips).
		Int("external_clips", res.ExternalClips).
		Int("audio_tracks", len(res.Audio)).
		Dur("elapsed", time.Since(start)).
		Msg("video created")

	// Stage 8: publish
	if opts.Publish {
		locs, err := p.Publish(ctx, res.Output, res.RunID)
		res.Published = locs
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// Publish uploads an existing video to every configured target
func (p *Pipeline) Publish(ctx context.Context, path, runID string) ([]string, error) {
	return Publish(ctx, p.logger, p.cfg, path, runID)
}

// Publish uploads path without building a pipeline, so it needs no ffmpeg.
// An empty runID gets a fresh one.
func Publish(ctx context.Context, logger zerolog.Logger, cfg *config.Config, path, runID string) ([]string, error) {
	if !util.FileExists(path) {
		return nil, fmt.Errorf("publish: %s does not exist", path)
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	pubs, err := publish.FromConfig(ctx, logger, cfg.Publish)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	artifact := publish.Artifact{Path: path, RunID: runID, Title: cfg.Keywords}
	locs, err := publish.All(ctx, logger, pubs, artifact)
	if err != nil {
		return locs, fmt.Errorf("publish: %w", err)
	}
	return locs, nil
}

func (p *Pipeline) appendExternalClips(ctx context.Context, log zerolog.Logger, video, workDir string) (string, int) {
	ec := p.cfg.ExternalClips

	client, err := youtube.NewClient(ctx, p.logger, ec.APIKey)
	if err != nil {
		log.Warn().Err(err).Msg("external clips disabled")
		return video, 0
	}
	downloader, err := youtube.NewDownloader(p.logger, ec.YtDlpPath, filepath.Join(workDir, "downloads"))
	if err != nil {
		log.Warn().Err(err).Msg("external clips disabled")
		return video, 0
	}

	keywords := ec.Keywords
	if keywords == "" {
		keywords = p.cfg.Keywords
	}
	canvas := p.Canvas()

	collector := youtube.NewCollector(p.logger, client, downloader, p.ffmpeg)
	paths := collector.Collect(ctx,
		youtube.Criteria{MaxResults: ec.MaxResults, MaxDuration: ec.MaxDuration, MinViews: ec.MinViews},
		youtube.ClipSpec{
			Keywords:   keywords,
			MaxClips:   ec.MaxClips,
			Length:     ec.ClipLength,
			Width:      canvas.Width,
			Height:     canvas.Height,
			FPS:        p.cfg.FFmpeg.FPS,
			Dir:        workDir,
			VideoCodec: p.cfg.FFmpeg.VideoCodec,
			Preset:     p.cfg.FFmpeg.Preset,
			CRF:        p.cfg.FFmpeg.CRF,
			Progress:   p.progressLogger("clip"),
		})
	if len(paths) == 0 {
		return video, 0
	}

	combined := filepath.Join(workDir, "combined.mp4")
	err = p.ffmpeg.Concat(ctx, fexec.ConcatOptions{
		Inputs:       append([]string{video}, paths...),
		Output:       combined,
		ReEncode:     true,
		VideoCodec:   p.cfg.FFmpeg.VideoCodec,
		Preset:       p.cfg.FFmpeg.Preset,
		CRF:          p.cfg.FFmpeg.CRF,
		ProgressFunc: p.progressLogger("concat"),
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not append external clips")
		return video, 0
	}
	return combined, len(paths)
}

func (p *Pipeline) workDir(runID string) (string, error) {
	base := p.cfg.WorkDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "stillreel-"+runID)
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return dir, nil
}

func (p *Pipeline) encodeOptions(output string) fexec.EncodeOptions {
	canvas := p.Canvas()
	return fexec.EncodeOptions{
		Width:      canvas.Width,
		Height:     canvas.Height,
		FPS:        p.cfg.FFmpeg.FPS,
		VideoCodec:   p.cfg.FFmpeg.VideoCodec,
		Preset:       p.cfg.FFmpeg.Preset,
		CRF:          p.cfg.FFmpeg.CRF,
		Output:       output,
		ProgressFunc: p.progressLogger("encode"),
	}
}

// progressLogger reports ffmpeg progress blocks at debug level
func (p *Pipeline) progressLogger(stage string) fexec.ProgressFunc {
	log := p.logger.With().Str("stage", stage).Logger()
	return func(pr *fexec.Progress) {
		log.Debug().
			Int("frame", pr.Frame).
			Float64("fps", pr.FPS).
			Str("time", pr.Time).
			Str("speed", pr.Speed).
			Msg("ffmpeg progress")
	}
}

func (p *Pipeline) tracks() []audio.Track {
	a := p.cfg.Audio
	var tracks []audio.Track
	if a.BackgroundPath != "" {
		tracks = append(tracks, audio.Track{Name: "background", Path: a.BackgroundPath, Volume: a.BackgroundVolume})
	}
	if a.VoiceOverPath != "" {
		tracks = append(tracks, audio.Track{Name: "voice_over", Path: a.VoiceOverPath, Volume: a.VoiceOverVolume})
	}
	return tracks
}

func (p *Pipeline) subtitleStyle() fexec.SubtitleStyle {
	s := p.cfg.Subtitles
	return fexec.SubtitleStyle{
		FontName:     s.FontName,
		FontSize:     s.FontSize,
		PrimaryColor: s.FontColor,
		OutlineWidth: s.OutlineWidth,
	}
}

// ThumbnailPath swaps the output extension for .jpg
func ThumbnailPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".jpg"
}

func audioExt(codec string) string {
	switch codec {
	case "", "aac":
		return ".m4a"
	case "libmp3lame", "mp3":
		return ".mp3"
	case "libopus", "opus":
		return ".opus"
	default:
		return ".mka"
	}
}

// IsFatal reports whether err aborts a run
func IsFatal(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrEncode)
}
