package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/stillreel/internal/config"
	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	wide := pngBytes(t, 120, 60)
	tall := pngBytes(t, 40, 90)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wide.png":
			w.Write(wide)
		case "/tall.png":
			w.Write(tall)
		case "/garbage.png":
			w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Canvas = config.CanvasConfig{Width: 64, Height: 36}
	cfg.Timing.DurationPerImage = time.Second
	cfg.Timing.Transition = 250 * time.Millisecond
	cfg.FFmpeg.FPS = 10
	cfg.FFmpeg.Preset = "ultrafast"
	cfg.FFmpeg.Threads = 1
	cfg.Seed = 7
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.Output = filepath.Join(dir, "nested", "out.mp4")
	cfg.Audio.BackgroundPath = filepath.Join(dir, "missing-bg.mp3")
	cfg.Audio.VoiceOverPath = filepath.Join(dir, "missing-vo.mp3")
	return cfg
}

func TestThumbnailPath(t *testing.T) {
	assert.Equal(t, "out/video.jpg", ThumbnailPath("out/video.mp4"))
	assert.Equal(t, "video.jpg", ThumbnailPath("video"))
}

func TestAudioExt(t *testing.T) {
	assert.Equal(t, ".m4a", audioExt("aac"))
	assert.Equal(t, ".m4a", audioExt(""))
	assert.Equal(t, ".mp3", audioExt("libmp3lame"))
	assert.Equal(t, ".mka", audioExt("flac"))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrEmptyInput))
	assert.True(t, IsFatal(ErrEncode))
	assert.False(t, IsFatal(ErrNetwork))
	assert.False(t, IsFatal(ErrImageDecode))
	assert.False(t, IsFatal(ErrCredentialMissing))
}

func TestEncodeOptionsLogProgress(t *testing.T) {
	var buf bytes.Buffer
	p := &Pipeline{
		logger: zerolog.New(&buf).Level(zerolog.DebugLevel),
		cfg:    testConfig(t),
	}

	enc := p.encodeOptions("out.mp4")
	require.NotNil(t, enc.ProgressFunc)
	enc.ProgressFunc(&fexec.Progress{Frame: 48, FPS: 24, Time: "00:00:02.000000", Speed: "1.5x"})

	line := buf.String()
	assert.Contains(t, line, `"level":"debug"`)
	assert.Contains(t, line, `"stage":"encode"`)
	assert.Contains(t, line, `"frame":48`)
	assert.Contains(t, line, `"speed":"1.5x"`)
	assert.Contains(t, line, `"message":"ffmpeg progress"`)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FFmpeg.FPS = 0
	_, err := New(zerolog.Nop(), cfg)
	assert.Error(t, err)
}

func TestLoadStillsRecordsFailures(t *testing.T) {
	skipIfNoFFmpeg(t)
	srv := imageServer(t)

	p, err := New(zerolog.Nop(), testConfig(t))
	require.NoError(t, err)

	urls := []string{srv.URL + "/wide.png", srv.URL + "/missing.png", srv.URL + "/garbage.png", srv.URL + "/tall.png"}
	stills := p.LoadStills(context.Background(), urls)
	require.Len(t, stills, 4)

	for i, st := range stills {
		assert.Equal(t, i, st.Index)
		assert.Equal(t, urls[i], st.URL)
	}

	require.NoError(t, stills[0].Err)
	assert.Equal(t, image.Rect(0, 0, 64, 36), stills[0].Image.Rect)
	assert.ErrorIs(t, stills[1].Err, ErrNetwork)
	assert.ErrorIs(t, stills[2].Err, ErrImageDecode)
	require.NoError(t, stills[3].Err)
	assert.Equal(t, image.Rect(0, 0, 64, 36), stills[3].Image.Rect)
}

func TestQualityGateRejectsStills(t *testing.T) {
	skipIfNoFFmpeg(t)
	srv := imageServer(t)

	cfg := testConfig(t)
	cfg.Quality.MinScore = 0.99
	cfg.Search.TestImages = []string{srv.URL + "/wide.png"}

	p, err := New(zerolog.Nop(), cfg)
	require.NoError(t, err)

	_, err = p.Create(context.Background(), CreateOptions{})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.NoFileExists(t, cfg.Output)
}

func TestProductionWithoutCredentialsWritesNothing(t *testing.T) {
	skipIfNoFFmpeg(t)
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_CX", "")

	cfg := testConfig(t)
	cfg.Mode = config.ModeProduction

	p, err := New(zerolog.Nop(), cfg)
	require.NoError(t, err)

	assert.Empty(t, p.FetchImages(context.Background()))

	res, err := p.Create(context.Background(), CreateOptions{})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, res)
	assert.NoFileExists(t, cfg.Output)
	assert.NoDirExists(t, filepath.Dir(cfg.Output))
}

func TestCreateTestMode(t *testing.T) {
	skipIfNoFFmpeg(t)
	srv := imageServer(t)

	cfg := testConfig(t)
	cfg.Search.TestImages = []string{srv.URL + "/wide.png", srv.URL + "/missing.png", srv.URL + "/tall.png", srv.URL + "/wide.png"}
	cfg.Thumbnail = true

	p, err := New(zerolog.Nop(), cfg)
	require.NoError(t, err)

	ctx := context.Background()
	res, err := p.Create(ctx, CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, cfg.Output, res.Output)
	assert.Equal(t, 3, res.Clips)
	assert.Equal(t, 1, res.Manifest.Len())
	assert.Equal(t, 1, res.Manifest.Failures[0].Index)
	assert.Empty(t, res.Audio)
	assert.Equal(t, int64(7), res.Seed)
	assert.NotEmpty(t, res.RunID)
	assert.FileExists(t, res.Thumbnail)

	// three 1s clips, each boundary overlapping by at most the transition
	assert.GreaterOrEqual(t, res.Duration, 2500*time.Millisecond)
	assert.LessOrEqual(t, res.Duration, 3*time.Second)

	prober, err := fexec.New(zerolog.Nop(), 1)
	require.NoError(t, err)
	info, err := prober.ProbeVideo(ctx, res.Output)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 36, info.Height)
	assert.False(t, info.HasAudio)
	assert.InDelta(t, res.Duration.Seconds(), info.Duration.Seconds(), 0.2)

	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateIsReproducibleForSeed(t *testing.T) {
	skipIfNoFFmpeg(t)
	srv := imageServer(t)

	durations := make([]time.Duration, 2)
	for i := range durations {
		cfg := testConfig(t)
		cfg.Search.TestImages = []string{srv.URL + "/wide.png", srv.URL + "/tall.png", srv.URL + "/wide.png", srv.URL + "/tall.png"}

		p, err := New(zerolog.Nop(), cfg)
		require.NoError(t, err)
		res, err := p.Create(context.Background(), CreateOptions{})
		require.NoError(t, err)
		durations[i] = res.Duration
	}
	assert.Equal(t, durations[0], durations[1])
}

func TestPublishWithoutTargets(t *testing.T) {
	skipIfNoFFmpeg(t)
	t.Setenv("STILLREEL_S3_BUCKET", "")
	t.Setenv("YOUTUBE_SERVICE_ACCOUNT", "")

	p, err := New(zerolog.Nop(), testConfig(t))
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), "/does/not/exist.mp4", "")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = p.Publish(context.Background(), file, "")
	assert.Error(t, err)
}
