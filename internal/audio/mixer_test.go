package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
)

type recordingRunner struct {
	args     []string
	err      error
	lengths  map[string]time.Duration
	probeCtx []context.Context
}

func (r *recordingRunner) Run(_ context.Context, opts fexec.RunOptions) error {
	r.args = opts.Args
	return r.err
}

func (r *recordingRunner) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	r.probeCtx = append(r.probeCtx, ctx)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d, ok := r.lengths[filepath.Base(path)]
	if !ok {
		return 0, errors.New("unreadable")
	}
	return d, nil
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestLoopCount(t *testing.T) {
	tests := []struct {
		track, video time.Duration
		want         int
	}{
		{3 * time.Second, 10 * time.Second, 4},
		{5 * time.Second, 10 * time.Second, 2},
		{30 * time.Second, 10 * time.Second, 1},
		{10 * time.Second, 10 * time.Second, 1},
		{0, 10 * time.Second, 1},
	}

	for _, tt := range tests {
		got := LoopCount(tt.track, tt.video)
		assert.Equal(t, tt.want, got, "track %v video %v", tt.track, tt.video)
		if tt.track > 0 {
			assert.GreaterOrEqual(t, time.Duration(got)*tt.track, tt.video)
		}
	}
}

type ctxKey struct{}

func TestMixPassesContextToLengthLookup(t *testing.T) {
	dir := t.TempDir()
	bg := touch(t, dir, "background.mp3")
	runner := &recordingRunner{lengths: map[string]time.Duration{"background.mp3": 3 * time.Second}}
	m := NewMixer(zerolog.Nop(), runner, "")

	ctx := context.WithValue(context.Background(), ctxKey{}, "run-1")
	_, err := m.Mix(ctx, []Track{{Name: "background", Path: bg, Volume: 1}}, 10*time.Second, filepath.Join(dir, "mix.m4a"))
	require.NoError(t, err)
	require.Len(t, runner.probeCtx, 1)
	assert.Equal(t, "run-1", runner.probeCtx[0].Value(ctxKey{}))

	// a cancelled run reads no lengths and mixes nothing
	runner = &recordingRunner{lengths: runner.lengths}
	m = NewMixer(zerolog.Nop(), runner, "")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	used, err := m.Mix(cancelled, []Track{{Name: "background", Path: bg, Volume: 1}}, 10*time.Second, filepath.Join(dir, "mix.m4a"))
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Nil(t, runner.args)
}

func TestMixTwoTracks(t *testing.T) {
	dir := t.TempDir()
	bg := touch(t, dir, "background.mp3")
	vo := touch(t, dir, "voice.mp3")

	runner := &recordingRunner{lengths: map[string]time.Duration{
		"background.mp3": 3 * time.Second,
		"voice.mp3":      12 * time.Second,
	}}
	m := NewMixer(zerolog.Nop(), runner, "")

	used, err := m.Mix(context.Background(), []Track{
		{Name: "background", Path: bg, Volume: 0.5},
		{Name: "voice_over", Path: vo, Volume: 1.0},
	}, 10*time.Second, filepath.Join(dir, "mix.m4a"))
	require.NoError(t, err)
	assert.Len(t, used, 2)

	joined := strings.Join(runner.args, " ")
	assert.Contains(t, joined, "-stream_loop 3 -i "+bg)
	assert.Contains(t, joined, "-stream_loop 0 -i "+vo)
	assert.Contains(t, joined, "volume=0.50")
	assert.Contains(t, joined, "volume=1.00")
	assert.Contains(t, joined, "atrim=duration=10.000")
	assert.Contains(t, joined, "amix=")
	assert.Contains(t, joined, "inputs=2")
	assert.Contains(t, joined, "normalize=0")
	assert.Contains(t, joined, "-t 10.000")
	assert.Equal(t, filepath.Join(dir, "mix.m4a"), runner.args[len(runner.args)-1])
}

func TestMixSkipsMissingAndUnreadable(t *testing.T) {
	dir := t.TempDir()
	bg := touch(t, dir, "background.mp3")
	broken := touch(t, dir, "broken.mp3")

	runner := &recordingRunner{lengths: map[string]time.Duration{
		"background.mp3": 4 * time.Second,
	}}
	m := NewMixer(zerolog.Nop(), runner, "aac")

	used, err := m.Mix(context.Background(), []Track{
		{Name: "background", Path: bg, Volume: 0.5},
		{Name: "voice_over", Path: filepath.Join(dir, "missing.mp3"), Volume: 1},
		{Name: "other", Path: broken, Volume: 1},
	}, 10*time.Second, filepath.Join(dir, "mix.m4a"))
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, "background", used[0].Name)

	joined := strings.Join(runner.args, " ")
	assert.NotContains(t, joined, "amix")
	assert.Contains(t, joined, "-stream_loop 2")
}

func TestMixNoTracksIsSilent(t *testing.T) {
	runner := &recordingRunner{}
	m := NewMixer(zerolog.Nop(), runner, "")

	used, err := m.Mix(context.Background(), []Track{
		{Name: "background", Path: filepath.Join(t.TempDir(), "absent.mp3"), Volume: 0.5},
	}, 5*time.Second, "mix.m4a")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Nil(t, runner.args)
}

func TestMixFailureIsEncodeError(t *testing.T) {
	dir := t.TempDir()
	bg := touch(t, dir, "background.mp3")

	runner := &recordingRunner{
		err:     errors.New("exit status 1"),
		lengths: map[string]time.Duration{"background.mp3": time.Second},
	}
	m := NewMixer(zerolog.Nop(), runner, "")

	_, err := m.Mix(context.Background(), []Track{{Name: "bg", Path: bg, Volume: 0.5}}, 2*time.Second, "mix.m4a")
	assert.ErrorIs(t, err, fexec.ErrEncode)
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
}

func TestMixLoopsShortTrackToVideoLength(t *testing.T) {
	skipIfNoFFmpeg(t)

	ex, err := fexec.New(zerolog.Nop(), 1)
	require.NoError(t, err)

	ctx := context.Background()
	dir := t.TempDir()
	bg := filepath.Join(dir, "background.wav")
	require.NoError(t, ex.Run(ctx, fexec.RunOptions{Args: []string{
		"-f", "lavfi",
		"-i", "sine=frequency=440:sample_rate=48000:duration=3",
		"-c:a", "pcm_s16le",
		bg,
	}}))

	trackLen, err := ex.ProbeDuration(ctx, bg)
	require.NoError(t, err)
	require.Less(t, trackLen, 10*time.Second)

	const fps = 24
	video := 10 * time.Second
	output := filepath.Join(dir, "mix.m4a")

	m := NewMixer(zerolog.Nop(), ex, "aac")
	used, err := m.Mix(ctx, []Track{{Name: "background", Path: bg, Volume: 0.5}}, video, output)
	require.NoError(t, err)
	require.Len(t, used, 1)

	got, err := ex.ProbeDuration(ctx, output)
	require.NoError(t, err)
	assert.InDelta(t, video.Seconds(), got.Seconds(), 1.0/fps)
}
