package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	fexec "github.com/kikiluvv/stillreel/internal/ffmpeg"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT1M30S", 90 * time.Second},
		{"PT45S", 45 * time.Second},
		{"PT2H", 2 * time.Hour},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"P1DT1S", 24*time.Hour + time.Second},
		{"", 0},
		{"garbage", 0},
		{"1M30S", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseISODuration(tt.in))
		})
	}
}

func TestVideoURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", Video{ID: "abc"}.URL())
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), zerolog.Nop(), "")
	assert.Error(t, err)
}

func TestDownloadArgs(t *testing.T) {
	args := downloadArgs("https://www.youtube.com/watch?v=x", "/tmp/x.mp4")
	assert.Equal(t, "mp4[height<=720]", args[1])
	assert.Contains(t, args, "/tmp/x.mp4")
	assert.Equal(t, "https://www.youtube.com/watch?v=x", args[len(args)-1])
}

func TestSearchFiltersByDurationAndViews(t *testing.T) {
	var searchQuery, videosQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/search"):
			searchQuery = r.URL.Query()
			w.Write([]byte(`{"items": [
				{"id": {"videoId": "short"}, "snippet": {"title": "Short one"}},
				{"id": {"videoId": "long"}, "snippet": {"title": "Long one"}},
				{"id": {"videoId": "unpopular"}, "snippet": {"title": "Few views"}},
				{"id": {"channelId": "chan"}}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/videos"):
			videosQuery = r.URL.Query()
			w.Write([]byte(`{"items": [
				{"id": "short", "contentDetails": {"duration": "PT45S"}, "statistics": {"viewCount": "5000"}},
				{"id": "long", "contentDetails": {"duration": "PT3M"}, "statistics": {"viewCount": "90000"}},
				{"id": "unpopular", "contentDetails": {"duration": "PT30S"}, "statistics": {"viewCount": "10"}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), zerolog.Nop(), "yt-key", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	videos, err := client.Search(context.Background(), "wizard of oz", Criteria{
		MaxResults:     3,
		MaxDuration:    time.Minute,
		MinViews:       1000,
		PublishedAfter: published,
	})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, Video{ID: "short", Title: "Short one", Duration: 45 * time.Second, Views: 5000}, videos[0])

	assert.Equal(t, "wizard of oz", searchQuery.Get("q"))
	assert.Equal(t, "video", searchQuery.Get("type"))
	assert.Equal(t, "short", searchQuery.Get("videoDuration"))
	assert.Equal(t, "relevance", searchQuery.Get("order"))
	assert.Equal(t, "en", searchQuery.Get("relevanceLanguage"))
	assert.Equal(t, "3", searchQuery.Get("maxResults"))
	assert.Equal(t, "2024-01-02T03:04:05Z", searchQuery.Get("publishedAfter"))
	assert.Equal(t, "yt-key", searchQuery.Get("key"))

	assert.ElementsMatch(t, []string{"short", "long", "unpopular"}, strings.Split(strings.Join(videosQuery["id"], ","), ","))
}

func TestSearchReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "quota"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), zerolog.Nop(), "k", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "oz", Criteria{})
	assert.Error(t, err)
}

type stubSearch struct {
	videos []Video
	err    error
}

func (s stubSearch) Search(context.Context, string, Criteria) ([]Video, error) {
	return s.videos, s.err
}

type stubFetch struct {
	fail map[string]bool
}

func (s stubFetch) Download(_ context.Context, v Video) (string, error) {
	if s.fail[v.ID] {
		return "", errors.New("download failed")
	}
	return "/downloads/" + v.ID + ".mp4", nil
}

type recordingCutter struct {
	durations map[string]time.Duration
	clips     []fexec.ClipOptions
}

func (r *recordingCutter) ProbeDuration(_ context.Context, path string) (time.Duration, error) {
	d, ok := r.durations[path]
	if !ok {
		return 0, errors.New("probe failed")
	}
	return d, nil
}

func (r *recordingCutter) ExtractClip(_ context.Context, _ string, opts fexec.ClipOptions) error {
	r.clips = append(r.clips, opts)
	return nil
}

func TestCollectExtractsMiddleWindow(t *testing.T) {
	cutter := &recordingCutter{durations: map[string]time.Duration{
		"/downloads/a.mp4": 40 * time.Second,
		"/downloads/c.mp4": 3 * time.Second,
		"/downloads/d.mp4": 20 * time.Second,
	}}
	c := &Collector{
		logger:   zerolog.Nop(),
		search:   stubSearch{videos: []Video{{ID: "a"}, {ID: "b"}, {ID: "x"}, {ID: "c"}, {ID: "d"}}},
		download: stubFetch{fail: map[string]bool{"b": true}},
		cutter:   cutter,
	}

	paths := c.Collect(context.Background(), Criteria{}, ClipSpec{
		MaxClips: 2,
		Length:   5 * time.Second,
		Width:    1080,
		Height:   1920,
		FPS:      24,
		Dir:      "/work",
	})

	assert.Equal(t, []string{"/work/external_000.mp4", "/work/external_001.mp4"}, paths)
	require.Len(t, cutter.clips, 2)

	assert.Equal(t, 17500*time.Millisecond, cutter.clips[0].Start)
	assert.Equal(t, 5*time.Second, cutter.clips[0].Duration)
	assert.True(t, cutter.clips[0].DropAudio)
	assert.Equal(t, 1080, cutter.clips[0].Width)

	// shorter than the clip length: whole video
	assert.Equal(t, time.Duration(0), cutter.clips[1].Start)
	assert.Equal(t, 3*time.Second, cutter.clips[1].Duration)
}

func TestCollectSearchFailure(t *testing.T) {
	c := &Collector{
		logger: zerolog.Nop(),
		search: stubSearch{err: errors.New("quota")},
	}
	assert.Empty(t, c.Collect(context.Background(), Criteria{}, ClipSpec{}))
}
