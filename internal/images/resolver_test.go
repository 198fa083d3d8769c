package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodjooo/content-from-rss/internal/models"
	"github.com/kodjooo/content-from-rss/internal/retry"
)

type stubSearcher struct {
	url   string
	err   error
	calls int
}

func (s *stubSearcher) Search(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.url, s.err
}

type stubGenerator struct {
	data  []byte
	err   error
	calls int
}

func (g *stubGenerator) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	g.calls++
	return g.data, g.err
}

type stubUploader struct {
	url      string
	failures int
	calls    int
}

func (u *stubUploader) Upload(_ context.Context, _ []byte) (string, error) {
	u.calls++
	if u.calls <= u.failures {
		return "", fmt.Errorf("upload unavailable")
	}
	return u.url, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func newTestResolver(searcher Searcher, generator Generator, uploader Uploader) *Resolver {
	return NewResolver(searcher, generator, uploader, fastPolicy(), testLogger())
}

func imageServer(t *testing.T, contentType string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(server.Close)
	return server
}

func post() models.GeneratedPost {
	return models.GeneratedPost{
		LongBody: "body",
		Hashtags: []string{"ai", "tech", "news"},
	}
}

func TestSelectPrefersEmbeddedMedia(t *testing.T) {
	server := imageServer(t, "image/jpeg")
	searcher := &stubSearcher{url: "https://search.example.com/img.jpg"}
	uploader := &stubUploader{url: "https://host.example.com/hosted.jpg"}
	resolver := newTestResolver(searcher, &stubGenerator{}, uploader)

	asset, err := resolver.Select(context.Background(), models.NewsItem{MediaURL: server.URL}, post())

	require.NoError(t, err)
	assert.Equal(t, models.ImageSourceRSS, asset.Source)
	assert.Equal(t, "https://host.example.com/hosted.jpg", asset.URL)
	assert.Zero(t, searcher.calls)
}

func TestSelectFallsThroughOnNonImageContentType(t *testing.T) {
	server := imageServer(t, "text/html")
	imageSrv := imageServer(t, "image/png")
	searcher := &stubSearcher{url: imageSrv.URL}
	uploader := &stubUploader{url: "https://host.example.com/hosted.jpg"}
	resolver := newTestResolver(searcher, &stubGenerator{}, uploader)

	asset, err := resolver.Select(context.Background(), models.NewsItem{MediaURL: server.URL}, post())

	require.NoError(t, err)
	assert.Equal(t, models.ImageSourcePexels, asset.Source)
	assert.Equal(t, 1, searcher.calls)
}

func TestSelectSkipsSearchWhenDisabled(t *testing.T) {
	generator := &stubGenerator{data: []byte("generated")}
	uploader := &stubUploader{url: "https://host.example.com/hosted.jpg"}
	resolver := newTestResolver(nil, generator, uploader)

	asset, err := resolver.Select(context.Background(), models.NewsItem{}, post())

	require.NoError(t, err)
	assert.Equal(t, models.ImageSourceGenerated, asset.Source)
	assert.NotEmpty(t, asset.Prompt)
	assert.Equal(t, 1, generator.calls)
}

func TestSelectFallsBackToGeneratorOnSearchError(t *testing.T) {
	searcher := &stubSearcher{err: fmt.Errorf("search down")}
	generator := &stubGenerator{data: []byte("generated")}
	uploader := &stubUploader{url: "https://host.example.com/hosted.jpg"}
	resolver := newTestResolver(searcher, generator, uploader)

	asset, err := resolver.Select(context.Background(), models.NewsItem{}, post())

	require.NoError(t, err)
	assert.Equal(t, models.ImageSourceGenerated, asset.Source)
}

func TestSelectFailsWhenAllSourcesExhausted(t *testing.T) {
	searcher := &stubSearcher{} // no result
	generator := &stubGenerator{err: fmt.Errorf("model unavailable")}
	resolver := newTestResolver(searcher, generator, &stubUploader{})

	_, err := resolver.Select(context.Background(), models.NewsItem{}, post())

	assert.ErrorIs(t, err, ErrResolution)
}

func TestSelectRetriesUpload(t *testing.T) {
	generator := &stubGenerator{data: []byte("generated")}
	uploader := &stubUploader{url: "https://host.example.com/hosted.jpg", failures: 2}
	resolver := newTestResolver(nil, generator, uploader)

	asset, err := resolver.Select(context.Background(), models.NewsItem{}, post())

	require.NoError(t, err)
	assert.Equal(t, 3, uploader.calls)
	assert.Equal(t, "https://host.example.com/hosted.jpg", asset.URL)
}

func TestSelectUploadWithoutURLIsHardFailure(t *testing.T) {
	generator := &stubGenerator{data: []byte("generated")}
	uploader := &stubUploader{url: ""} // succeeds but returns no URL
	resolver := newTestResolver(nil, generator, uploader)

	_, err := resolver.Select(context.Background(), models.NewsItem{}, post())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
}
