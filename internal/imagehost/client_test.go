package imagehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodjooo/content-from-rss/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.ImageHost{
		APIKey:   "host-key",
		Endpoint: server.URL,
		Timeout:  5 * time.Second,
	})
}

func TestUploadSendsMultipartForm(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "host-key", r.FormValue("key"))

		file, header, err := r.FormFile("source")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image.jpg", header.Filename)
		sent, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, payload, sent)

		w.Write([]byte(`{"image":{"url":"https://host.example.com/a.jpg","display_url":"https://host.example.com/a_d.jpg"}}`))
	})

	url, err := client.Upload(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "https://host.example.com/a.jpg", url)
}

func TestUploadFallsBackToDisplayURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"image":{"display_url":"https://host.example.com/a_d.jpg"}}`))
	})

	url, err := client.Upload(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://host.example.com/a_d.jpg", url)
}

func TestUploadHostError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Upload(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestUploadMissingURLsIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"image":{}}`))
	})

	url, err := client.Upload(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Empty(t, url)
}
