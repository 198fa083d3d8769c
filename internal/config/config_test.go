package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("FREEIMAGEHOST_API_KEY", "img-key")
	t.Setenv("SHEET_ID", "sheet-123")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "sa.json")
	t.Setenv("PEXELS_API_KEY", "pex-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.RSS.SimilarityThreshold)
	assert.Equal(t, 25, cfg.RSS.MaxItems)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.ModelRank)
	assert.Equal(t, "Europe/Moscow", cfg.Scheduler.Timezone)
	assert.Equal(t, []int{7, 19}, cfg.Scheduler.RunHours)
	assert.True(t, cfg.Scheduler.RunOnceOnStart)
	assert.Equal(t, 1500, cfg.Post.LongBodyMin)
	assert.Equal(t, 3000, cfg.Post.LongBodyMax)
	assert.Equal(t, 600, cfg.Post.ShortBodyMax)
	assert.Equal(t, 12*time.Hour, cfg.RecencyWindow)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
}

func TestLoadParsesLists(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RSS_SOURCES", "https://a.example.com/feed, https://b.example.com/feed ,")
	t.Setenv("KEYWORDS", "ИИ, нейросеть")
	t.Setenv("SCHEDULER_RUN_HOURS", "19,7,99,abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com/feed", "https://b.example.com/feed"}, cfg.RSS.Sources)
	assert.Equal(t, []string{"ИИ", "нейросеть"}, cfg.RSS.Keywords)
	// Out-of-range and non-numeric hours are dropped.
	assert.Equal(t, []int{19, 7}, cfg.Scheduler.RunHours)
	assert.Equal(t, 7, cfg.EarliestRunHour())
}

func TestLoadFeedsFromYAML(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - https://a.example.com/feed\n  - https://b.example.com/feed\n"), 0o644))
	t.Setenv("FEEDS_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com/feed", "https://b.example.com/feed"}, cfg.RSS.Sources)
}

func TestLoadEnvSourcesWinOverFeedsFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - https://file.example.com/feed\n"), 0o644))
	t.Setenv("FEEDS_CONFIG_PATH", path)
	t.Setenv("RSS_SOURCES", "https://env.example.com/feed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://env.example.com/feed"}, cfg.RSS.Sources)
}

func TestValidateRequiredKeys(t *testing.T) {
	cases := []struct {
		name  string
		unset string
		want  string
	}{
		{"gemini key", "GEMINI_API_KEY", "GEMINI_API_KEY"},
		{"image host key", "FREEIMAGEHOST_API_KEY", "FREEIMAGEHOST_API_KEY"},
		{"sheet id", "SHEET_ID", "SHEET_ID"},
		{"service account", "GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidatePexelsKeyOnlyWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PEXELS_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PEXELS_API_KEY")

	t.Setenv("PEXELS_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Pexels.Enabled)
}

func TestValidateMaxItems(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PIPELINE_MAX_ITEMS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIPELINE_MAX_ITEMS")
}

func TestValidateBodyBounds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POST_LONG_BODY_MIN", "3000")
	t.Setenv("POST_LONG_BODY_MAX", "1500")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "long body bounds")
}
