package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, float64(DefaultProgressRate), cfg.ProgressRate)
	assert.Equal(t, DefaultProgressBurst, cfg.ProgressBurst)
	assert.False(t, cfg.IsAuthenticated())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tales-t", "config.json")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	require.NoError(t, cfg.SetSession("reader@example.com", "sess", "tok"))
	require.NoError(t, cfg.SetLastLocation("story=2&chapter=5&page=3"))
	require.NoError(t, cfg.SetTheme("nord"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", again.Email)
	assert.Equal(t, "sess", again.SessionID)
	assert.Equal(t, "tok", again.CSRFToken)
	assert.Equal(t, "story=2&chapter=5&page=3", again.LastLocation)
	assert.Equal(t, "nord", again.Theme)
	assert.True(t, again.IsAuthenticated())

	require.NoError(t, again.ClearSession())
	assert.False(t, again.IsAuthenticated())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_url":"http://file:8000","last_location":"story=1","log_level":"warn"}`), 0600))

	t.Setenv("TALES_SERVER_URL", "http://env:9000/")
	t.Setenv("TALES_REQUEST_TIMEOUT", "5s")
	t.Setenv("TALES_PROGRESS_BURST", "2")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:9000", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.ProgressBurst)
	// unset variables leave file values alone
	assert.Equal(t, "story=1", cfg.LastLocation)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestInvalidFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0600))
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestAddRecentStory(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	for i := int64(1); i <= MaxRecentStories+2; i++ {
		require.NoError(t, cfg.AddRecentStory(i, "story"))
	}
	require.NoError(t, cfg.AddRecentStory(5, "story five"))

	ids := cfg.RecentStoryIDs()
	assert.Len(t, ids, MaxRecentStories)
	assert.Equal(t, int64(5), ids[0])
	assert.Equal(t, int64(MaxRecentStories+2), ids[1])
	assert.Equal(t, "story five", cfg.RecentStories[0].Title)
}

func TestLogPathSitsBesideConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tales-t.log"), cfg.LogPath())
}
