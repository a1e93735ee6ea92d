package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/tales-t/internal/config"
)

// execute runs the CLI with an isolated config directory
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	serverURL, location, debug = "", "", false

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func storyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stories/api/stories/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stories/api/stories/":
			_, _ = io.WriteString(w, `[{"id":1,"title":"The Long Road"},{"id":2,"title":"Salt and Iron"}]`)
		case "/stories/api/stories/1/":
			_, _ = io.WriteString(w, `{"id":1,"title":"The Long Road"}`)
		case "/stories/api/stories/1/chapters/":
			_, _ = io.WriteString(w, `[
				{"id":30,"story":1,"chapter_number":3,"title":"Home"},
				{"id":10,"story":1,"chapter_number":1,"title":"Departure"},
				{"id":20,"story":1,"chapter_number":2,"title":"The Ford"}
			]`)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/stories/api/reading-progress/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("story"))
		_, _ = io.WriteString(w, `[{"id":5,"story":1,"current_chapter":20,"current_paragraph":2001,"viewed_paragraphs":[1001,1002,2001]}]`)
	})
	mux.HandleFunc("/stories/api/reading-progress/navigation_history/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"paragraph_id":1001,"chapter_id":10,"view_order":1,"viewed_at":"2026-01-02T03:04:05Z"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStoriesCommand(t *testing.T) {
	srv := storyServer(t)
	out, err := execute(t, "stories", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "The Long Road")
	assert.Contains(t, out, "Salt and Iron")
}

func TestProgressCommand(t *testing.T) {
	srv := storyServer(t)
	out, err := execute(t, "progress", "1", "-s", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "The Long Road")
	assert.Contains(t, out, "progress: 66%")
	assert.Contains(t, out, "at: Chapter 2: The Ford")
	assert.Contains(t, out, "viewed paragraphs: 3")
}

func TestHistoryCommand(t *testing.T) {
	srv := storyServer(t)
	out, err := execute(t, "history", "1", "-s", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "paragraph 1001")
}

func TestProgressRejectsBadID(t *testing.T) {
	_, err := execute(t, "progress", "abc")
	assert.Error(t, err)
}

func TestServerFailureIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := execute(t, "stories", "--url", srv.URL)
	assert.Error(t, err)
}

func TestPingCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stories/api/", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	out, err := execute(t, "ping", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "is up")
}

func TestPrintConfig(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, cfg.AddRecentStory(3, "Salt and Iron"))

	var out bytes.Buffer
	printConfig(&out, cfg)
	assert.Contains(t, out.String(), "Authenticated: false")
	assert.Contains(t, out.String(), "Salt and Iron")
}
