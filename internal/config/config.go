package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultServerURL      = "http://localhost:8000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultProgressRate   = 10
	DefaultProgressBurst  = 5
	EnvPrefix             = "TALES_"
	configFileName        = "config.json"
	logFileName           = "tales-t.log"
	configDirName         = "tales-t"
	MaxRecentStories      = 10 // Maximum number of recently opened stories to track
)

// RecentStory represents a recently opened story
type RecentStory struct {
	StoryID  int64     `json:"story_id"`
	Title    string    `json:"title"`
	OpenedAt time.Time `json:"opened_at"`
}

// Config holds the application configuration. The JSON file is read first,
// then TALES_* environment variables override what they name.
type Config struct {
	ServerURL     string        `json:"server_url" env:"SERVER_URL"`
	APIPrefix     string        `json:"api_prefix,omitempty" env:"API_PREFIX"`
	Email         string        `json:"email,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	CSRFToken     string        `json:"csrf_token,omitempty"`
	LastLocation  string        `json:"last_location,omitempty" env:"LOCATION"`
	RecentStories []RecentStory `json:"recent_stories,omitempty"`
	LogLevel      string        `json:"log_level,omitempty" env:"LOG_LEVEL"`
	Theme         string        `json:"theme,omitempty" env:"THEME"`
	ProgressRate  float64       `json:"progress_rate,omitempty" env:"PROGRESS_RATE"`
	ProgressBurst int           `json:"progress_burst,omitempty" env:"PROGRESS_BURST"`

	// Environment only
	RequestTimeout time.Duration `json:"-" env:"REQUEST_TIMEOUT"`

	// Path to config file (not persisted)
	path string `json:"-"`
}

// Load loads configuration from the config file in the user config directory
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from configPath. A missing file yields the
// defaults.
func LoadFrom(configPath string) (*Config, error) {
	cfg := &Config{
		ServerURL:      DefaultServerURL,
		RequestTimeout: DefaultRequestTimeout,
		path:           configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	cfg.applyDefaults()
	cfg.path = configPath
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ProgressRate <= 0 {
		c.ProgressRate = DefaultProgressRate
	}
	if c.ProgressBurst <= 0 {
		c.ProgressBurst = DefaultProgressBurst
	}
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	// Ensure directory exists
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// Path returns the config file location
func (c *Config) Path() string {
	return c.path
}

// LogPath returns the log file location, next to the config file
func (c *Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.path), logFileName)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SetSession stores the login identity and cookies and saves
func (c *Config) SetSession(email, sessionID, csrfToken string) error {
	c.Email = email
	c.SessionID = sessionID
	c.CSRFToken = csrfToken
	return c.Save()
}

// ClearSession removes the stored session and saves
func (c *Config) ClearSession() error {
	c.Email = ""
	c.SessionID = ""
	c.CSRFToken = ""
	return c.Save()
}

// IsAuthenticated returns true if a session is stored
func (c *Config) IsAuthenticated() bool {
	return c.SessionID != ""
}

// SetLastLocation remembers where the reader was and saves
func (c *Config) SetLastLocation(location string) error {
	c.LastLocation = location
	return c.Save()
}

// SetTheme sets the color theme and saves
func (c *Config) SetTheme(theme string) error {
	c.Theme = theme
	return c.Save()
}

// AddRecentStory adds a story to the recently opened list
func (c *Config) AddRecentStory(storyID int64, title string) error {
	// Remove existing entry for this story if present
	newList := make([]RecentStory, 0, MaxRecentStories)
	for _, entry := range c.RecentStories {
		if entry.StoryID != storyID {
			newList = append(newList, entry)
		}
	}

	entry := RecentStory{
		StoryID:  storyID,
		Title:    title,
		OpenedAt: time.Now(),
	}
	c.RecentStories = append([]RecentStory{entry}, newList...)

	if len(c.RecentStories) > MaxRecentStories {
		c.RecentStories = c.RecentStories[:MaxRecentStories]
	}

	return c.Save()
}

// RecentStoryIDs returns the recently opened story ids, newest first
func (c *Config) RecentStoryIDs() []int64 {
	ids := make([]int64, len(c.RecentStories))
	for i, entry := range c.RecentStories {
		ids[i] = entry.StoryID
	}
	return ids
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}
