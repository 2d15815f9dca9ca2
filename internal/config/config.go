package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`

	// CronSecret guards the scheduled-trigger endpoints. Empty disables the check.
	CronSecret string `toml:"cron_secret"`
}

// Storage selects the document backend.
type Storage struct {
	Backend string `toml:"backend"` // json or sqlite

	// SQLitePath defaults to <data_dir>/briefings.db.
	SQLitePath string `toml:"sqlite_path"`
}

// Generation contains text-generation service settings.
type Generation struct {
	APIKey               string `toml:"api_key"`
	BaseURL              string `toml:"base_url"`
	Model                string `toml:"model"`
	MaxTokens            int    `toml:"max_tokens"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	SearchTimeoutSeconds int    `toml:"search_timeout_seconds"`
	RetryMaxAttempts     int    `toml:"retry_max_attempts"`
}

// Speech contains text-to-speech service settings.
type Speech struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ModelID        string `toml:"model_id"`
	OutputFormat   string `toml:"output_format"`
	VoiceA         string `toml:"voice_a"`
	VoiceB         string `toml:"voice_b"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Feed contains podcast feed metadata.
type Feed struct {
	BaseURL     string `toml:"base_url"`
	Title       string `toml:"title"`
	Author      string `toml:"author"`
	Description string `toml:"description"`
	Language    string `toml:"language"`
}

// Intel contains the competitive-intelligence page source.
type Intel struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains worker pool and retention settings.
type Workflow struct {
	MaxWorkers   int `toml:"max_workers"`
	JobRetention int `toml:"job_retention"`
	WeeklyCap    int `toml:"weekly_cap"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Episodes       bool   `toml:"episodes"`
	Series         bool   `toml:"series"`
	Errors         bool   `toml:"errors"`
	SkipTrailers   bool   `toml:"skip_trailers"`
}

// Events contains the optional NATS event bus settings.
type Events struct {
	NATSURL       string `toml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the briefings daemon.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address, tokens
//   - Storage: document backend (json files or sqlite)
//   - Generation: text-generation service connection
//   - Speech: text-to-speech service connection and default voices
//   - Feed: podcast feed metadata and public base URL
//   - Intel: competitive-intelligence page location
//   - Workflow: worker pool size, job retention, weekly cap
//   - Notifications: ntfy push notification settings
//   - Events: optional NATS publisher
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Generation    Generation    `toml:"generation"`
	Speech        Speech        `toml:"speech"`
	Feed          Feed          `toml:"feed"`
	Intel         Intel         `toml:"intel"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Events        Events        `toml:"events"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/briefings/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in
// the working directory is loaded into the process environment first; real
// environment variables win over it. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("briefings.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.EpisodesDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EpisodesDir is the public directory served under /episodes/. Per-episode
// segment directories live next to the published mp3 files.
func (c *Config) EpisodesDir() string {
	return filepath.Join(c.Paths.DataDir, "episodes")
}

// FeedPath is the location of the rendered RSS document.
func (c *Config) FeedPath() string {
	return filepath.Join(c.Paths.DataDir, "feed.xml")
}

// DaemonLockPath is the single-instance lock file.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.DataDir, "briefingsd.lock")
}

// DaemonPIDPath is the pid file written by the daemon process.
func (c *Config) DaemonPIDPath() string {
	return filepath.Join(c.Paths.DataDir, "briefingsd.pid")
}

// HasGenerationKey reports whether generation calls can be made.
func (c *Config) HasGenerationKey() bool {
	return strings.TrimSpace(c.Generation.APIKey) != ""
}

// HasSpeechKey reports whether speech calls can be made.
func (c *Config) HasSpeechKey() bool {
	return strings.TrimSpace(c.Speech.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
