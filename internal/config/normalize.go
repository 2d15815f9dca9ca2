package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeGeneration()
	c.normalizeSpeech()
	c.normalizeFeed()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

// applyEnv overlays the environment variables the hosted deployment relies on.
func (c *Config) applyEnv() {
	if value, ok := lookupEnv("DATA_DIR"); ok {
		c.Paths.DataDir = value
	}
	if value, ok := lookupEnv("ANTHROPIC_API_KEY"); ok && c.Generation.APIKey == "" {
		c.Generation.APIKey = value
	}
	if c.Speech.APIKey == "" {
		if value, ok := lookupEnv("ELEVEN_LABS_API_KEY"); ok {
			c.Speech.APIKey = value
		} else if value, ok := lookupEnv("ELEVENLABS_API_KEY"); ok {
			c.Speech.APIKey = value
		}
	}
	if value, ok := lookupEnv("CRON_SECRET"); ok && c.Paths.CronSecret == "" {
		c.Paths.CronSecret = value
	}
	if value, ok := lookupEnv("BASE_URL"); ok {
		c.Feed.BaseURL = value
	}
	if value, ok := lookupEnv("BRIEFINGS_API_TOKEN"); ok && c.Paths.APIToken == "" {
		c.Paths.APIToken = value
	}
	if value, ok := lookupEnv("PORT"); ok {
		host, _, err := net.SplitHostPort(c.Paths.APIBind)
		if err != nil {
			host = ""
		}
		c.Paths.APIBind = net.JoinHostPort(host, value)
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Paths.CronSecret = strings.TrimSpace(c.Paths.CronSecret)
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = filepath.Join(c.Paths.DataDir, "briefings.db")
	} else if expanded, err := expandPath(c.Storage.SQLitePath); err == nil {
		c.Storage.SQLitePath = expanded
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.APIKey = strings.TrimSpace(c.Generation.APIKey)
	c.Generation.BaseURL = strings.TrimSpace(c.Generation.BaseURL)
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = defaultGenerationBaseURL
	}
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	if c.Generation.Model == "" {
		c.Generation.Model = defaultGenerationModel
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = defaultGenerationMaxTokens
	}
	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = defaultGenerationTimeout
	}
	if c.Generation.SearchTimeoutSeconds <= 0 {
		c.Generation.SearchTimeoutSeconds = defaultGenerationSearchTime
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = defaultSpeechBaseURL
	}
	if strings.TrimSpace(c.Speech.ModelID) == "" {
		c.Speech.ModelID = defaultSpeechModelID
	}
	if strings.TrimSpace(c.Speech.OutputFormat) == "" {
		c.Speech.OutputFormat = defaultSpeechOutputFormat
	}
	if strings.TrimSpace(c.Speech.VoiceA) == "" {
		c.Speech.VoiceA = defaultVoiceA
	}
	if strings.TrimSpace(c.Speech.VoiceB) == "" {
		c.Speech.VoiceB = defaultVoiceB
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeout
	}
}

func (c *Config) normalizeFeed() {
	c.Feed.BaseURL = strings.TrimRight(strings.TrimSpace(c.Feed.BaseURL), "/")
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = defaultFeedBaseURL
	}
	if strings.TrimSpace(c.Feed.Title) == "" {
		c.Feed.Title = defaultFeedTitle
	}
	if strings.TrimSpace(c.Feed.Author) == "" {
		c.Feed.Author = c.Feed.Title
	}
	if strings.TrimSpace(c.Feed.Language) == "" {
		c.Feed.Language = defaultFeedLanguage
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxWorkers <= 0 {
		c.Workflow.MaxWorkers = defaultWorkflowMaxWorkers
	}
	if c.Workflow.JobRetention <= 0 {
		c.Workflow.JobRetention = defaultWorkflowJobRetention
	}
	if c.Workflow.WeeklyCap <= 0 {
		c.Workflow.WeeklyCap = defaultWorkflowWeeklyCap
	}
	if c.Intel.TimeoutSeconds <= 0 {
		c.Intel.TimeoutSeconds = defaultIntelTimeout
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.Events.NATSURL = strings.TrimSpace(c.Events.NATSURL)
	if strings.TrimSpace(c.Events.SubjectPrefix) == "" {
		c.Events.SubjectPrefix = defaultEventsSubjectPrefix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
