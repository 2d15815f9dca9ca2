package config

const (
	defaultDataDir              = "~/.local/share/briefings"
	defaultLogDir               = "~/.local/share/briefings/logs"
	defaultAPIBind              = "127.0.0.1:8080"
	defaultStorageBackend       = "json"
	defaultGenerationBaseURL    = "https://api.anthropic.com/v1/messages"
	defaultGenerationModel      = "claude-sonnet-4-20250514"
	defaultGenerationMaxTokens  = 8000
	defaultGenerationTimeout    = 90
	defaultGenerationSearchTime = 300
	defaultGenerationRetries    = 3
	defaultSpeechBaseURL        = "https://api.elevenlabs.io/v1"
	defaultSpeechModelID        = "eleven_turbo_v2_5"
	defaultSpeechOutputFormat   = "mp3_44100_128"
	defaultSpeechTimeout        = 120
	defaultVoiceA               = "Chris - Charming, Down-to-Earth"
	defaultVoiceB               = "Matilda - Knowledgable, Professional"
	defaultFeedBaseURL          = "http://localhost:8080"
	defaultFeedTitle            = "Intelligence Briefings"
	defaultFeedAuthor           = "Intelligence Briefings"
	defaultFeedDescription      = "Executive intelligence briefings on AI, analytics, and enterprise strategy."
	defaultFeedLanguage         = "en-us"
	defaultIntelURL             = "https://ar-intelligence-dashboard-production.up.railway.app/"
	defaultIntelTimeout         = 15
	defaultWorkflowMaxWorkers   = 4
	defaultWorkflowJobRetention = 200
	defaultWorkflowWeeklyCap    = 50
	defaultNotifyRequestTimeout = 10
	defaultEventsSubjectPrefix  = "briefings"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		Generation: Generation{
			BaseURL:              defaultGenerationBaseURL,
			Model:                defaultGenerationModel,
			MaxTokens:            defaultGenerationMaxTokens,
			TimeoutSeconds:       defaultGenerationTimeout,
			SearchTimeoutSeconds: defaultGenerationSearchTime,
			RetryMaxAttempts:     defaultGenerationRetries,
		},
		Speech: Speech{
			BaseURL:        defaultSpeechBaseURL,
			ModelID:        defaultSpeechModelID,
			OutputFormat:   defaultSpeechOutputFormat,
			VoiceA:         defaultVoiceA,
			VoiceB:         defaultVoiceB,
			TimeoutSeconds: defaultSpeechTimeout,
		},
		Feed: Feed{
			BaseURL:     defaultFeedBaseURL,
			Title:       defaultFeedTitle,
			Author:      defaultFeedAuthor,
			Description: defaultFeedDescription,
			Language:    defaultFeedLanguage,
		},
		Intel: Intel{
			URL:            defaultIntelURL,
			TimeoutSeconds: defaultIntelTimeout,
		},
		Workflow: Workflow{
			MaxWorkers:   defaultWorkflowMaxWorkers,
			JobRetention: defaultWorkflowJobRetention,
			WeeklyCap:    defaultWorkflowWeeklyCap,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Episodes:       true,
			Series:         true,
			Errors:         true,
			SkipTrailers:   true,
		},
		Events: Events{
			SubjectPrefix: defaultEventsSubjectPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
