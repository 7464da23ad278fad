package config

const (
	defaultDataDir            = "~/.local/share/vividly/data"
	defaultBlobDir            = "~/.local/share/vividly/blobs"
	defaultLogDir             = "~/.local/share/vividly/logs"
	defaultAPIBind            = "127.0.0.1:7842"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultWorkerCount        = 2
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultMaxStageAttempts   = 3
	defaultRetryBackoffBase   = 1
	defaultRetryBackoffMax    = 30
	defaultStageTimeout       = 120
	defaultIntentConfidence   = 0.7
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/rich1edwards/vividly"
	defaultLLMTitle           = "Vividly Script Generator"
	defaultIntentTitle        = "Vividly Intent Resolver"
	defaultLLMTimeoutSeconds  = 60
	defaultSpeechVoice        = "narrator-1"
	defaultSpeechFormat       = "mp3"
	defaultSpeechTimeout      = 120
	defaultRenderPreset       = "standard"
	defaultRenderTimeout      = 300
	defaultNtfyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			BlobDir: defaultBlobDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workers: Workers{
			Count:              defaultWorkerCount,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Pipeline: Pipeline{
			MaxStageAttempts:    defaultMaxStageAttempts,
			RetryBackoffBase:    defaultRetryBackoffBase,
			RetryBackoffMax:     defaultRetryBackoffMax,
			StageTimeoutSeconds: defaultStageTimeout,
			ScriptFallback:      false,
			AudioFallback:       true,
			VideoFallback:       true,
			CacheDegraded:       false,
		},
		Guardrails: Guardrails{},
		Intent: Intent{
			ConfidenceThreshold: defaultIntentConfidence,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Speech: Speech{
			Voice:          defaultSpeechVoice,
			Format:         defaultSpeechFormat,
			TimeoutSeconds: defaultSpeechTimeout,
		},
		Render: Render{
			Preset:         defaultRenderPreset,
			TimeoutSeconds: defaultRenderTimeout,
		},
		Notifications: Notifications{
			TimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
