package config

const (
	defaultDataDir              = "~/.local/share/mosaic/data"
	defaultLogDir               = "~/.local/share/mosaic/logs"
	defaultAPIBind              = "127.0.0.1:8780"
	defaultEngineBaseURL        = "http://127.0.0.1:3000"
	defaultEngineTimeoutSeconds = 120
	defaultWebhookBaseURL       = "http://127.0.0.1:8780"
	defaultWorkflowWorkers      = 4
	defaultWorkflowQueueSize    = 64
	defaultQuality              = "medium"
	defaultNotifyTimeout        = 10
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
		Engine: Engine{
			BaseURL:        defaultEngineBaseURL,
			TimeoutSeconds: defaultEngineTimeoutSeconds,
		},
		Webhook: Webhook{
			PublicBaseURL: defaultWebhookBaseURL,
		},
		Workflow: Workflow{
			Workers:        defaultWorkflowWorkers,
			QueueSize:      defaultWorkflowQueueSize,
			DefaultQuality: defaultQuality,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
