package config

const (
	defaultDataDir               = "~/.local/share/duewatch"
	defaultLogDir                = "~/.local/share/duewatch/logs"
	defaultAPIBind               = "127.0.0.1:7311"
	defaultRemoteRequestTimeout  = 15
	defaultRemoteTokenTTL        = 3600
	defaultMessagingAPIBase      = "https://api.telegram.org"
	defaultMessagingTimeout      = 10
	defaultScheduleCheckTime     = "09:00"
	defaultScheduleTimezone      = "Local"
	defaultScheduleRetryAttempts = 0
	defaultScheduleRetryDelay    = 300
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

func defaultThresholds() []int {
	return []int{14, 7, 3}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Remote: Remote{
			RequestTimeout: defaultRemoteRequestTimeout,
			TokenTTL:       defaultRemoteTokenTTL,
		},
		Messaging: Messaging{
			APIBase:        defaultMessagingAPIBase,
			RequestTimeout: defaultMessagingTimeout,
		},
		Dispatch: Dispatch{
			Thresholds:       defaultThresholds(),
			IncludeOperators: true,
		},
		Schedule: Schedule{
			CheckTime:     defaultScheduleCheckTime,
			Timezone:      defaultScheduleTimezone,
			RetryAttempts: defaultScheduleRetryAttempts,
			RetryDelay:    defaultScheduleRetryDelay,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
