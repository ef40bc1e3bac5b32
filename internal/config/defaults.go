package config

const (
	defaultDataDir              = "~/.local/share/tosho"
	defaultLogDir               = "~/.local/share/tosho/logs"
	defaultUserAgent            = "tosho/0.1 (+https://github.com/tosho-moe/tosho)"
	defaultFeedBaseURL          = "https://nyaa.si"
	defaultFeedPollInterval     = 300
	defaultFeedPageTimeout      = 30
	defaultMaxBackfillPages     = 100
	defaultFetchConcurrency     = 4
	defaultCatalogBaseURL       = "https://graphql.anilist.co"
	defaultShowsSyncInterval    = 24 * 60 * 60
	defaultScheduleSyncInterval = 60 * 60
	defaultStartupGrace         = 120
	defaultCatalogTimeout       = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		HTTP: HTTP{
			UserAgent: defaultUserAgent,
		},
		Feed: Feed{
			BaseURL:          defaultFeedBaseURL,
			PollInterval:     defaultFeedPollInterval,
			PageTimeout:      defaultFeedPageTimeout,
			MaxBackfillPages: defaultMaxBackfillPages,
			FetchConcurrency: defaultFetchConcurrency,
		},
		Catalog: Catalog{
			BaseURL:              defaultCatalogBaseURL,
			ShowsSyncInterval:    defaultShowsSyncInterval,
			ScheduleSyncInterval: defaultScheduleSyncInterval,
			StartupGrace:         defaultStartupGrace,
			RequestTimeout:       defaultCatalogTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
