package domain

import "time"

// ProviderConfig tunes one adapter. MaxRequests/Window parameterize the
// adapter's sliding-window rate limiter to the provider's published limit.
type ProviderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// CacheConfig bounds the three result stores.
type CacheConfig struct {
	SearchTTL          time.Duration `mapstructure:"search_ttl"`
	DetailsTTL         time.Duration `mapstructure:"details_ttl"`
	RecommendationsTTL time.Duration `mapstructure:"recommendations_ttl"`
	MaxEntries         int           `mapstructure:"max_entries"`
}

// AggregatorConfig tunes the fan-out.
type AggregatorConfig struct {
	// AdapterTimeout caps each parallel adapter call. On expiry the call's
	// context is cancelled, not merely abandoned.
	AdapterTimeout time.Duration `mapstructure:"adapter_timeout"`
	// MaxRecommendations caps the merged recommendation pool per call.
	MaxRecommendations int `mapstructure:"max_recommendations"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the full runtime configuration. Every recognized option is
// enumerated; Defaults() documents the default for each.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Server     ServerConfig     `mapstructure:"server"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`

	// SourceWeights expresses how much each provider's score counts in
	// weighted averages. The values need not sum to 1.
	SourceWeights map[string]float64 `mapstructure:"source_weights"`

	// Weights configures the pairwise similarity score.
	Weights FactorWeights `mapstructure:"weights"`

	Providers map[string]ProviderConfig `mapstructure:"providers"`

	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
}

// Defaults returns the stock configuration: all adapters enabled with
// conservative rate limits, the documented cache TTLs, and the default
// similarity weighting.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{Addr: ":8330"},
		Cache: CacheConfig{
			SearchTTL:          15 * time.Minute,
			DetailsTTL:         60 * time.Minute,
			RecommendationsTTL: 30 * time.Minute,
			MaxEntries:         1000,
		},
		Aggregator: AggregatorConfig{
			AdapterTimeout:     10 * time.Second,
			MaxRecommendations: 20,
		},
		SourceWeights: map[string]float64{
			"anilist": 0.35,
			"jikan":   0.30,
			"kitsu":   0.20,
			"maltop":  0.15,
		},
		Weights: DefaultFactorWeights(),
		Providers: map[string]ProviderConfig{
			"anilist": {Enabled: true, MaxRequests: 90, Window: time.Minute},
			"jikan":   {Enabled: true, MaxRequests: 60, Window: time.Minute},
			"kitsu":   {Enabled: true, MaxRequests: 60, Window: time.Minute},
			"maltop":  {Enabled: true, MaxRequests: 30, Window: time.Minute},
		},
	}
}

// SourceWeight returns the configured weight for a source, falling back to a
// neutral 0.25 for sources that were never assigned one.
func (c *Config) SourceWeight(source string) float64 {
	if w, ok := c.SourceWeights[source]; ok && w > 0 {
		return w
	}
	return 0.25
}
