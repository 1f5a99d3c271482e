package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/varoOP/niterudb/internal/domain"
)

// Load builds the runtime configuration from, in order of precedence:
// flags bound by the CLI, environment variables (NITERUDB_*), and the
// config file viper has already read. Unset options keep their documented
// defaults.
func Load() (*domain.Config, error) {
	cfg := domain.Defaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *domain.Config) error {
	if cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.SearchTTL < 0 || cfg.Cache.DetailsTTL < 0 || cfg.Cache.RecommendationsTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}
	if cfg.Aggregator.AdapterTimeout <= 0 {
		return fmt.Errorf("aggregator.adapter_timeout must be positive, got %s", cfg.Aggregator.AdapterTimeout)
	}
	if cfg.Aggregator.MaxRecommendations <= 0 {
		return fmt.Errorf("aggregator.max_recommendations must be positive, got %d", cfg.Aggregator.MaxRecommendations)
	}

	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		if pc.MaxRequests <= 0 {
			return fmt.Errorf("provider %s: max_requests must be positive, got %d", name, pc.MaxRequests)
		}
		if pc.Window <= 0 {
			return fmt.Errorf("provider %s: window must be positive, got %s", name, pc.Window)
		}
	}

	for source, w := range cfg.SourceWeights {
		if w < 0 {
			return fmt.Errorf("source weight for %s must not be negative, got %f", source, w)
		}
	}

	return nil
}
