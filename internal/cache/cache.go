package cache

import (
	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
)

// Cache bundles the three independent result stores. It is constructed once
// and injected into the facade and aggregator; there is no ambient global
// instance.
type Cache struct {
	log zerolog.Logger

	Search          *Store[[]domain.AnimeRecord]
	Details         *Store[domain.AnimeRecord]
	Recommendations *Store[[]domain.AnimeRecord]
}

// Stats reports every store's counters.
type Stats struct {
	Search          StoreStats `json:"search"`
	Details         StoreStats `json:"details"`
	Recommendations StoreStats `json:"recommendations"`
}

// New creates the three stores with the configured TTLs and shared size cap.
func New(cfg domain.CacheConfig, log zerolog.Logger) *Cache {
	return &Cache{
		log:             log.With().Str("module", "cache").Logger(),
		Search:          NewStore[[]domain.AnimeRecord](cfg.MaxEntries, cfg.SearchTTL),
		Details:         NewStore[domain.AnimeRecord](cfg.MaxEntries, cfg.DetailsTTL),
		Recommendations: NewStore[[]domain.AnimeRecord](cfg.MaxEntries, cfg.RecommendationsTTL),
	}
}

// Stats returns a snapshot across all three stores.
func (c *Cache) Stats() Stats {
	return Stats{
		Search:          c.Search.Stats(),
		Details:         c.Details.Stats(),
		Recommendations: c.Recommendations.Stats(),
	}
}

// Clear empties all three stores.
func (c *Cache) Clear() {
	c.Search.Clear()
	c.Details.Clear()
	c.Recommendations.Clear()
	c.log.Debug().Msg("all cache stores cleared")
}
