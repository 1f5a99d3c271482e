package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/varoOP/niterudb/internal/aggregator"
	"github.com/varoOP/niterudb/internal/cache"
	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/recommend"
)

const trendingKey = "!trending"

// maxProfileSeedGenres caps how many favorite genres seed the candidate
// pool for preference-based recommendations.
const maxProfileSeedGenres = 3

// Service is the facade callers talk to. It checks the cache first, falls
// through to the aggregator, and hands pools to the recommendation engine.
type Service interface {
	SearchAnime(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error)
	GetAnimeDetails(ctx context.Context, id string) (*domain.AnimeRecord, error)
	GetRecommendations(ctx context.Context, id string, limit int) ([]domain.RecommendationResult, error)
	GetHybridRecommendations(ctx context.Context, ids []string, limit int) ([]domain.RecommendationResult, error)
	GetPreferenceBasedRecommendations(ctx context.Context, profile domain.PreferenceProfile, limit int) ([]domain.RecommendationResult, error)
	GetTrendingAnime(ctx context.Context) ([]domain.AnimeRecord, error)
	GetCacheStats() cache.Stats
	ClearCache()
}

type service struct {
	log        zerolog.Logger
	cache      *cache.Cache
	aggregator aggregator.Service
	engine     recommend.Service
	flight     singleflight.Group
}

func NewService(log zerolog.Logger, c *cache.Cache, agg aggregator.Service, engine recommend.Service) Service {
	return &service{
		log:        log.With().Str("module", "service").Logger(),
		cache:      c,
		aggregator: agg,
		engine:     engine,
	}
}

func (s *service) SearchAnime(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	key := searchKey(query, opts)
	if records, ok := s.cache.Search.Get(key); ok {
		s.log.Debug().Str("key", key).Msg("search cache hit")
		return records, nil
	}

	v, err, _ := s.flight.Do("search:"+key, func() (any, error) {
		records, err := s.aggregator.Search(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		s.cache.Search.Set(key, records)
		return records, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "search failed")
	}
	return v.([]domain.AnimeRecord), nil
}

func (s *service) GetAnimeDetails(ctx context.Context, id string) (*domain.AnimeRecord, error) {
	if rec, ok := s.cache.Details.Get(id); ok {
		s.log.Debug().Str("id", id).Msg("details cache hit")
		return &rec, nil
	}

	v, err, _ := s.flight.Do("details:"+id, func() (any, error) {
		rec, err := s.aggregator.GetAnimeDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			s.cache.Details.Set(id, *rec)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.AnimeRecord), nil
}

func (s *service) GetRecommendations(ctx context.Context, id string, limit int) ([]domain.RecommendationResult, error) {
	ref, err := s.GetAnimeDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}

	pool, err := s.recommendationPool(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.ContentBased(ref, pool, nil, limit), nil
}

func (s *service) GetHybridRecommendations(ctx context.Context, ids []string, limit int) ([]domain.RecommendationResult, error) {
	var refs []domain.AnimeRecord
	var pool []domain.AnimeRecord
	seen := make(map[string]bool)

	for _, id := range ids {
		ref, err := s.GetAnimeDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			s.log.Warn().Str("id", id).Msg("hybrid reference not found, skipping")
			continue
		}
		refs = append(refs, *ref)

		recs, err := s.recommendationPool(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			pool = append(pool, rec)
		}
	}

	return s.engine.Hybrid(refs, pool, limit), nil
}

// GetPreferenceBasedRecommendations builds a candidate pool from the trending
// charts plus a search per favorite genre, then scores it against the profile.
func (s *service) GetPreferenceBasedRecommendations(ctx context.Context, profile domain.PreferenceProfile, limit int) ([]domain.RecommendationResult, error) {
	var pool []domain.AnimeRecord
	seen := make(map[string]bool)

	add := func(records []domain.AnimeRecord) {
		for _, rec := range records {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			pool = append(pool, rec)
		}
	}

	trending, err := s.GetTrendingAnime(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("trending pool unavailable")
	} else {
		add(trending)
	}

	genres := profile.FavoriteGenres
	if len(genres) > maxProfileSeedGenres {
		genres = genres[:maxProfileSeedGenres]
	}
	for _, genre := range genres {
		records, err := s.SearchAnime(ctx, genre, domain.SearchOptions{Genres: []string{genre}})
		if err != nil {
			s.log.Warn().Err(err).Str("genre", genre).Msg("genre seed search failed")
			continue
		}
		add(records)
	}

	return s.engine.PreferenceBased(profile, pool, limit), nil
}

func (s *service) GetTrendingAnime(ctx context.Context) ([]domain.AnimeRecord, error) {
	if records, ok := s.cache.Search.Get(trendingKey); ok {
		return records, nil
	}

	v, err, _ := s.flight.Do("trending", func() (any, error) {
		records, err := s.aggregator.GetTrending(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Search.Set(trendingKey, records)
		return records, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "trending failed")
	}
	return v.([]domain.AnimeRecord), nil
}

func (s *service) GetCacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *service) ClearCache() {
	s.cache.Clear()
	s.log.Info().Msg("cache cleared")
}

// recommendationPool returns the merged provider recommendations for id,
// cache-first.
func (s *service) recommendationPool(ctx context.Context, id string) ([]domain.AnimeRecord, error) {
	if records, ok := s.cache.Recommendations.Get(id); ok {
		s.log.Debug().Str("id", id).Msg("recommendations cache hit")
		return records, nil
	}

	v, err, _ := s.flight.Do("recs:"+id, func() (any, error) {
		records, err := s.aggregator.GetRecommendations(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.Recommendations.Set(id, records)
		return records, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "recommendations failed")
	}
	return v.([]domain.AnimeRecord), nil
}

// searchKey canonicalizes the query and options so equivalent searches share
// one cache entry.
func searchKey(query string, opts domain.SearchOptions) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " ")) + "|" + opts.Key()
}
