// Package aggregator fans queries out to every enabled catalog adapter in
// parallel, tolerates partial failure, and reconciles the disagreeing
// records into consolidated, confidence-weighted results.
package aggregator

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/provider"
)

type Service interface {
	// Search queries all adapters, merges duplicate titles, and returns the
	// consolidated list ordered by score times confidence. Adapter failures
	// reduce the result set; they never fail the call.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error)
	// GetAnimeDetails routes a composite "<source>-<localId>" id to the
	// named adapter. An unrecognized source is an input error and is
	// returned immediately.
	GetAnimeDetails(ctx context.Context, id string) (*domain.AnimeRecord, error)
	// GetRecommendations fans out to every adapter that can resolve the
	// referenced title and returns the deduplicated candidate pool.
	GetRecommendations(ctx context.Context, id string) ([]domain.AnimeRecord, error)
	// GetTrending merges the trending charts of every adapter that exposes
	// one.
	GetTrending(ctx context.Context) ([]domain.AnimeRecord, error)
}

// TrendingProvider is implemented by adapters that can list currently
// trending titles.
type TrendingProvider interface {
	GetTrending(ctx context.Context) ([]domain.AnimeRecord, error)
}

type service struct {
	log      zerolog.Logger
	registry *provider.Registry
	merger   *Merger
	cfg      domain.AggregatorConfig
}

func NewService(log zerolog.Logger, registry *provider.Registry, merger *Merger, cfg domain.AggregatorConfig) Service {
	return &service{
		log:      log.With().Str("module", "aggregator").Logger(),
		registry: registry,
		merger:   merger,
		cfg:      cfg,
	}
}

func (s *service) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	adapters := s.registry.All()
	results := make([][]domain.AnimeRecord, len(adapters))

	// Full join: every branch resolves (success or downgraded failure)
	// before merging starts. Each branch carries its own deadline, so the
	// slowest adapter caps overall latency.
	var g errgroup.Group
	for i, p := range adapters {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
			defer cancel()

			recs, err := p.Search(cctx, query, opts)
			if err != nil {
				s.log.Warn().Err(domain.NewAdapterError(p.Name(), err)).
					Str("source", p.Name()).
					Str("query", query).
					Msg("adapter search failed, continuing without it")
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.AnimeRecord
	for _, recs := range results {
		for _, r := range recs {
			if r.IsAdult && !opts.IncludeAdult {
				continue
			}
			all = append(all, r)
		}
	}

	merged := s.mergeGroups(all)
	sortByWeightedScore(merged)

	s.log.Debug().
		Str("query", query).
		Int("raw", len(all)).
		Int("merged", len(merged)).
		Msg("search aggregation complete")

	return merged, nil
}

func (s *service) GetAnimeDetails(ctx context.Context, id string) (*domain.AnimeRecord, error) {
	source, localID, err := domain.SplitID(id)
	if err != nil {
		return nil, err
	}

	p, err := s.registry.Get(source)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	defer cancel()

	rec, err := p.GetDetails(cctx, localID)
	if err != nil {
		return nil, domain.NewAdapterError(source, err)
	}
	if rec != nil {
		rec.Clamp()
	}
	return rec, nil
}

func (s *service) GetRecommendations(ctx context.Context, id string) ([]domain.AnimeRecord, error) {
	source, localID, err := domain.SplitID(id)
	if err != nil {
		return nil, err
	}

	owner, err := s.registry.Get(source)
	if err != nil {
		return nil, err
	}

	// The reference record lets other adapters resolve the same title in
	// their own id space.
	ref, err := s.GetAnimeDetails(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("could not load reference details, limiting fan-out to owning source")
	}

	adapters := s.registry.All()
	results := make([][]domain.AnimeRecord, len(adapters))

	var g errgroup.Group
	for i, p := range adapters {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
			defer cancel()

			var recs []domain.AnimeRecord
			var rerr error
			if p.Name() == owner.Name() {
				recs, rerr = p.GetRecommendations(cctx, localID)
			} else if ref != nil {
				recs, rerr = s.recommendVia(cctx, p, ref)
			}
			if rerr != nil {
				s.log.Warn().Err(domain.NewAdapterError(p.Name(), rerr)).
					Str("source", p.Name()).
					Msg("adapter recommendations failed, continuing without it")
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Keep the higher-confidence instance per merge key rather than doing a
	// full field merge; recommendation pools only need one representative
	// per title.
	byKey := make(map[string]domain.AnimeRecord)
	var order []string
	for _, recs := range results {
		for _, r := range recs {
			r.Clamp()
			key := MergeKey(&r)
			if existing, ok := byKey[key]; !ok {
				byKey[key] = r
				order = append(order, key)
			} else if r.Confidence > existing.Confidence {
				byKey[key] = r
			}
		}
	}

	out := make([]domain.AnimeRecord, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	sortByWeightedScore(out)

	if len(out) > s.cfg.MaxRecommendations {
		out = out[:s.cfg.MaxRecommendations]
	}
	return out, nil
}

// recommendVia resolves ref in a foreign adapter's catalog by title search
// and asks that adapter for recommendations of the matching entry.
func (s *service) recommendVia(ctx context.Context, p domain.Provider, ref *domain.AnimeRecord) ([]domain.AnimeRecord, error) {
	hits, err := p.Search(ctx, ref.Title.Best(), domain.SearchOptions{PerPage: 5, IncludeAdult: ref.IsAdult})
	if err != nil {
		return nil, err
	}

	refKey := MergeKey(ref)
	for _, hit := range hits {
		if MergeKey(&hit) == refKey {
			return p.GetRecommendations(ctx, hit.SourceID)
		}
	}
	return nil, nil
}

func (s *service) GetTrending(ctx context.Context) ([]domain.AnimeRecord, error) {
	adapters := s.registry.All()
	results := make([][]domain.AnimeRecord, len(adapters))

	var g errgroup.Group
	for i, p := range adapters {
		tp, ok := p.(TrendingProvider)
		if !ok {
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
			defer cancel()

			recs, err := tp.GetTrending(cctx)
			if err != nil {
				s.log.Warn().Err(domain.NewAdapterError(p.Name(), err)).
					Str("source", p.Name()).
					Msg("adapter trending failed, continuing without it")
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.AnimeRecord
	for _, recs := range results {
		all = append(all, recs...)
	}

	merged := s.mergeGroups(all)
	sortByWeightedScore(merged)

	if len(merged) > s.cfg.MaxRecommendations {
		merged = merged[:s.cfg.MaxRecommendations]
	}
	return merged, nil
}

// mergeGroups groups records by MergeKey, keeping first-seen order of the
// groups, and collapses each group through the confidence merge.
func (s *service) mergeGroups(records []domain.AnimeRecord) []domain.AnimeRecord {
	groups := make(map[string][]domain.AnimeRecord)
	var order []string
	for _, r := range records {
		key := MergeKey(&r)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([]domain.AnimeRecord, 0, len(order))
	for _, key := range order {
		out = append(out, s.merger.Merge(groups[key]))
	}
	return out
}

// sortByWeightedScore orders records descending by averageScore times
// confidence, treating a missing score as 0.
func sortByWeightedScore(records []domain.AnimeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AverageScore*records[i].Confidence >
			records[j].AverageScore*records[j].Confidence
	})
}
