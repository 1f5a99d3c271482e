// Package recommend scores candidate titles against reference items or a
// user preference profile and produces ranked, explainable results. The
// engine only reads records; it never mutates the candidate pool.
package recommend

import (
	"math"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
)

const (
	// DefaultLimit caps ranked output when the caller does not ask for a
	// specific maximum.
	DefaultLimit = 20
	// hybridReasonCap bounds the merged reason list of a hybrid result.
	hybridReasonCap = 5
	// yearReasonRange is how close (in years) two releases must be for year
	// proximity to count as a reason.
	yearReasonRange = 3
)

type Service interface {
	// Similarity returns the weighted pairwise similarity of two records
	// with its per-factor breakdown.
	Similarity(a, b *domain.AnimeRecord) (float64, domain.FactorScores)
	// ContentBased ranks the pool against one reference item. A nil profile
	// applies no hard filters. Empty reference or pool yields an empty
	// list.
	ContentBased(reference *domain.AnimeRecord, pool []domain.AnimeRecord, profile *domain.PreferenceProfile, limit int) []domain.RecommendationResult
	// Hybrid ranks the pool against several reference items, averaging the
	// pairwise totals.
	Hybrid(references []domain.AnimeRecord, pool []domain.AnimeRecord, limit int) []domain.RecommendationResult
	// PreferenceBased ranks the pool against a profile alone, using the
	// engine's fixed internal weighting.
	PreferenceBased(profile domain.PreferenceProfile, pool []domain.AnimeRecord, limit int) []domain.RecommendationResult
}

type service struct {
	log     zerolog.Logger
	weights domain.FactorWeights
}

// NewService creates an engine with the given factor weights. The engine is
// stateless beyond its configuration and safe for concurrent use.
func NewService(log zerolog.Logger, weights domain.FactorWeights) Service {
	return &service{
		log:     log.With().Str("module", "recommend").Logger(),
		weights: weights,
	}
}

func (s *service) ContentBased(reference *domain.AnimeRecord, pool []domain.AnimeRecord, profile *domain.PreferenceProfile, limit int) []domain.RecommendationResult {
	if reference == nil || len(pool) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]domain.RecommendationResult, 0, len(pool))
	for i := range pool {
		candidate := &pool[i]
		if candidate.ID == reference.ID {
			continue
		}
		if profile != nil && !passesHardFilters(candidate, profile) {
			continue
		}

		total, _ := s.Similarity(reference, candidate)
		reasons := s.pairwiseReasons(reference, candidate)
		sortReasons(reasons)

		rec := *candidate
		rec.Clamp()
		results = append(results, domain.RecommendationResult{
			Record:  rec,
			Score:   clampUnit(total),
			Reasons: reasons,
		})
	}

	sortResults(results)
	return truncate(results, limit)
}

func (s *service) Hybrid(references []domain.AnimeRecord, pool []domain.AnimeRecord, limit int) []domain.RecommendationResult {
	if len(references) == 0 || len(pool) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	refIDs := make(map[string]struct{}, len(references))
	for _, ref := range references {
		refIDs[ref.ID] = struct{}{}
	}

	results := make([]domain.RecommendationResult, 0, len(pool))
	for i := range pool {
		candidate := &pool[i]
		if _, isRef := refIDs[candidate.ID]; isRef {
			continue
		}

		var sum float64
		merged := make(map[reasonKey]domain.Reason)
		for j := range references {
			total, _ := s.Similarity(&references[j], candidate)
			sum += total
			for _, reason := range s.pairwiseReasons(&references[j], candidate) {
				key := reasonKey{kind: reason.Kind, value: reason.Value}
				if existing, ok := merged[key]; !ok || reason.Weight > existing.Weight {
					merged[key] = reason
				}
			}
		}

		reasons := make([]domain.Reason, 0, len(merged))
		for _, reason := range merged {
			reasons = append(reasons, reason)
		}
		sortReasons(reasons)
		if len(reasons) > hybridReasonCap {
			reasons = reasons[:hybridReasonCap]
		}

		rec := *candidate
		rec.Clamp()
		results = append(results, domain.RecommendationResult{
			Record:  rec,
			Score:   clampUnit(sum / float64(len(references))),
			Reasons: reasons,
		})
	}

	sortResults(results)
	return truncate(results, limit)
}

type reasonKey struct {
	kind  domain.ReasonKind
	value string
}

// pairwiseReasons explains one reference-candidate comparison: one reason
// per shared genre, one per shared studio, and one for release-year
// proximity within yearReasonRange.
func (s *service) pairwiseReasons(reference, candidate *domain.AnimeRecord) []domain.Reason {
	var reasons []domain.Reason

	sharedGenres := shared(reference.Genres, candidate.Genres)
	for _, genre := range sharedGenres {
		reasons = append(reasons, domain.Reason{
			Kind:   domain.ReasonGenre,
			Value:  genre,
			Weight: s.weights.Genre / float64(len(sharedGenres)),
		})
	}

	for _, studio := range shared(reference.Studios, candidate.Studios) {
		reasons = append(reasons, domain.Reason{
			Kind:   domain.ReasonStudio,
			Value:  studio,
			Weight: s.weights.Studio,
		})
	}

	refYear, candYear := reference.StartYear(), candidate.StartYear()
	if refYear > 0 && candYear > 0 {
		gap := math.Abs(float64(refYear - candYear))
		if gap <= yearReasonRange {
			reasons = append(reasons, domain.Reason{
				Kind:   domain.ReasonYear,
				Value:  strconv.Itoa(candYear),
				Weight: s.weights.Year * (1 - gap/(yearReasonRange+1)),
			})
		}
	}

	return reasons
}

func sortReasons(reasons []domain.Reason) {
	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].Weight > reasons[j].Weight
	})
}

func sortResults(results []domain.RecommendationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func truncate(results []domain.RecommendationResult, limit int) []domain.RecommendationResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
