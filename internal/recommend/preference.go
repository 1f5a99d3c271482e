package recommend

import (
	"github.com/varoOP/niterudb/internal/domain"
)

// Fixed internal weighting of the preference-only scoring path. This is
// deliberately distinct from the configurable pairwise-similarity weights;
// unifying the two would silently change ranked output.
const (
	prefGenreWeight       = 0.4
	prefStudioWeight      = 0.2
	prefDemographicWeight = 0.15
	prefScoreWeight       = 0.25
)

func (s *service) PreferenceBased(profile domain.PreferenceProfile, pool []domain.AnimeRecord, limit int) []domain.RecommendationResult {
	if len(pool) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]domain.RecommendationResult, 0, len(pool))
	for i := range pool {
		candidate := &pool[i]
		if !passesHardFilters(candidate, &profile) {
			continue
		}

		score, reasons := s.preferenceScore(candidate, &profile)
		sortReasons(reasons)

		rec := *candidate
		rec.Clamp()
		results = append(results, domain.RecommendationResult{
			Record:  rec,
			Score:   clampUnit(score),
			Reasons: reasons,
		})
	}

	sortResults(results)
	return truncate(results, limit)
}

// passesHardFilters applies the profile's hard constraints. Constraints
// whose inputs are missing on the candidate do not reject it, except the
// disliked-genre list which always applies.
func passesHardFilters(candidate *domain.AnimeRecord, profile *domain.PreferenceProfile) bool {
	if profile.MinScore > 0 && candidate.AverageScore > 0 && candidate.AverageScore < profile.MinScore {
		return false
	}
	if profile.MaxEpisodes > 0 && candidate.Episodes > 0 && candidate.Episodes > profile.MaxEpisodes {
		return false
	}
	if year := candidate.StartYear(); year > 0 {
		if profile.YearMin > 0 && year < profile.YearMin {
			return false
		}
		if profile.YearMax > 0 && year > profile.YearMax {
			return false
		}
	}
	if containsAny(candidate.Genres, profile.DislikedGenres) {
		return false
	}
	return true
}

// preferenceScore applies the fixed internal weighting to a candidate that
// already passed the hard filters.
func (s *service) preferenceScore(candidate *domain.AnimeRecord, profile *domain.PreferenceProfile) (float64, []domain.Reason) {
	var score float64
	var reasons []domain.Reason

	if len(profile.FavoriteGenres) > 0 {
		matched := shared(candidate.Genres, profile.FavoriteGenres)
		if len(matched) > 0 {
			fraction := float64(len(matched)) / float64(len(profile.FavoriteGenres))
			score += prefGenreWeight * fraction
			for _, genre := range matched {
				reasons = append(reasons, domain.Reason{
					Kind:   domain.ReasonGenre,
					Value:  genre,
					Weight: prefGenreWeight / float64(len(profile.FavoriteGenres)),
				})
			}
		}
	}

	if studios := shared(candidate.Studios, profile.PreferredStudios); len(studios) > 0 {
		score += prefStudioWeight
		reasons = append(reasons, domain.Reason{
			Kind:   domain.ReasonStudio,
			Value:  studios[0],
			Weight: prefStudioWeight,
		})
	}

	if demos := shared(candidate.Demographics, profile.PreferredDemographics); len(demos) > 0 {
		score += prefDemographicWeight
		reasons = append(reasons, domain.Reason{
			Kind:   domain.ReasonDemographic,
			Value:  demos[0],
			Weight: prefDemographicWeight,
		})
	}

	if candidate.AverageScore > 0 {
		score += prefScoreWeight * candidate.AverageScore / 100
		reasons = append(reasons, domain.Reason{
			Kind:   domain.ReasonScore,
			Value:  "highly rated",
			Weight: prefScoreWeight * candidate.AverageScore / 100,
		})
	}

	return score, reasons
}
