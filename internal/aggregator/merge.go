package aggregator

import (
	"sort"
	"strings"
	"time"

	"github.com/varoOP/niterudb/internal/domain"
)

// agreementBonusStep is added to the merged confidence per extra agreeing
// source, capped at agreementBonusCap.
const (
	agreementBonusStep = 0.1
	agreementBonusCap  = 0.2
)

// Merger folds groups of merge-eligible records into one consolidated
// record. sourceWeight supplies the externally configured weight of each
// provider for score averaging.
type Merger struct {
	sourceWeight func(source string) float64
	now          func() time.Time
}

// NewMerger creates a merger using the given source weighting.
func NewMerger(sourceWeight func(string) float64) *Merger {
	return &Merger{
		sourceWeight: sourceWeight,
		now:          time.Now,
	}
}

// Merge consolidates a group of records sharing a MergeKey. The group is
// ordered by confidence descending; the highest-confidence contributor is
// primary and keeps its identity. Scalar fields take the first reliable
// value, set fields union across all contributors, and agreement raises the
// merged confidence. The result is always clamped.
func (m *Merger) Merge(group []domain.AnimeRecord) domain.AnimeRecord {
	if len(group) == 0 {
		return domain.AnimeRecord{}
	}

	ordered := make([]domain.AnimeRecord, len(group))
	copy(ordered, group)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	primary := ordered[0]
	if len(ordered) == 1 {
		primary.Clamp()
		return primary
	}

	merged := domain.AnimeRecord{
		ID:         primary.ID,
		SourceID:   primary.SourceID,
		SourceName: primary.SourceName,
		Title: domain.Title{
			English: firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.Title.English }),
			Romaji:  firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.Title.Romaji }),
			Native:  firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.Title.Native }),
			Common:  firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.Title.Common }),
		},
		Description: firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.Description }),
		CoverImage: domain.CoverImage{
			Large:  firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.CoverImage.Large }),
			Medium: firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.CoverImage.Medium }),
			Small:  firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.CoverImage.Small }),
		},
		BannerImage:     firstPresent(ordered, func(r *domain.AnimeRecord) string { return r.BannerImage }),
		Popularity:      firstPresent(ordered, func(r *domain.AnimeRecord) int { return r.Popularity }),
		UserCount:       firstPresent(ordered, func(r *domain.AnimeRecord) int { return r.UserCount }),
		Episodes:        firstPresent(ordered, func(r *domain.AnimeRecord) int { return r.Episodes }),
		DurationMinutes: firstPresent(ordered, func(r *domain.AnimeRecord) int { return r.DurationMinutes }),
		Status:          firstPresent(ordered, func(r *domain.AnimeRecord) domain.Status { return r.Status }),
		StartDate:       firstDate(ordered, func(r *domain.AnimeRecord) domain.FuzzyDate { return r.StartDate }),
		EndDate:         firstDate(ordered, func(r *domain.AnimeRecord) domain.FuzzyDate { return r.EndDate }),
		Genres:          unionFold(ordered, func(r *domain.AnimeRecord) []string { return r.Genres }),
		Tags:            unionFold(ordered, func(r *domain.AnimeRecord) []string { return r.Tags }),
		Demographics:    unionFold(ordered, func(r *domain.AnimeRecord) []string { return r.Demographics }),
		Themes:          unionFold(ordered, func(r *domain.AnimeRecord) []string { return r.Themes }),
		Studios:         unionFold(ordered, func(r *domain.AnimeRecord) []string { return r.Studios }),
		Producers:       unionFold(ordered, func(r *domain.AnimeRecord) []string { return r.Producers }),
		AverageScore:    m.weightedScore(ordered),
		Confidence:      mergedConfidence(ordered),
		LastUpdated:     m.now(),
	}

	for _, r := range ordered {
		if r.IsAdult {
			merged.IsAdult = true
			break
		}
	}

	merged.Clamp()
	return merged
}

// weightedScore averages the scores of contributors that have one, each
// weighted by its confidence times the configured source weight. Returns 0
// (unset) when no contributor has a score.
func (m *Merger) weightedScore(ordered []domain.AnimeRecord) float64 {
	var sum, weightSum float64
	for _, r := range ordered {
		if r.AverageScore <= 0 {
			continue
		}
		w := r.Confidence * m.sourceWeight(r.SourceName)
		sum += r.AverageScore * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// mergedConfidence raises the best contributor's confidence by a bonus for
// each additional agreeing source, capped at +0.2 and at 1.0 overall.
func mergedConfidence(ordered []domain.AnimeRecord) float64 {
	maxConf := ordered[0].Confidence
	for _, r := range ordered[1:] {
		if r.Confidence > maxConf {
			maxConf = r.Confidence
		}
	}

	bonus := agreementBonusStep * float64(len(ordered)-1)
	if bonus > agreementBonusCap {
		bonus = agreementBonusCap
	}

	conf := maxConf + bonus
	if conf > 1 {
		conf = 1
	}
	return conf
}

// firstPresent scans a confidence-ordered group and returns the first
// non-zero value of the accessed field. A low-confidence source can supply
// a field no higher-confidence source provided.
func firstPresent[T comparable](ordered []domain.AnimeRecord, get func(*domain.AnimeRecord) T) T {
	var zero T
	for i := range ordered {
		if v := get(&ordered[i]); v != zero {
			return v
		}
	}
	return zero
}

// firstDate is firstPresent for fuzzy dates, which have their own notion of
// "unknown".
func firstDate(ordered []domain.AnimeRecord, get func(*domain.AnimeRecord) domain.FuzzyDate) domain.FuzzyDate {
	for i := range ordered {
		if d := get(&ordered[i]); !d.IsZero() {
			return d
		}
	}
	return domain.FuzzyDate{}
}

// unionFold unions a set-valued field across all contributors,
// deduplicating case-insensitively and keeping the casing of the first
// occurrence.
func unionFold(ordered []domain.AnimeRecord, get func(*domain.AnimeRecord) []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for i := range ordered {
		for _, v := range get(&ordered[i]) {
			key := strings.ToLower(v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
