package recommend

import (
	"math"
	"strings"

	"github.com/varoOP/niterudb/internal/domain"
)

// Similarity computes the weighted pairwise similarity of two records and
// the per-factor breakdown behind it. Factors whose inputs are missing on
// either side contribute 0.
func (s *service) Similarity(a, b *domain.AnimeRecord) (float64, domain.FactorScores) {
	f := domain.FactorScores{
		Genre:       jaccard(a.Genres, b.Genres),
		Studio:      binaryOverlap(a.Studios, b.Studios),
		Score:       scoreProximity(a.AverageScore, b.AverageScore),
		Year:        yearProximity(a.StartYear(), b.StartYear()),
		Episodes:    episodeRatio(a.Episodes, b.Episodes),
		Demographic: binaryOverlap(a.Demographics, b.Demographics),
		Tags:        jaccard(a.Tags, b.Tags),
	}

	w := s.weights
	total := w.Genre*f.Genre +
		w.Studio*f.Studio +
		w.Score*f.Score +
		w.Year*f.Year +
		w.Episodes*f.Episodes +
		w.Demographic*f.Demographic +
		w.Tags*f.Tags

	return total, f
}

// jaccard is intersection over union, case-insensitive. Two empty sets have
// no evidence of similarity and score 0.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := lowerSet(a)
	setB := lowerSet(b)

	intersection := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// binaryOverlap is 1 if the sets share any element, else 0.
func binaryOverlap(a, b []string) float64 {
	if sharedCount(a, b) > 0 {
		return 1
	}
	return 0
}

// scoreProximity maps the score gap onto [0,1]; 0 if either score is
// missing.
func scoreProximity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return math.Max(0, 1-math.Abs(a-b)/100)
}

// yearProximity maps the release-year gap onto [0,1] over a decade; 0 if
// either year is missing.
func yearProximity(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return math.Max(0, 1-math.Abs(float64(a-b))/10)
}

// episodeRatio is min/max of the episode counts; 0 if either is missing.
func episodeRatio(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

// shared returns the elements of a that also appear in b, compared
// case-insensitively, keeping a's casing.
func shared(a, b []string) []string {
	setB := lowerSet(b)
	var out []string
	seen := make(map[string]struct{})
	for _, v := range a {
		key := strings.ToLower(v)
		if _, ok := setB[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sharedCount(a, b []string) int {
	return len(shared(a, b))
}

// containsAny reports whether any element of values appears in set,
// case-insensitively.
func containsAny(values, set []string) bool {
	return sharedCount(values, set) > 0
}
