package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/niterudb/internal/domain"
)

func testWeights(source string) float64 {
	switch source {
	case "anilist":
		return 0.35
	case "jikan":
		return 0.30
	default:
		return 0.25
	}
}

func TestMergeKeyNormalization(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.AnimeRecord
		same bool
	}{
		{
			name: "article and punctuation stripped",
			a:    domain.AnimeRecord{Title: domain.Title{English: "The Promised Neverland!"}, StartDate: domain.FuzzyDate{Year: 2019}, Episodes: 12},
			b:    domain.AnimeRecord{Title: domain.Title{Romaji: "promised neverland"}, StartDate: domain.FuzzyDate{Year: 2019}, Episodes: 12},
			same: true,
		},
		{
			name: "case insensitive",
			a:    domain.AnimeRecord{Title: domain.Title{Common: "COWBOY BEBOP"}, StartDate: domain.FuzzyDate{Year: 1998}, Episodes: 26},
			b:    domain.AnimeRecord{Title: domain.Title{Common: "Cowboy Bebop"}, StartDate: domain.FuzzyDate{Year: 1998}, Episodes: 26},
			same: true,
		},
		{
			name: "different year splits the group",
			a:    domain.AnimeRecord{Title: domain.Title{Common: "Hunter x Hunter"}, StartDate: domain.FuzzyDate{Year: 1999}, Episodes: 62},
			b:    domain.AnimeRecord{Title: domain.Title{Common: "Hunter x Hunter"}, StartDate: domain.FuzzyDate{Year: 2011}, Episodes: 62},
			same: false,
		},
		{
			name: "unknown year degrades rather than blocks",
			a:    domain.AnimeRecord{Title: domain.Title{Common: "Mushishi"}, Episodes: 26},
			b:    domain.AnimeRecord{Title: domain.Title{Common: "Mushishi"}, Episodes: 26},
			same: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, MergeKey(&tt.a), MergeKey(&tt.b))
			} else {
				assert.NotEqual(t, MergeKey(&tt.a), MergeKey(&tt.b))
			}
		})
	}
}

func TestMergeWeightedScoreAndConfidence(t *testing.T) {
	m := NewMerger(testWeights)

	a := domain.AnimeRecord{
		ID: "anilist-1", SourceID: "1", SourceName: "anilist",
		Title:        domain.Title{Romaji: "Steins;Gate"},
		AverageScore: 85,
		Confidence:   0.9,
	}
	b := domain.AnimeRecord{
		ID: "jikan-5", SourceID: "5", SourceName: "jikan",
		Title:        domain.Title{Common: "Steins Gate"},
		AverageScore: 78,
		Confidence:   0.7,
	}

	merged := m.Merge([]domain.AnimeRecord{b, a})

	// (85*0.315 + 78*0.21) / (0.315 + 0.21)
	assert.InDelta(t, 82.2, merged.AverageScore, 0.1)
	assert.InDelta(t, 1.0, merged.Confidence, 1e-9)
	// Primary contributor keeps its identity.
	assert.Equal(t, "anilist-1", merged.ID)
	assert.Equal(t, "anilist", merged.SourceName)
}

func TestMergeConfidenceNeverBelowInputs(t *testing.T) {
	m := NewMerger(testWeights)

	groups := [][]domain.AnimeRecord{
		{
			{SourceName: "anilist", Confidence: 0.4},
			{SourceName: "jikan", Confidence: 0.3},
		},
		{
			{SourceName: "anilist", Confidence: 0.95},
			{SourceName: "jikan", Confidence: 0.9},
			{SourceName: "kitsu", Confidence: 0.8},
		},
	}

	for _, group := range groups {
		maxIn := 0.0
		for _, r := range group {
			if r.Confidence > maxIn {
				maxIn = r.Confidence
			}
		}
		merged := m.Merge(group)
		assert.GreaterOrEqual(t, merged.Confidence, maxIn)
		assert.LessOrEqual(t, merged.Confidence, 1.0)
	}
}

func TestMergeAgreementBonusCapped(t *testing.T) {
	m := NewMerger(testWeights)

	group := []domain.AnimeRecord{
		{SourceName: "a", Confidence: 0.5},
		{SourceName: "b", Confidence: 0.5},
		{SourceName: "c", Confidence: 0.5},
		{SourceName: "d", Confidence: 0.5},
		{SourceName: "e", Confidence: 0.5},
	}

	merged := m.Merge(group)
	// Bonus is 0.1 per extra source but capped at 0.2.
	assert.InDelta(t, 0.7, merged.Confidence, 1e-9)
}

func TestMergeFirstReliableWins(t *testing.T) {
	m := NewMerger(testWeights)

	high := domain.AnimeRecord{
		SourceName: "anilist", Confidence: 0.9,
		Title: domain.Title{Romaji: "Yuru Camp"},
	}
	low := domain.AnimeRecord{
		SourceName: "kitsu", Confidence: 0.5,
		Title:       domain.Title{Romaji: "Yuru Camp", English: "Laid-Back Camp"},
		Description: "Camping girls.",
		Episodes:    12,
		Status:      domain.StatusFinished,
	}

	merged := m.Merge([]domain.AnimeRecord{high, low})

	// Fields the primary lacks fall through to lower-confidence sources.
	assert.Equal(t, "Laid-Back Camp", merged.Title.English)
	assert.Equal(t, "Camping girls.", merged.Description)
	assert.Equal(t, 12, merged.Episodes)
	assert.Equal(t, domain.StatusFinished, merged.Status)
}

func TestMergeSetUnionKeepsFirstCasing(t *testing.T) {
	m := NewMerger(testWeights)

	a := domain.AnimeRecord{
		SourceName: "anilist", Confidence: 0.9,
		Genres:  []string{"Action", "Drama"},
		Studios: []string{"MAPPA"},
	}
	b := domain.AnimeRecord{
		SourceName: "jikan", Confidence: 0.7,
		Genres:  []string{"action", "Fantasy"},
		Studios: []string{"mappa", "Madhouse"},
	}

	merged := m.Merge([]domain.AnimeRecord{a, b})

	assert.Equal(t, []string{"Action", "Drama", "Fantasy"}, merged.Genres)
	assert.Equal(t, []string{"MAPPA", "Madhouse"}, merged.Studios)
}

func TestMergeClampsOutOfRangeValues(t *testing.T) {
	m := NewMerger(func(string) float64 { return 1 })

	group := []domain.AnimeRecord{
		{SourceName: "a", Confidence: 1.4, AverageScore: 130},
		{SourceName: "b", Confidence: 0.9, AverageScore: 120},
	}

	merged := m.Merge(group)
	assert.LessOrEqual(t, merged.Confidence, 1.0)
	assert.LessOrEqual(t, merged.AverageScore, 100.0)

	single := m.Merge([]domain.AnimeRecord{{SourceName: "a", Confidence: -0.2, AverageScore: -5}})
	assert.GreaterOrEqual(t, single.Confidence, 0.0)
	assert.GreaterOrEqual(t, single.AverageScore, 0.0)
}

func TestMergeEmptyGroup(t *testing.T) {
	m := NewMerger(testWeights)
	merged := m.Merge(nil)
	require.Equal(t, domain.AnimeRecord{}, merged)
}
