package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/logger"
	"github.com/varoOP/niterudb/internal/provider"
)

type fakeProvider struct {
	name      string
	search    []domain.AnimeRecord
	details   map[string]*domain.AnimeRecord
	recs      map[string][]domain.AnimeRecord
	trending  []domain.AnimeRecord
	searchErr error
	delay     time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search, nil
}

func (f *fakeProvider) GetDetails(ctx context.Context, localID string) (*domain.AnimeRecord, error) {
	return f.details[localID], nil
}

func (f *fakeProvider) GetRecommendations(ctx context.Context, localID string) ([]domain.AnimeRecord, error) {
	return f.recs[localID], nil
}

func (f *fakeProvider) GetTrending(ctx context.Context) ([]domain.AnimeRecord, error) {
	return f.trending, nil
}

func testConfig() domain.AggregatorConfig {
	return domain.AggregatorConfig{
		AdapterTimeout:     200 * time.Millisecond,
		MaxRecommendations: 20,
	}
}

func newTestService(providers ...domain.Provider) Service {
	return NewService(
		logger.New(),
		provider.NewRegistry(providers...),
		NewMerger(testWeights),
		testConfig(),
	)
}

func record(source, localID, title string, year, episodes int, conf, score float64) domain.AnimeRecord {
	return domain.AnimeRecord{
		ID:           domain.ComposeID(source, localID),
		SourceID:     localID,
		SourceName:   source,
		Title:        domain.Title{Common: title},
		StartDate:    domain.FuzzyDate{Year: year},
		Episodes:     episodes,
		Confidence:   conf,
		AverageScore: score,
	}
}

func TestSearchMergesAcrossSources(t *testing.T) {
	a := &fakeProvider{name: "anilist", search: []domain.AnimeRecord{
		record("anilist", "1", "Steins;Gate", 2011, 24, 0.9, 85),
		record("anilist", "2", "Another Show", 2015, 12, 0.9, 70),
	}}
	b := &fakeProvider{name: "jikan", search: []domain.AnimeRecord{
		record("jikan", "9", "Steins Gate", 2011, 24, 0.7, 78),
	}}

	svc := newTestService(a, b)
	results, err := svc.Search(context.Background(), "steins", domain.SearchOptions{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	// Merged record ranks first by score x confidence and keeps the
	// higher-confidence source's identity.
	assert.Equal(t, "anilist-1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Confidence, 1e-9)
	assert.Equal(t, "anilist-2", results[1].ID)
}

func TestSearchToleratesFailingAdapter(t *testing.T) {
	ok := &fakeProvider{name: "anilist", search: []domain.AnimeRecord{
		record("anilist", "1", "Mushishi", 2005, 26, 0.9, 88),
	}}
	bad := &fakeProvider{name: "jikan", searchErr: errors.New("upstream 503")}

	svc := newTestService(ok, bad)
	results, err := svc.Search(context.Background(), "mushishi", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "anilist-1", results[0].ID)
}

func TestSearchToleratesSlowAdapter(t *testing.T) {
	fast := &fakeProvider{name: "anilist", search: []domain.AnimeRecord{
		record("anilist", "1", "Monster", 2004, 74, 0.9, 89),
	}}
	slow := &fakeProvider{name: "kitsu", delay: time.Second, search: []domain.AnimeRecord{
		record("kitsu", "2", "Monster", 2004, 74, 0.75, 85),
	}}

	svc := newTestService(fast, slow)

	start := time.Now()
	results, err := svc.Search(context.Background(), "monster", domain.SearchOptions{})
	require.NoError(t, err)

	// The slow branch is cut off by its own deadline, not waited out.
	assert.Less(t, time.Since(start), 800*time.Millisecond)
	require.Len(t, results, 1)
	assert.Equal(t, "anilist-1", results[0].ID)
}

func TestSearchFiltersAdultByDefault(t *testing.T) {
	adult := record("anilist", "1", "Some Adult Show", 2020, 12, 0.9, 80)
	adult.IsAdult = true
	safe := record("anilist", "2", "Safe Show", 2020, 12, 0.9, 75)

	p := &fakeProvider{name: "anilist", search: []domain.AnimeRecord{adult, safe}}
	svc := newTestService(p)

	results, err := svc.Search(context.Background(), "show", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "anilist-2", results[0].ID)

	results, err = svc.Search(context.Background(), "show", domain.SearchOptions{IncludeAdult: true})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchClampsProviderValues(t *testing.T) {
	dirty := record("anilist", "1", "Overclocked", 2020, 12, 1.7, 140)
	p := &fakeProvider{name: "anilist", search: []domain.AnimeRecord{dirty}}

	svc := newTestService(p)
	results, err := svc.Search(context.Background(), "overclocked", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.LessOrEqual(t, results[0].AverageScore, 100.0)
	assert.LessOrEqual(t, results[0].Confidence, 1.0)
}

func TestGetAnimeDetailsRouting(t *testing.T) {
	rec := record("anilist", "1", "Ping Pong the Animation", 2014, 11, 0.9, 86)
	p := &fakeProvider{name: "anilist", details: map[string]*domain.AnimeRecord{"1": &rec}}

	svc := newTestService(p)

	got, err := svc.GetAnimeDetails(context.Background(), "anilist-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "anilist-1", got.ID)

	// Unknown source is a checked input error, not a downgraded failure.
	_, err = svc.GetAnimeDetails(context.Background(), "nosuch-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnknownSource)

	// Malformed composite id.
	_, err = svc.GetAnimeDetails(context.Background(), "justanid")
	require.Error(t, err)

	// Missing entry is a nil record, not an error.
	got, err = svc.GetAnimeDetails(context.Background(), "anilist-999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetRecommendationsDeduplicatesAndCaps(t *testing.T) {
	ref := record("anilist", "1", "Haikyuu", 2014, 25, 0.9, 85)

	var ownerRecs []domain.AnimeRecord
	for i := 0; i < 25; i++ {
		ownerRecs = append(ownerRecs, record("anilist", string(rune('a'+i)), "Show "+string(rune('A'+i)), 2015, 12, 0.9, 70))
	}

	owner := &fakeProvider{
		name:    "anilist",
		details: map[string]*domain.AnimeRecord{"1": &ref},
		recs:    map[string][]domain.AnimeRecord{"1": ownerRecs},
	}
	// The other source resolves the title via search and contributes a
	// duplicate of Show A at lower confidence.
	other := &fakeProvider{
		name:   "jikan",
		search: []domain.AnimeRecord{record("jikan", "7", "Haikyuu", 2014, 25, 0.7, 80)},
		recs: map[string][]domain.AnimeRecord{
			"7": {record("jikan", "8", "Show A", 2015, 12, 0.7, 68)},
		},
	}

	svc := newTestService(owner, other)
	results, err := svc.GetRecommendations(context.Background(), "anilist-1")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(results), 20)
	for _, r := range results {
		if r.Title.Common == "Show A" {
			// Higher-confidence instance wins the dedupe.
			assert.Equal(t, "anilist", r.SourceName)
		}
	}
}

func TestGetTrendingMergesTrendingSources(t *testing.T) {
	a := &fakeProvider{name: "anilist", trending: []domain.AnimeRecord{
		record("anilist", "1", "Frieren", 2023, 28, 0.9, 91),
	}}
	b := &fakeProvider{name: "maltop", trending: []domain.AnimeRecord{
		record("maltop", "52991", "Frieren", 2023, 28, 0.7, 93),
	}}

	svc := newTestService(a, b)
	results, err := svc.GetTrending(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "anilist-1", results[0].ID)
	assert.Greater(t, results[0].Confidence, 0.9)
}
