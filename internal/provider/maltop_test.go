package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/logger"
)

func newTestMalTop(baseURL string) *MalTop {
	m := NewMalTop(logger.New(), testProviderConfig())
	m.baseURL = baseURL
	return m
}

func TestMalTopSearchScrapesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "steins", r.URL.Query().Get("q"))
		w.Write([]byte(`<html><body>
			<a class="hoverinfo_trigger" href="https://myanimelist.net/anime/9253/Steins_Gate"><strong>Steins;Gate</strong></a>
			<a class="hoverinfo_trigger" href="https://myanimelist.net/anime/9253/Steins_Gate"><strong>Steins;Gate</strong></a>
			<a class="hoverinfo_trigger" href="https://myanimelist.net/anime/11061/Hunter_x_Hunter"><strong>Hunter x Hunter</strong></a>
		</body></html>`))
	}))
	defer srv.Close()

	m := newTestMalTop(srv.URL)
	records, err := m.Search(context.Background(), "steins", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2, "duplicate links collapse to one record")

	assert.Equal(t, "maltop-9253", records[0].ID)
	assert.Equal(t, "Steins;Gate", records[0].Title.Best())
	assert.Equal(t, "maltop-11061", records[1].ID)
	assert.InDelta(t, maltopConfidence, records[0].Confidence, 1e-9)
}

func TestMalTopSearchHonorsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m := newTestMalTop(srv.URL)
	start := time.Now()
	_, err := m.Search(ctx, "slow", domain.SearchOptions{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "deadline must cap the scrape")
}

func TestMalTopSearchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newTestMalTop("http://127.0.0.1:0")
	_, err := m.Search(ctx, "anything", domain.SearchOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMalTopGetDetailsScrapesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h1 class="title-name">Steins;Gate</h1>
			<span itemprop="genre">Sci-Fi</span>
			<span itemprop="genre">Thriller</span>
			<div class="score-label">9.07</div>
			<div class="spaceit_pad"><span class="dark_text">Episodes:</span> 24</div>
			<div class="spaceit_pad"><span class="dark_text">Studios:</span> White Fox</div>
		</body></html>`))
	}))
	defer srv.Close()

	m := newTestMalTop(srv.URL)
	rec, err := m.GetDetails(context.Background(), "9253")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "maltop-9253", rec.ID)
	assert.Equal(t, "Steins;Gate", rec.Title.Best())
	assert.Equal(t, []string{"Sci-Fi", "Thriller"}, rec.Genres)
	assert.InDelta(t, 90.7, rec.AverageScore, 1e-9)
	assert.Equal(t, 24, rec.Episodes)
	assert.Equal(t, []string{"White Fox"}, rec.Studios)
}

func TestMalTopGetDetailsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	m := newTestMalTop(srv.URL)
	rec, err := m.GetDetails(context.Background(), "404404")
	require.NoError(t, err, "a missing title is an absent record, not a failure")
	assert.Nil(t, rec)
}

func TestMalTopGetRecommendationsExcludesReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="picSurround"><a href="/anime/9253/Steins_Gate" title="Steins;Gate"></a></div>
			<div class="picSurround"><a href="/anime/2025/Other" title="Other"></a></div>
		</body></html>`))
	}))
	defer srv.Close()

	m := newTestMalTop(srv.URL)
	records, err := m.GetRecommendations(context.Background(), "2025")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "maltop-9253", records[0].ID)
}

func TestMalTopGetTrendingMarksReleasing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><table>
			<tr class="ranking-list">
				<td><h3><a href="https://myanimelist.net/anime/5114/FMA_Brotherhood">Fullmetal Alchemist: Brotherhood</a></h3></td>
				<td><span class="score-label">9.1</span></td>
			</tr>
		</table></body></html>`))
	}))
	defer srv.Close()

	m := newTestMalTop(srv.URL)
	records, err := m.GetTrending(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "maltop-5114", rec.ID)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", rec.Title.Best())
	assert.Equal(t, domain.StatusReleasing, rec.Status)
	assert.InDelta(t, 91.0, rec.AverageScore, 1e-9)
}
