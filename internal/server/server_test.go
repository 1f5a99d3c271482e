package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/niterudb/internal/cache"
	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/logger"
	"github.com/varoOP/niterudb/internal/provider"
)

type fakeFacade struct {
	search   []domain.AnimeRecord
	details  map[string]*domain.AnimeRecord
	recs     []domain.RecommendationResult
	trending []domain.AnimeRecord
	cleared  bool

	detailsErr error
}

func (f *fakeFacade) SearchAnime(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	return f.search, nil
}

func (f *fakeFacade) GetAnimeDetails(ctx context.Context, id string) (*domain.AnimeRecord, error) {
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	return f.details[id], nil
}

func (f *fakeFacade) GetRecommendations(ctx context.Context, id string, limit int) ([]domain.RecommendationResult, error) {
	return f.recs, nil
}

func (f *fakeFacade) GetHybridRecommendations(ctx context.Context, ids []string, limit int) ([]domain.RecommendationResult, error) {
	return f.recs, nil
}

func (f *fakeFacade) GetPreferenceBasedRecommendations(ctx context.Context, profile domain.PreferenceProfile, limit int) ([]domain.RecommendationResult, error) {
	return f.recs, nil
}

func (f *fakeFacade) GetTrendingAnime(ctx context.Context) ([]domain.AnimeRecord, error) {
	return f.trending, nil
}

func (f *fakeFacade) GetCacheStats() cache.Stats { return cache.Stats{} }

func (f *fakeFacade) ClearCache() { f.cleared = true }

func newTestServer(f *fakeFacade) *Server {
	return NewServer(logger.New(), f, domain.ServerConfig{Addr: ":0"})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeFacade{})
	rec := doRequest(s, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(&fakeFacade{})
	rec := doRequest(s, http.MethodGet, "/v1/anime/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchReturnsResults(t *testing.T) {
	s := newTestServer(&fakeFacade{search: []domain.AnimeRecord{
		{ID: "anilist-1", Title: domain.Title{Common: "Mushishi"}},
	}})

	rec := doRequest(s, http.MethodGet, "/v1/anime/search?q=mushishi&perPage=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []domain.AnimeRecord `json:"results"`
		Count   int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "anilist-1", body.Results[0].ID)
}

func TestDetailsNotFound(t *testing.T) {
	s := newTestServer(&fakeFacade{details: map[string]*domain.AnimeRecord{}})
	rec := doRequest(s, http.MethodGet, "/v1/anime/anilist-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetailsUnknownSourceIsBadRequest(t *testing.T) {
	s := newTestServer(&fakeFacade{
		detailsErr: errors.Wrap(provider.ErrUnknownSource, "nosuch"),
	})
	rec := doRequest(s, http.MethodGet, "/v1/anime/nosuch-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHybridRequiresIDs(t *testing.T) {
	s := newTestServer(&fakeFacade{})
	rec := doRequest(s, http.MethodPost, "/v1/recommendations/hybrid", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferenceRejectsEmptyProfile(t *testing.T) {
	s := newTestServer(&fakeFacade{})
	rec := doRequest(s, http.MethodPost, "/v1/recommendations/preference", `{"profile":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferenceReturnsResults(t *testing.T) {
	s := newTestServer(&fakeFacade{recs: []domain.RecommendationResult{
		{Record: domain.AnimeRecord{ID: "anilist-2"}, Score: 0.9},
	}})

	body := `{"profile":{"favorite_genres":["Action"]},"limit":5}`
	rec := doRequest(s, http.MethodPost, "/v1/recommendations/preference", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anilist-2")
}

func TestClearCache(t *testing.T) {
	f := &fakeFacade{}
	s := newTestServer(f)
	rec := doRequest(s, http.MethodDelete, "/v1/cache", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.cleared)
}
