package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/logger"
)

func testProviderConfig() domain.ProviderConfig {
	return domain.ProviderConfig{Enabled: true, MaxRequests: 100, Window: time.Second}
}

func TestParseFuzzyDate(t *testing.T) {
	tests := []struct {
		in   string
		want domain.FuzzyDate
	}{
		{"", domain.FuzzyDate{}},
		{"2011", domain.FuzzyDate{Year: 2011}},
		{"2011-04", domain.FuzzyDate{Year: 2011, Month: 4}},
		{"2011-04-06", domain.FuzzyDate{Year: 2011, Month: 4, Day: 6}},
		{"2011-04-06T00:00:00+00:00", domain.FuzzyDate{Year: 2011, Month: 4, Day: 6}},
		{"not a date", domain.FuzzyDate{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFuzzyDate(tt.in), tt.in)
	}
}

func TestParseJikanDuration(t *testing.T) {
	assert.Equal(t, 24, parseJikanDuration("24 min per ep"))
	assert.Equal(t, 115, parseJikanDuration("1 hr 55 min"))
	assert.Equal(t, 0, parseJikanDuration("Unknown"))
}

func TestJikanStatusMapping(t *testing.T) {
	assert.Equal(t, domain.StatusFinished, jikanStatus("Finished Airing"))
	assert.Equal(t, domain.StatusReleasing, jikanStatus("Currently Airing"))
	assert.Equal(t, domain.StatusNotYetReleased, jikanStatus("Not yet aired"))
	assert.Equal(t, domain.Status(""), jikanStatus("Something Else"))
}

func TestKitsuStatusMapping(t *testing.T) {
	assert.Equal(t, domain.StatusFinished, kitsuStatus("finished"))
	assert.Equal(t, domain.StatusReleasing, kitsuStatus("current"))
	assert.Equal(t, domain.StatusNotYetReleased, kitsuStatus("upcoming"))
	assert.Equal(t, domain.StatusNotYetReleased, kitsuStatus("tba"))
	assert.Equal(t, domain.Status(""), kitsuStatus("weird"))
}

func TestParseMalID(t *testing.T) {
	assert.Equal(t, "9253", parseMalID("https://myanimelist.net/anime/9253/Steins_Gate"))
	assert.Equal(t, "9253", parseMalID("/anime/9253"))
	assert.Equal(t, "", parseMalID("/manga/1"))
}

func TestStatusErrorMatching(t *testing.T) {
	err := errors.Wrap(&statusError{code: 404, url: "https://example.test/anime/1"}, "details failed")
	assert.True(t, isStatus(err, http.StatusNotFound))
	assert.False(t, isStatus(err, http.StatusInternalServerError))
	assert.False(t, isStatus(errors.New("plain"), http.StatusNotFound))
}

func TestJikanGetDetailsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	j := NewJikan(logger.New(), testProviderConfig())
	j.baseURL = srv.URL

	rec, err := j.GetDetails(context.Background(), "404404")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestKitsuGetDetailsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	k := NewKitsu(logger.New(), testProviderConfig())
	k.baseURL = srv.URL

	rec, err := k.GetDetails(context.Background(), "404404")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestJikanSearchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "steins", r.URL.Query().Get("q"))
		assert.Equal(t, "true", r.URL.Query().Get("sfw"))

		payload := map[string]any{
			"data": []map[string]any{{
				"mal_id": 9253,
				"titles": []map[string]any{
					{"type": "Default", "title": "Steins;Gate"},
					{"type": "Japanese", "title": "シュタインズ・ゲート"},
				},
				"synopsis": "  A self-proclaimed mad scientist. ",
				"score":    9.07,
				"episodes": 24,
				"duration": "24 min per ep",
				"status":   "Finished Airing",
				"rating":   "PG-13 - Teens 13 or older",
				"aired":    map[string]any{"from": "2011-04-06T00:00:00+00:00"},
				"genres":   []map[string]any{{"mal_id": 24, "name": "Sci-Fi"}},
				"studios":  []map[string]any{{"mal_id": 314, "name": "White Fox"}},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	j := NewJikan(logger.New(), testProviderConfig())
	j.baseURL = srv.URL

	records, err := j.Search(context.Background(), "steins", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "jikan-9253", rec.ID)
	assert.Equal(t, "9253", rec.SourceID)
	assert.Equal(t, "Steins;Gate", rec.Title.Best())
	assert.Equal(t, "A self-proclaimed mad scientist.", rec.Description)
	assert.InDelta(t, 90.7, rec.AverageScore, 1e-9)
	assert.Equal(t, 24, rec.Episodes)
	assert.Equal(t, 24, rec.DurationMinutes)
	assert.Equal(t, domain.StatusFinished, rec.Status)
	assert.Equal(t, domain.FuzzyDate{Year: 2011, Month: 4, Day: 6}, rec.StartDate)
	assert.Equal(t, []string{"Sci-Fi"}, rec.Genres)
	assert.Equal(t, []string{"White Fox"}, rec.Studios)
	assert.False(t, rec.IsAdult)
	assert.InDelta(t, jikanConfidence, rec.Confidence, 1e-9)
}

func TestKitsuSearchResolvesSideloadedGenres(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mushishi", r.URL.Query().Get("filter[text]"))

		payload := map[string]any{
			"data": []map[string]any{{
				"id":   "175",
				"type": "anime",
				"attributes": map[string]any{
					"canonicalTitle": "Mushishi",
					"titles":         map[string]any{"en_jp": "Mushishi", "ja_jp": "蟲師"},
					"averageRating":  "82.5",
					"episodeCount":   26,
					"status":         "finished",
				},
				"relationships": map[string]any{
					"genres": map[string]any{
						"data": []map[string]any{{"id": "7", "type": "genres"}},
					},
				},
			}},
			"included": []map[string]any{{
				"id":         "7",
				"type":       "genres",
				"attributes": map[string]any{"name": "Mystery"},
			}},
		}
		w.Header().Set("Content-Type", "application/vnd.api+json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	k := NewKitsu(logger.New(), testProviderConfig())
	k.baseURL = srv.URL

	records, err := k.Search(context.Background(), "mushishi", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "kitsu-175", rec.ID)
	assert.Equal(t, "Mushishi", rec.Title.Best())
	assert.InDelta(t, 82.5, rec.AverageScore, 1e-9)
	assert.Equal(t, []string{"Mystery"}, rec.Genres)
	assert.Equal(t, domain.StatusFinished, rec.Status)
	assert.InDelta(t, kitsuConfidence, rec.Confidence, 1e-9)
}
