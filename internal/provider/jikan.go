package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/ratelimit"
)

const (
	jikanName       = "jikan"
	jikanBaseURL    = "https://api.jikan.moe/v4"
	jikanConfidence = 0.85
)

// Jikan queries the unofficial MyAnimeList REST mirror. Scores come on a
// 0-10 scale and are rescaled to 0-100.
type Jikan struct {
	log     zerolog.Logger
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

func NewJikan(log zerolog.Logger, cfg domain.ProviderConfig) *Jikan {
	return &Jikan{
		log:     log.With().Str("module", "provider").Str("source", jikanName).Logger(),
		client:  newHTTPClient(),
		limiter: ratelimit.New(cfg.MaxRequests, cfg.Window),
		baseURL: jikanBaseURL,
	}
}

func (j *Jikan) Name() string { return jikanName }

type jikanEntity struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

type jikanAnime struct {
	MalID  int `json:"mal_id"`
	Titles []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"titles"`
	Synopsis string `json:"synopsis"`
	Images   struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			SmallImageURL string `json:"small_image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Score    float64 `json:"score"`
	ScoredBy int     `json:"scored_by"`
	Members  int     `json:"members"`
	Episodes int     `json:"episodes"`
	Duration string  `json:"duration"`
	Status   string  `json:"status"`
	Rating   string  `json:"rating"`
	Aired    struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"aired"`
	Genres       []jikanEntity `json:"genres"`
	Themes       []jikanEntity `json:"themes"`
	Demographics []jikanEntity `json:"demographics"`
	Studios      []jikanEntity `json:"studios"`
	Producers    []jikanEntity `json:"producers"`
}

func (j *Jikan) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		params.Set("limit", strconv.Itoa(opts.PerPage))
	}
	if opts.Year > 0 {
		params.Set("start_date", fmt.Sprintf("%d-01-01", opts.Year))
		params.Set("end_date", fmt.Sprintf("%d-12-31", opts.Year))
	}
	if !opts.IncludeAdult {
		params.Set("sfw", "true")
	}

	var resp struct {
		Data []jikanAnime `json:"data"`
	}
	if err := getJSON(ctx, j.client, j.baseURL+"/anime?"+params.Encode(), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "jikan search failed")
	}

	records := make([]domain.AnimeRecord, 0, len(resp.Data))
	for _, a := range resp.Data {
		records = append(records, j.normalize(a))
	}
	return records, nil
}

func (j *Jikan) GetDetails(ctx context.Context, localID string) (*domain.AnimeRecord, error) {
	if _, err := strconv.Atoi(localID); err != nil {
		return nil, errors.Wrapf(err, "invalid jikan id %q", localID)
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp struct {
		Data *jikanAnime `json:"data"`
	}
	err := getJSON(ctx, j.client, j.baseURL+"/anime/"+localID+"/full", nil, &resp)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "jikan details failed")
	}
	if resp.Data == nil {
		return nil, nil
	}

	rec := j.normalize(*resp.Data)
	return &rec, nil
}

func (j *Jikan) GetRecommendations(ctx context.Context, localID string) ([]domain.AnimeRecord, error) {
	if _, err := strconv.Atoi(localID); err != nil {
		return nil, errors.Wrapf(err, "invalid jikan id %q", localID)
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			Entry jikanAnime `json:"entry"`
			Votes int        `json:"votes"`
		} `json:"data"`
	}
	if err := getJSON(ctx, j.client, j.baseURL+"/anime/"+localID+"/recommendations", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "jikan recommendations failed")
	}

	var records []domain.AnimeRecord
	for _, entry := range resp.Data {
		records = append(records, j.normalize(entry.Entry))
	}
	return records, nil
}

func (j *Jikan) normalize(a jikanAnime) domain.AnimeRecord {
	localID := strconv.Itoa(a.MalID)

	title := domain.Title{}
	for _, t := range a.Titles {
		switch t.Type {
		case "Default":
			title.Common = t.Title
		case "English":
			title.English = t.Title
		case "Japanese":
			title.Native = t.Title
		}
	}

	rec := domain.AnimeRecord{
		ID:         domain.ComposeID(jikanName, localID),
		SourceID:   localID,
		SourceName: jikanName,
		Title:      title,
		Description: strings.TrimSpace(a.Synopsis),
		CoverImage: domain.CoverImage{
			Large:  a.Images.JPG.LargeImageURL,
			Medium: a.Images.JPG.ImageURL,
			Small:  a.Images.JPG.SmallImageURL,
		},
		AverageScore:    a.Score * 10,
		UserCount:       a.ScoredBy,
		Popularity:      a.Members,
		Episodes:        a.Episodes,
		DurationMinutes: parseJikanDuration(a.Duration),
		Status:          jikanStatus(a.Status),
		StartDate:       parseFuzzyDate(a.Aired.From),
		EndDate:         parseFuzzyDate(a.Aired.To),
		Genres:          entityNames(a.Genres),
		Themes:          entityNames(a.Themes),
		Demographics:    entityNames(a.Demographics),
		Studios:         entityNames(a.Studios),
		Producers:       entityNames(a.Producers),
		IsAdult:         strings.HasPrefix(a.Rating, "Rx"),
		Confidence:      jikanConfidence,
		LastUpdated:     time.Now(),
	}
	rec.Clamp()
	return rec
}

func entityNames(entities []jikanEntity) []string {
	var names []string
	for _, e := range entities {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

func jikanStatus(s string) domain.Status {
	switch s {
	case "Finished Airing":
		return domain.StatusFinished
	case "Currently Airing":
		return domain.StatusReleasing
	case "Not yet aired":
		return domain.StatusNotYetReleased
	case "On Hiatus":
		return domain.StatusHiatus
	case "Discontinued":
		return domain.StatusCancelled
	default:
		return ""
	}
}

// parseJikanDuration extracts minutes from strings like "24 min per ep" or
// "1 hr 55 min".
func parseJikanDuration(s string) int {
	fields := strings.Fields(s)
	minutes := 0
	for i := 0; i < len(fields)-1; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		switch fields[i+1] {
		case "hr":
			minutes += n * 60
		case "min":
			minutes += n
		}
	}
	return minutes
}
