package provider

import (
	"context"
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
	kitsuName       = "kitsu"
	kitsuBaseURL    = "https://kitsu.io/api/edge"
	kitsuConfidence = 0.75
)

var kitsuHeaders = map[string]string{
	"Accept":       "application/vnd.api+json",
	"Content-Type": "application/vnd.api+json",
}

// Kitsu queries the Kitsu JSON:API. Genres arrive as sideloaded resources
// and are resolved through the relationship identifiers.
type Kitsu struct {
	log     zerolog.Logger
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

func NewKitsu(log zerolog.Logger, cfg domain.ProviderConfig) *Kitsu {
	return &Kitsu{
		log:     log.With().Str("module", "provider").Str("source", kitsuName).Logger(),
		client:  newHTTPClient(),
		limiter: ratelimit.New(cfg.MaxRequests, cfg.Window),
		baseURL: kitsuBaseURL,
	}
}

func (k *Kitsu) Name() string { return kitsuName }

type kitsuResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name           string `json:"name"`
		CanonicalTitle string `json:"canonicalTitle"`
		Titles         struct {
			En   string `json:"en"`
			EnJp string `json:"en_jp"`
			JaJp string `json:"ja_jp"`
		} `json:"titles"`
		Synopsis      string `json:"synopsis"`
		AverageRating string `json:"averageRating"`
		UserCount     int    `json:"userCount"`
		StartDate     string `json:"startDate"`
		EndDate       string `json:"endDate"`
		EpisodeCount  int    `json:"episodeCount"`
		EpisodeLength int    `json:"episodeLength"`
		Status        string `json:"status"`
		Nsfw          bool   `json:"nsfw"`
		PosterImage   struct {
			Small    string `json:"small"`
			Medium   string `json:"medium"`
			Large    string `json:"large"`
			Original string `json:"original"`
		} `json:"posterImage"`
	} `json:"attributes"`
	Relationships struct {
		Genres struct {
			Data []struct {
				ID   string `json:"id"`
				Type string `json:"type"`
			} `json:"data"`
		} `json:"genres"`
	} `json:"relationships"`
}

type kitsuListResponse struct {
	Data     []kitsuResource `json:"data"`
	Included []kitsuResource `json:"included"`
}

func (k *Kitsu) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	if err := k.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	limit := opts.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if opts.Page > 1 {
		offset = (opts.Page - 1) * limit
	}

	params := url.Values{}
	params.Set("filter[text]", query)
	params.Set("page[limit]", strconv.Itoa(limit))
	params.Set("page[offset]", strconv.Itoa(offset))
	params.Set("include", "genres")
	if opts.Year > 0 {
		params.Set("filter[seasonYear]", strconv.Itoa(opts.Year))
	}

	var resp kitsuListResponse
	if err := getJSON(ctx, k.client, k.baseURL+"/anime?"+params.Encode(), kitsuHeaders, &resp); err != nil {
		return nil, errors.Wrap(err, "kitsu search failed")
	}

	genres := genreIndex(resp.Included)
	records := make([]domain.AnimeRecord, 0, len(resp.Data))
	for _, r := range resp.Data {
		records = append(records, k.normalize(r, genres))
	}
	return records, nil
}

func (k *Kitsu) GetDetails(ctx context.Context, localID string) (*domain.AnimeRecord, error) {
	if _, err := strconv.Atoi(localID); err != nil {
		return nil, errors.Wrapf(err, "invalid kitsu id %q", localID)
	}

	if err := k.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp struct {
		Data     *kitsuResource  `json:"data"`
		Included []kitsuResource `json:"included"`
	}
	err := getJSON(ctx, k.client, k.baseURL+"/anime/"+localID+"?include=genres", kitsuHeaders, &resp)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "kitsu details failed")
	}
	if resp.Data == nil {
		return nil, nil
	}

	rec := k.normalize(*resp.Data, genreIndex(resp.Included))
	return &rec, nil
}

func (k *Kitsu) GetRecommendations(ctx context.Context, localID string) ([]domain.AnimeRecord, error) {
	if _, err := strconv.Atoi(localID); err != nil {
		return nil, errors.Wrapf(err, "invalid kitsu id %q", localID)
	}

	if err := k.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("filter[source_id]", localID)
	params.Set("filter[source_type]", "Anime")
	params.Set("include", "destination")
	params.Set("page[limit]", "20")

	var resp kitsuListResponse
	if err := getJSON(ctx, k.client, k.baseURL+"/media-relationships?"+params.Encode(), kitsuHeaders, &resp); err != nil {
		return nil, errors.Wrap(err, "kitsu recommendations failed")
	}

	var records []domain.AnimeRecord
	for _, inc := range resp.Included {
		if inc.Type != "anime" {
			continue
		}
		records = append(records, k.normalize(inc, nil))
	}
	return records, nil
}

// genreIndex maps sideloaded genre resource ids to their names.
func genreIndex(included []kitsuResource) map[string]string {
	idx := make(map[string]string)
	for _, r := range included {
		if r.Type == "genres" && r.Attributes.Name != "" {
			idx[r.ID] = r.Attributes.Name
		}
	}
	return idx
}

func (k *Kitsu) normalize(r kitsuResource, genres map[string]string) domain.AnimeRecord {
	attr := r.Attributes

	score := 0.0
	if attr.AverageRating != "" {
		if v, err := strconv.ParseFloat(attr.AverageRating, 64); err == nil {
			score = v
		}
	}

	var names []string
	for _, g := range r.Relationships.Genres.Data {
		if name, ok := genres[g.ID]; ok {
			names = append(names, name)
		}
	}

	rec := domain.AnimeRecord{
		ID:         domain.ComposeID(kitsuName, r.ID),
		SourceID:   r.ID,
		SourceName: kitsuName,
		Title: domain.Title{
			English: attr.Titles.En,
			Romaji:  attr.Titles.EnJp,
			Native:  attr.Titles.JaJp,
			Common:  attr.CanonicalTitle,
		},
		Description: strings.TrimSpace(attr.Synopsis),
		CoverImage: domain.CoverImage{
			Large:  attr.PosterImage.Large,
			Medium: attr.PosterImage.Medium,
			Small:  attr.PosterImage.Small,
		},
		AverageScore:    score,
		UserCount:       attr.UserCount,
		Episodes:        attr.EpisodeCount,
		DurationMinutes: attr.EpisodeLength,
		Status:          kitsuStatus(attr.Status),
		StartDate:       parseFuzzyDate(attr.StartDate),
		EndDate:         parseFuzzyDate(attr.EndDate),
		Genres:          names,
		IsAdult:         attr.Nsfw,
		Confidence:      kitsuConfidence,
		LastUpdated:     time.Now(),
	}
	rec.Clamp()
	return rec
}

func kitsuStatus(s string) domain.Status {
	switch s {
	case "finished":
		return domain.StatusFinished
	case "current":
		return domain.StatusReleasing
	case "upcoming", "tba", "unreleased":
		return domain.StatusNotYetReleased
	default:
		return ""
	}
}
