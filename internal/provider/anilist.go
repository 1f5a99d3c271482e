package provider

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/ratelimit"
)

const (
	anilistName       = "anilist"
	anilistEndpoint   = "https://graphql.anilist.co"
	anilistConfidence = 0.9
)

const anilistMediaFields = `
id
title { romaji english native }
description(asHtml: false)
coverImage { large medium }
bannerImage
averageScore
popularity
episodes
duration
status
startDate { year month day }
endDate { year month day }
genres
tags { name }
studios { nodes { name isAnimationStudio } }
isAdult
`

// AniList queries the AniList GraphQL API. It is the highest-confidence
// source: scores are community-aggregated and the schema is complete.
type AniList struct {
	log      zerolog.Logger
	client   *http.Client
	limiter  *ratelimit.Limiter
	endpoint string
}

func NewAniList(log zerolog.Logger, cfg domain.ProviderConfig) *AniList {
	return &AniList{
		log:      log.With().Str("module", "provider").Str("source", anilistName).Logger(),
		client:   newHTTPClient(),
		limiter:  ratelimit.New(cfg.MaxRequests, cfg.Window),
		endpoint: anilistEndpoint,
	}
}

func (a *AniList) Name() string { return anilistName }

type anilistMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Description string `json:"description"`
	CoverImage  struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"coverImage"`
	BannerImage  string `json:"bannerImage"`
	AverageScore int    `json:"averageScore"`
	Popularity   int    `json:"popularity"`
	Episodes     int    `json:"episodes"`
	Duration     int    `json:"duration"`
	Status       string `json:"status"`
	StartDate    struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Day   int `json:"day"`
	} `json:"startDate"`
	EndDate struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Day   int `json:"day"`
	} `json:"endDate"`
	Genres []string `json:"genres"`
	Tags   []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Studios struct {
		Nodes []struct {
			Name             string `json:"name"`
			IsAnimationStudio bool  `json:"isAnimationStudio"`
		} `json:"nodes"`
	} `json:"studios"`
	IsAdult bool `json:"isAdult"`
}

type anilistRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (a *AniList) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	gql := `query ($search: String, $page: Int, $perPage: Int, $isAdult: Boolean) {
		Page(page: $page, perPage: $perPage) {
			media(search: $search, type: ANIME, isAdult: $isAdult) {` + anilistMediaFields + `}
		}
	}`

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	variables := map[string]any{
		"search":  query,
		"page":    page,
		"perPage": perPage,
	}
	if !opts.IncludeAdult {
		variables["isAdult"] = false
	}

	var resp struct {
		Data struct {
			Page struct {
				Media []anilistMedia `json:"media"`
			} `json:"Page"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.endpoint, anilistRequest{Query: gql, Variables: variables}, &resp); err != nil {
		return nil, errors.Wrap(err, "anilist search failed")
	}

	records := make([]domain.AnimeRecord, 0, len(resp.Data.Page.Media))
	for _, m := range resp.Data.Page.Media {
		records = append(records, a.normalize(m))
	}
	return records, nil
}

func (a *AniList) GetDetails(ctx context.Context, localID string) (*domain.AnimeRecord, error) {
	id, err := strconv.Atoi(localID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid anilist id %q", localID)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	gql := `query ($id: Int) { Media(id: $id, type: ANIME) {` + anilistMediaFields + `} }`

	var resp struct {
		Data struct {
			Media *anilistMedia `json:"Media"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.endpoint, anilistRequest{Query: gql, Variables: map[string]any{"id": id}}, &resp); err != nil {
		return nil, errors.Wrap(err, "anilist details failed")
	}
	if resp.Data.Media == nil {
		return nil, nil
	}

	rec := a.normalize(*resp.Data.Media)
	return &rec, nil
}

func (a *AniList) GetRecommendations(ctx context.Context, localID string) ([]domain.AnimeRecord, error) {
	id, err := strconv.Atoi(localID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid anilist id %q", localID)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	gql := `query ($id: Int) {
		Media(id: $id, type: ANIME) {
			recommendations(sort: RATING_DESC, perPage: 25) {
				nodes { mediaRecommendation {` + anilistMediaFields + `} }
			}
		}
	}`

	var resp struct {
		Data struct {
			Media struct {
				Recommendations struct {
					Nodes []struct {
						MediaRecommendation *anilistMedia `json:"mediaRecommendation"`
					} `json:"nodes"`
				} `json:"recommendations"`
			} `json:"Media"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.endpoint, anilistRequest{Query: gql, Variables: map[string]any{"id": id}}, &resp); err != nil {
		return nil, errors.Wrap(err, "anilist recommendations failed")
	}

	var records []domain.AnimeRecord
	for _, node := range resp.Data.Media.Recommendations.Nodes {
		if node.MediaRecommendation == nil {
			continue
		}
		records = append(records, a.normalize(*node.MediaRecommendation))
	}
	return records, nil
}

// GetTrending lists the currently trending titles.
func (a *AniList) GetTrending(ctx context.Context) ([]domain.AnimeRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	gql := `query {
		Page(page: 1, perPage: 20) {
			media(type: ANIME, sort: TRENDING_DESC, isAdult: false) {` + anilistMediaFields + `}
		}
	}`

	var resp struct {
		Data struct {
			Page struct {
				Media []anilistMedia `json:"media"`
			} `json:"Page"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.endpoint, anilistRequest{Query: gql}, &resp); err != nil {
		return nil, errors.Wrap(err, "anilist trending failed")
	}

	records := make([]domain.AnimeRecord, 0, len(resp.Data.Page.Media))
	for _, m := range resp.Data.Page.Media {
		records = append(records, a.normalize(m))
	}
	return records, nil
}

func (a *AniList) normalize(m anilistMedia) domain.AnimeRecord {
	localID := strconv.Itoa(m.ID)

	var tags []string
	for _, t := range m.Tags {
		tags = append(tags, t.Name)
	}

	var studios, producers []string
	for _, s := range m.Studios.Nodes {
		if s.IsAnimationStudio {
			studios = append(studios, s.Name)
		} else {
			producers = append(producers, s.Name)
		}
	}

	rec := domain.AnimeRecord{
		ID:         domain.ComposeID(anilistName, localID),
		SourceID:   localID,
		SourceName: anilistName,
		Title: domain.Title{
			English: m.Title.English,
			Romaji:  m.Title.Romaji,
			Native:  m.Title.Native,
		},
		Description: strings.TrimSpace(m.Description),
		CoverImage: domain.CoverImage{
			Large:  m.CoverImage.Large,
			Medium: m.CoverImage.Medium,
		},
		BannerImage:     m.BannerImage,
		AverageScore:    float64(m.AverageScore),
		Popularity:      m.Popularity,
		Episodes:        m.Episodes,
		DurationMinutes: m.Duration,
		Status:          domain.Status(m.Status),
		StartDate:       domain.FuzzyDate{Year: m.StartDate.Year, Month: m.StartDate.Month, Day: m.StartDate.Day},
		EndDate:         domain.FuzzyDate{Year: m.EndDate.Year, Month: m.EndDate.Month, Day: m.EndDate.Day},
		Genres:          m.Genres,
		Tags:            tags,
		Studios:         studios,
		Producers:       producers,
		IsAdult:         m.IsAdult,
		Confidence:      anilistConfidence,
		LastUpdated:     time.Now(),
	}
	rec.Clamp()
	return rec
}
