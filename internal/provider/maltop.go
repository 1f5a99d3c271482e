package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/ratelimit"
)

const (
	maltopName       = "maltop"
	maltopBaseURL    = "https://myanimelist.net"
	maltopConfidence = 0.7
)

var malAnimeURL = regexp.MustCompile(`/anime/(\d+)`)

// MalTop scrapes myanimelist.net directly. It fills the gaps the API
// mirrors leave, most notably the top-airing chart used for trending,
// at the cost of sparser records.
type MalTop struct {
	log     zerolog.Logger
	limiter *ratelimit.Limiter
	baseURL string
}

func NewMalTop(log zerolog.Logger, cfg domain.ProviderConfig) *MalTop {
	return &MalTop{
		log:     log.With().Str("module", "provider").Str("source", maltopName).Logger(),
		limiter: ratelimit.New(cfg.MaxRequests, cfg.Window),
		baseURL: maltopBaseURL,
	}
}

func (m *MalTop) Name() string { return maltopName }

func (m *MalTop) newCollector(ctx context.Context) *colly.Collector {
	cc := colly.NewCollector()
	if u, err := url.Parse(m.baseURL); err == nil && u.Host != "" {
		cc.AllowedDomains = []string{u.Host, u.Hostname()}
	}

	extensions.RandomUserAgent(cc)

	cc.Limit(&colly.LimitRule{
		Delay:      time.Second,
		DomainGlob: "*myanimelist*",
	})

	// Colly requests carry no context, so the caller's deadline is
	// enforced through the collector's request timeout instead.
	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	cc.SetRequestTimeout(timeout)

	cc.OnRequest(func(r *colly.Request) {
		m.log.Debug().Str("url", r.URL.String()).Msg("visiting")
	})

	return cc
}

// visit runs one scrape, short-circuiting when the context is already done.
func (m *MalTop) visit(ctx context.Context, cc *colly.Collector, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return cc.Visit(target)
}

func (m *MalTop) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.AnimeRecord, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	limit := opts.PerPage
	if limit <= 0 {
		limit = 20
	}

	var records []domain.AnimeRecord
	seen := make(map[string]bool)

	cc := m.newCollector(ctx)
	cc.OnHTML("a.hoverinfo_trigger[href]", func(e *colly.HTMLElement) {
		id := parseMalID(e.Attr("href"))
		title := strings.TrimSpace(e.ChildText("strong"))
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
		if id == "" || title == "" || seen[id] || len(records) >= limit {
			return
		}
		seen[id] = true
		records = append(records, m.record(id, title))
	})

	var scrapeErr error
	cc.OnError(func(_ *colly.Response, err error) {
		scrapeErr = err
	})

	if err := m.visit(ctx, cc, m.baseURL+"/anime.php?cat=anime&q="+url.QueryEscape(query)); err != nil {
		return nil, errors.Wrap(err, "maltop search failed")
	}
	if scrapeErr != nil {
		return nil, errors.Wrap(scrapeErr, "maltop search failed")
	}
	return records, nil
}

func (m *MalTop) GetDetails(ctx context.Context, localID string) (*domain.AnimeRecord, error) {
	if _, err := strconv.Atoi(localID); err != nil {
		return nil, errors.Wrapf(err, "invalid maltop id %q", localID)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rec := m.record(localID, "")
	found := false

	cc := m.newCollector(ctx)
	cc.OnHTML("h1.title-name", func(e *colly.HTMLElement) {
		rec.Title.Common = strings.TrimSpace(e.Text)
		found = true
	})
	cc.OnHTML("span[itemprop=genre]", func(e *colly.HTMLElement) {
		rec.Genres = append(rec.Genres, strings.TrimSpace(e.Text))
	})
	cc.OnHTML("div.score-label", func(e *colly.HTMLElement) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(e.Text), 64); err == nil {
			rec.AverageScore = v * 10
		}
	})
	cc.OnHTML("div.spaceit_pad", func(e *colly.HTMLElement) {
		label := strings.TrimSpace(e.ChildText("span.dark_text"))
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(e.Text), label))
		switch label {
		case "Episodes:":
			if n, err := strconv.Atoi(value); err == nil {
				rec.Episodes = n
			}
		case "Studios:":
			for _, s := range strings.Split(value, ",") {
				if s = strings.TrimSpace(s); s != "" && s != "None found" {
					rec.Studios = append(rec.Studios, s)
				}
			}
		}
	})

	var scrapeErr error
	notFound := false
	cc.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode == http.StatusNotFound {
			notFound = true
			return
		}
		scrapeErr = err
	})

	// On a 404 colly both fires OnError and returns the error from Visit;
	// a missing title is an absent record, not a failure.
	err := m.visit(ctx, cc, fmt.Sprintf("%s/anime/%s", m.baseURL, localID))
	if notFound {
		return nil, nil
	}
	if err != nil && scrapeErr == nil {
		scrapeErr = err
	}
	if scrapeErr != nil {
		return nil, errors.Wrap(scrapeErr, "maltop details failed")
	}
	if !found {
		return nil, nil
	}

	rec.Clamp()
	return &rec, nil
}

func (m *MalTop) GetRecommendations(ctx context.Context, localID string) ([]domain.AnimeRecord, error) {
	if _, err := strconv.Atoi(localID); err != nil {
		return nil, errors.Wrapf(err, "invalid maltop id %q", localID)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var records []domain.AnimeRecord
	seen := map[string]bool{localID: true}

	cc := m.newCollector(ctx)
	cc.OnHTML("div.picSurround a[href]", func(e *colly.HTMLElement) {
		id := parseMalID(e.Attr("href"))
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		title := strings.TrimSpace(e.Attr("title"))
		records = append(records, m.record(id, title))
	})

	var scrapeErr error
	cc.OnError(func(_ *colly.Response, err error) {
		scrapeErr = err
	})

	if err := m.visit(ctx, cc, fmt.Sprintf("%s/anime/%s/_/userrecs", m.baseURL, localID)); err != nil {
		return nil, errors.Wrap(err, "maltop recommendations failed")
	}
	if scrapeErr != nil {
		return nil, errors.Wrap(scrapeErr, "maltop recommendations failed")
	}
	return records, nil
}

// GetTrending scrapes the top-airing chart.
func (m *MalTop) GetTrending(ctx context.Context) ([]domain.AnimeRecord, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var records []domain.AnimeRecord
	seen := make(map[string]bool)

	cc := m.newCollector(ctx)
	cc.OnHTML("tr.ranking-list", func(e *colly.HTMLElement) {
		href := e.ChildAttr("h3 a", "href")
		id := parseMalID(href)
		title := strings.TrimSpace(e.ChildText("h3 a"))
		if id == "" || title == "" || seen[id] {
			return
		}
		seen[id] = true

		rec := m.record(id, title)
		rec.Status = domain.StatusReleasing
		if v, err := strconv.ParseFloat(strings.TrimSpace(e.ChildText("span.score-label")), 64); err == nil {
			rec.AverageScore = v * 10
		}
		rec.Clamp()
		records = append(records, rec)
	})

	var scrapeErr error
	cc.OnError(func(_ *colly.Response, err error) {
		scrapeErr = err
	})

	if err := m.visit(ctx, cc, m.baseURL+"/topanime.php?type=airing"); err != nil {
		return nil, errors.Wrap(err, "maltop trending failed")
	}
	if scrapeErr != nil {
		return nil, errors.Wrap(scrapeErr, "maltop trending failed")
	}
	return records, nil
}

func (m *MalTop) record(localID, title string) domain.AnimeRecord {
	return domain.AnimeRecord{
		ID:          domain.ComposeID(maltopName, localID),
		SourceID:    localID,
		SourceName:  maltopName,
		Title:       domain.Title{Common: title},
		Confidence:  maltopConfidence,
		LastUpdated: time.Now(),
	}
}

// parseMalID pulls the numeric id out of an anime page URL.
func parseMalID(href string) string {
	m := malAnimeURL.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
