package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedID marks a composite id that does not follow the
// "<source>-<localId>" shape.
var ErrMalformedID = errors.New("malformed composite id")

// Status is the airing status of a title, normalized across sources.
type Status string

const (
	StatusFinished       Status = "FINISHED"
	StatusReleasing      Status = "RELEASING"
	StatusNotYetReleased Status = "NOT_YET_RELEASED"
	StatusCancelled      Status = "CANCELLED"
	StatusHiatus         Status = "HIATUS"
)

// Title holds the known names of a title. At least one field is populated
// on any record an adapter returns.
type Title struct {
	English string `json:"english,omitempty"`
	Romaji  string `json:"romaji,omitempty"`
	Native  string `json:"native,omitempty"`
	Common  string `json:"common,omitempty"`
}

// Best returns the most display-worthy populated title field.
func (t Title) Best() string {
	for _, s := range []string{t.Common, t.English, t.Romaji, t.Native} {
		if s != "" {
			return s
		}
	}
	return ""
}

// IsEmpty reports whether no title field is populated.
func (t Title) IsEmpty() bool {
	return t.Best() == ""
}

// CoverImage holds cover art URLs at the sizes a source provides.
type CoverImage struct {
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
	Small  string `json:"small,omitempty"`
}

// IsEmpty reports whether no image URL is populated.
func (c CoverImage) IsEmpty() bool {
	return c.Large == "" && c.Medium == "" && c.Small == ""
}

// FuzzyDate is a partially known calendar date. A zero Year means the date
// is unknown entirely.
type FuzzyDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// IsZero reports whether the date is unknown.
func (d FuzzyDate) IsZero() bool {
	return d.Year == 0
}

// AnimeRecord is the normalized view of one title from one or more sources.
// Numeric fields use the zero value for "unknown"; no provider reports a
// real score of 0 or an episode count of 0.
type AnimeRecord struct {
	ID         string `json:"id"`
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`

	Title       Title      `json:"title"`
	Description string     `json:"description,omitempty"`
	CoverImage  CoverImage `json:"coverImage"`
	BannerImage string     `json:"bannerImage,omitempty"`

	AverageScore float64 `json:"averageScore,omitempty"` // 0-100
	Popularity   int     `json:"popularity,omitempty"`
	UserCount    int     `json:"userCount,omitempty"`

	Episodes        int       `json:"episodes,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	Status          Status    `json:"status,omitempty"`
	StartDate       FuzzyDate `json:"startDate,omitempty"`
	EndDate         FuzzyDate `json:"endDate,omitempty"`

	Genres       []string `json:"genres,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Demographics []string `json:"demographics,omitempty"`
	Themes       []string `json:"themes,omitempty"`
	Studios      []string `json:"studios,omitempty"`
	Producers    []string `json:"producers,omitempty"`

	IsAdult bool `json:"isAdult"`

	// Confidence is the source-assigned reliability estimate in [0,1],
	// raised when multiple independent sources agree.
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Clamp forces Confidence into [0,1] and AverageScore into [0,100].
// Providers occasionally report out-of-range values; nothing leaves the
// aggregator or the recommendation engine unclamped.
func (r *AnimeRecord) Clamp() {
	if r.Confidence < 0 {
		r.Confidence = 0
	} else if r.Confidence > 1 {
		r.Confidence = 1
	}
	if r.AverageScore < 0 {
		r.AverageScore = 0
	} else if r.AverageScore > 100 {
		r.AverageScore = 100
	}
}

// StartYear returns the release year, or 0 if unknown.
func (r *AnimeRecord) StartYear() int {
	return r.StartDate.Year
}

// ComposeID builds the composite id "<sourceName>-<sourceLocalId>" under
// which a record is addressed across the whole system.
func ComposeID(source, localID string) string {
	return fmt.Sprintf("%s-%s", source, localID)
}

// SplitID splits a composite id into source name and source-local id.
func SplitID(id string) (source, localID string, err error) {
	source, localID, ok := strings.Cut(id, "-")
	if !ok || source == "" || localID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return source, localID, nil
}
