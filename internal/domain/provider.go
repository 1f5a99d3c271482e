package domain

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Provider is the contract every catalog adapter satisfies. Adapters own
// their provider's rate limit and schema translation; they may return errors
// in isolation, but the aggregator downgrades any failure to an empty
// contribution.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, opts SearchOptions) ([]AnimeRecord, error)
	GetDetails(ctx context.Context, localID string) (*AnimeRecord, error)
	GetRecommendations(ctx context.Context, localID string) ([]AnimeRecord, error)
}

// SearchOptions narrows a catalog search. Every recognized option is
// enumerated here; zero values mean "not set". Adult content is excluded
// unless IncludeAdult is set.
type SearchOptions struct {
	Page         int      `json:"page,omitempty"`
	PerPage      int      `json:"perPage,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Year         int      `json:"year,omitempty"`
	Status       Status   `json:"status,omitempty"`
	IncludeAdult bool     `json:"includeAdult,omitempty"`
}

// Key serializes the options into a canonical cache-key fragment.
// Genre order does not affect the key.
func (o SearchOptions) Key() string {
	genres := make([]string, len(o.Genres))
	for i, g := range o.Genres {
		genres[i] = strings.ToLower(g)
	}
	sort.Strings(genres)

	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(strconv.Itoa(o.Page))
	b.WriteString(";pp=")
	b.WriteString(strconv.Itoa(o.PerPage))
	b.WriteString(";g=")
	b.WriteString(strings.Join(genres, ","))
	b.WriteString(";y=")
	b.WriteString(strconv.Itoa(o.Year))
	b.WriteString(";s=")
	b.WriteString(string(o.Status))
	b.WriteString(";a=")
	b.WriteString(strconv.FormatBool(o.IncludeAdult))
	return b.String()
}

// AdapterError wraps an upstream transport or parse failure, tagged with the
// source it came from. The aggregator catches it at the fan-out boundary and
// never lets it abort an overall call.
type AdapterError struct {
	Source string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.Source, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError tags err with the source name. Returns nil if err is nil.
func NewAdapterError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Source: source, Err: err}
}
