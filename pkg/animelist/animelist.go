// Package animelist parses the XML export a MyAnimeList user can download
// of their own list.
package animelist

import (
	"encoding/xml"
	"io"
	"os"
	"sort"
)

const StatusCompleted = "Completed"

type AnimeList struct {
	XMLName xml.Name `xml:"myanimelist"`
	MyInfo  struct {
		UserName   string `xml:"user_name"`
		TotalAnime int    `xml:"user_total_anime"`
	} `xml:"myinfo"`
	Anime []Entry `xml:"anime"`
}

type Entry struct {
	SeriesID int    `xml:"series_animedb_id"`
	Title    string `xml:"series_title"`
	Type     string `xml:"series_type"`
	Episodes int    `xml:"series_episodes"`
	Score    int    `xml:"my_score"`
	Status   string `xml:"my_status"`
}

func Parse(r io.Reader) (*AnimeList, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	al := &AnimeList{}
	err = xml.Unmarshal(body, al)
	if err != nil {
		return nil, err
	}

	return al, nil
}

func FromFile(path string) (*AnimeList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Favorites returns the completed entries scored at or above minScore,
// best-scored first. A minScore of 0 keeps every completed entry.
func (a *AnimeList) Favorites(minScore int) []Entry {
	var favorites []Entry
	for _, e := range a.Anime {
		if e.Status != StatusCompleted {
			continue
		}
		if minScore > 0 && e.Score < minScore {
			continue
		}
		favorites = append(favorites, e)
	}

	sort.SliceStable(favorites, func(i, j int) bool {
		return favorites[i].Score > favorites[j].Score
	})
	return favorites
}
