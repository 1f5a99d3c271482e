package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/logger"
)

func TestStoreAndGetRecords(t *testing.T) {
	repo := NewFileRepository(logger.New())
	path := filepath.Join(t.TempDir(), "snapshots", "records.json")

	records := []domain.AnimeRecord{
		{
			ID:           "anilist-1",
			SourceID:     "1",
			SourceName:   "anilist",
			Title:        domain.Title{Common: "Mushishi"},
			AverageScore: 88,
			Genres:       []string{"Mystery", "Slice of Life"},
			Confidence:   0.9,
		},
	}

	require.NoError(t, repo.StoreRecords(context.Background(), path, records))

	got, err := repo.GetRecords(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "anilist-1", got[0].ID)
	assert.Equal(t, []string{"Mystery", "Slice of Life"}, got[0].Genres)
}

func TestGetRecordsMissingFile(t *testing.T) {
	repo := NewFileRepository(logger.New())
	_, err := repo.GetRecords(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestStoreAndGetProfile(t *testing.T) {
	repo := NewFileRepository(logger.New())
	path := filepath.Join(t.TempDir(), "profile.yaml")

	profile := &domain.PreferenceProfile{
		FavoriteGenres:   []string{"Action", "Drama"},
		PreferredStudios: []string{"MAPPA"},
		MinScore:         70,
		MaxEpisodes:      26,
		YearMin:          2010,
	}

	require.NoError(t, repo.StoreProfile(context.Background(), path, profile))

	got, err := repo.GetProfile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, profile, got)
}
