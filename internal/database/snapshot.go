package database

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
)

// SnapshotRepo persists merged records into the sqlite snapshot catalog.
type SnapshotRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewSnapshotRepo(log zerolog.Logger, db *DB) *SnapshotRepo {
	return &SnapshotRepo{
		log: log.With().Str("repo", "snapshot").Logger(),
		db:  db,
	}
}

// UpsertAnime inserts or replaces one merged record.
func (r *SnapshotRepo) UpsertAnime(ctx context.Context, rec domain.AnimeRecord) error {
	now := time.Now().Format(time.RFC3339)

	queryBuilder := r.db.squirrel.
		Replace("anime").
		Columns(
			"id", "source_id", "source_name",
			"title", "title_english", "title_romaji", "title_native",
			"description", "cover_image",
			"average_score", "popularity", "episodes", "duration_minutes",
			"status", "start_year",
			"genres", "tags", "demographics", "studios",
			"is_adult", "confidence", "exported_at",
		).
		Values(
			rec.ID, rec.SourceID, rec.SourceName,
			rec.Title.Best(), rec.Title.English, rec.Title.Romaji, rec.Title.Native,
			rec.Description, rec.CoverImage.Large,
			rec.AverageScore, rec.Popularity, rec.Episodes, rec.DurationMinutes,
			string(rec.Status), rec.StartYear(),
			jsonList(rec.Genres), jsonList(rec.Tags), jsonList(rec.Demographics), jsonList(rec.Studios),
			rec.IsAdult, rec.Confidence, now,
		)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertAnime")

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

// GetAnime fetches one record by composite id, nil if absent.
func (r *SnapshotRepo) GetAnime(ctx context.Context, id string) (*domain.AnimeRecord, error) {
	queryBuilder := r.db.squirrel.
		Select(
			"id", "source_id", "source_name",
			"title", "title_english", "title_romaji", "title_native",
			"description", "cover_image",
			"average_score", "popularity", "episodes", "duration_minutes",
			"status", "start_year",
			"genres", "tags", "demographics", "studios",
			"is_adult", "confidence",
		).
		From("anime").
		Where("id = ?", id)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanAnime(rows.Scan)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAnime returns every stored record ordered by score descending.
func (r *SnapshotRepo) ListAnime(ctx context.Context) ([]domain.AnimeRecord, error) {
	queryBuilder := r.db.squirrel.
		Select(
			"id", "source_id", "source_name",
			"title", "title_english", "title_romaji", "title_native",
			"description", "cover_image",
			"average_score", "popularity", "episodes", "duration_minutes",
			"status", "start_year",
			"genres", "tags", "demographics", "studios",
			"is_adult", "confidence",
		).
		From("anime").
		OrderBy("average_score DESC")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var records []domain.AnimeRecord
	for rows.Next() {
		rec, err := scanAnime(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return records, nil
}

// RecordExportRun stores one line of export history.
func (r *SnapshotRepo) RecordExportRun(ctx context.Context, queries []string, count int, started, finished time.Time) error {
	queryBuilder := r.db.squirrel.
		Insert("export_runs").
		Columns("queries", "record_count", "started_at", "finished_at").
		Values(strings.Join(queries, ","), count, started.Format(time.RFC3339), finished.Format(time.RFC3339))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

// Count returns the number of stored records.
func (r *SnapshotRepo) Count(ctx context.Context) (int, error) {
	queryBuilder := r.db.squirrel.Select("COUNT(*)").From("anime")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	var count int
	if err := r.db.handler.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error executing query")
	}

	return count, nil
}

func scanAnime(scan func(dest ...any) error) (domain.AnimeRecord, error) {
	var (
		rec                                 domain.AnimeRecord
		status                              string
		startYear                           int
		genres, tags, demographics, studios string
	)

	err := scan(
		&rec.ID, &rec.SourceID, &rec.SourceName,
		&rec.Title.Common, &rec.Title.English, &rec.Title.Romaji, &rec.Title.Native,
		&rec.Description, &rec.CoverImage.Large,
		&rec.AverageScore, &rec.Popularity, &rec.Episodes, &rec.DurationMinutes,
		&status, &startYear,
		&genres, &tags, &demographics, &studios,
		&rec.IsAdult, &rec.Confidence,
	)
	if err != nil {
		return rec, errors.Wrap(err, "error scanning row")
	}

	rec.Status = domain.Status(status)
	rec.StartDate = domain.FuzzyDate{Year: startYear}
	rec.Genres = fromJSONList(genres)
	rec.Tags = fromJSONList(tags)
	rec.Demographics = fromJSONList(demographics)
	rec.Studios = fromJSONList(studios)
	return rec, nil
}

func jsonList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func fromJSONList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil
	}
	return values
}
