package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/varoOP/niterudb/internal/domain"
)

// FileRepository stores merged record snapshots as JSON and preference
// profiles as YAML.
type FileRepository struct {
	log zerolog.Logger
}

func NewFileRepository(log zerolog.Logger) *FileRepository {
	return &FileRepository{
		log: log.With().Str("module", "repository").Logger(),
	}
}

// GetRecords retrieves a record snapshot from a JSON file.
func (r *FileRepository) GetRecords(ctx context.Context, path string) ([]domain.AnimeRecord, error) {
	records := []domain.AnimeRecord{}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	err = json.Unmarshal(body, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal json from %s: %w", path, err)
	}

	return records, nil
}

// StoreRecords saves a record snapshot to a JSON file.
func (r *FileRepository) StoreRecords(ctx context.Context, path string, records []domain.AnimeRecord) error {
	j, err := json.MarshalIndent(records, "", "   ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	_, err = f.Write(j)
	if err != nil {
		return fmt.Errorf("failed to write to file %s: %w", path, err)
	}

	r.log.Debug().Str("path", path).Int("count", len(records)).Msg("stored record snapshot")
	return nil
}

// GetProfile retrieves a preference profile from a YAML file.
func (r *FileRepository) GetProfile(ctx context.Context, path string) (*domain.PreferenceProfile, error) {
	p := &domain.PreferenceProfile{}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	err = yaml.Unmarshal(b, p)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	return p, nil
}

// StoreProfile saves a preference profile to a YAML file.
func (r *FileRepository) StoreProfile(ctx context.Context, path string, profile *domain.PreferenceProfile) error {
	b, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(b)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.log.Debug().Str("path", path).Msg("stored preference profile")
	return nil
}
