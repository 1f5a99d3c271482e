package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/aggregator"
	"github.com/varoOP/niterudb/internal/cache"
	"github.com/varoOP/niterudb/internal/config"
	"github.com/varoOP/niterudb/internal/database"
	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/logger"
	"github.com/varoOP/niterudb/internal/notification"
	"github.com/varoOP/niterudb/internal/provider"
	"github.com/varoOP/niterudb/internal/recommend"
	"github.com/varoOP/niterudb/internal/repository"
	"github.com/varoOP/niterudb/internal/server"
	"github.com/varoOP/niterudb/internal/service"
)

// App holds the fully wired dependency graph.
type App struct {
	log      zerolog.Logger
	config   *domain.Config
	cache    *cache.Cache
	registry *provider.Registry
	service  service.Service
	fileRepo *repository.FileRepository
	notifier domain.NotificationService
}

// NewApp loads configuration and wires every component.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	registry := provider.NewRegistry(buildProviders(log, cfg)...)
	c := cache.New(cfg.Cache, log)

	agg := aggregator.NewService(log, registry, aggregator.NewMerger(cfg.SourceWeight), cfg.Aggregator)
	engine := recommend.NewService(log, cfg.Weights)
	svc := service.NewService(log, c, agg, engine)

	return &App{
		log:      log,
		config:   cfg,
		cache:    c,
		registry: registry,
		service:  svc,
		fileRepo: repository.NewFileRepository(log),
		notifier: notification.NewService(log, cfg.DiscordWebhookURL),
	}, nil
}

// buildProviders constructs an adapter for every enabled source, in a fixed
// order so registry iteration is deterministic.
func buildProviders(log zerolog.Logger, cfg *domain.Config) []domain.Provider {
	var providers []domain.Provider
	for _, name := range []string{"anilist", "jikan", "kitsu", "maltop"} {
		pc, ok := cfg.Providers[name]
		if !ok || !pc.Enabled {
			log.Debug().Str("source", name).Msg("provider disabled")
			continue
		}
		switch name {
		case "anilist":
			providers = append(providers, provider.NewAniList(log, pc))
		case "jikan":
			providers = append(providers, provider.NewJikan(log, pc))
		case "kitsu":
			providers = append(providers, provider.NewKitsu(log, pc))
		case "maltop":
			providers = append(providers, provider.NewMalTop(log, pc))
		}
	}
	return providers
}

func (a *App) Log() zerolog.Logger { return a.log }

func (a *App) Config() *domain.Config { return a.config }

func (a *App) Service() service.Service { return a.service }

func (a *App) FileRepo() *repository.FileRepository { return a.fileRepo }

// NewServer builds the HTTP facade over the wired service.
func (a *App) NewServer() *server.Server {
	return server.NewServer(a.log, a.service, a.config.Server)
}

// Export runs the given search queries, merges the results, and writes them
// into the sqlite snapshot catalog under dir. When jsonPath is non-empty the
// same records are also written as a JSON snapshot. The notifier reports the
// outcome either way.
func (a *App) Export(ctx context.Context, queries []string, dir, jsonPath string) (err error) {
	started := time.Now()

	defer func() {
		if err != nil {
			if notifyErr := a.notifier.SendError(ctx, err); notifyErr != nil {
				a.log.Warn().Err(notifyErr).Msg("failed to send error notification")
			}
		}
	}()

	db, err := database.NewDB(dir, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	repo := database.NewSnapshotRepo(a.log, db)

	var exported []domain.AnimeRecord
	seen := make(map[string]bool)
	confSum := 0.0

	for _, query := range queries {
		records, searchErr := a.service.SearchAnime(ctx, query, domain.SearchOptions{})
		if searchErr != nil {
			return fmt.Errorf("search %q failed: %w", query, searchErr)
		}
		for _, rec := range records {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true

			if upsertErr := repo.UpsertAnime(ctx, rec); upsertErr != nil {
				return fmt.Errorf("failed to store %s: %w", rec.ID, upsertErr)
			}
			exported = append(exported, rec)
			confSum += rec.Confidence
		}
		a.log.Info().Str("query", query).Int("total", len(exported)).Msg("query exported")
	}

	if jsonPath != "" {
		if storeErr := a.fileRepo.StoreRecords(ctx, jsonPath, exported); storeErr != nil {
			return fmt.Errorf("failed to write json snapshot: %w", storeErr)
		}
	}

	finished := time.Now()
	if runErr := repo.RecordExportRun(ctx, queries, len(exported), started, finished); runErr != nil {
		a.log.Warn().Err(runErr).Msg("failed to record export run")
	}

	stats := domain.ExportStats{
		Queries:      queries,
		RecordCount:  len(exported),
		SourcesUsed:  a.registry.Names(),
		Duration:     finished.Sub(started),
		SnapshotPath: jsonPath,
	}
	if len(exported) > 0 {
		stats.AverageConf = confSum / float64(len(exported))
	}

	if notifyErr := a.notifier.SendSuccess(ctx, stats); notifyErr != nil {
		a.log.Warn().Err(notifyErr).Msg("failed to send success notification")
	}

	a.log.Info().Int("records", stats.RecordCount).Dur("duration", stats.Duration).Msg("export complete")
	return nil
}
