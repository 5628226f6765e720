package cli

import (
	"context"
	"database/sql"
	"time"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/config"
	"assoc-quiz-service/internal/infra/memory"
	"assoc-quiz-service/internal/infra/postgres"
	infraredis "assoc-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// backend bundles the use cases wired to the configured stores.
type backend struct {
	importer   *app.Importer
	dictionary *app.DictionaryService
	lock       app.ImportLock
	closers    []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// newBackend uses Postgres and Redis when configured and in-memory stores otherwise.
func newBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	b := &backend{}

	var (
		stimuli   app.StimulusRepository
		quizzes   app.QuizRepository
		people    app.PersonRepository
		reactions app.ReactionRepository
		finder    app.ReactionFinder
		words     app.StimulusFinder
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		b.closers = append(b.closers, func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		stimuli = postgres.NewStimulusRepository(db)
		quizzes = postgres.NewQuizRepository(db)
		people = postgres.NewPersonRepository(db)
		reactions = postgres.NewReactionRepository(db)
		pgFinder := postgres.NewReactionFinder(pool)
		finder, words = pgFinder, pgFinder
	} else {
		logger.Warn("postgres not configured, using in-memory store")
		store := memory.NewStore()
		stimuli = store.Stimuli()
		quizzes = store.Quizzes()
		people = store.People()
		reactions = store.Reactions()
		finder, words = store.Reactions(), store.Stimuli()
	}

	cacheTTL := config.TTLDuration(cfg.Dictionary.CacheTTL, 10*time.Minute)
	lockTTL := config.TTLDuration(cfg.Import.LockTTL, 15*time.Minute)
	var (
		source      app.FrequencySource = app.NewReactionFrequencies(finder)
		invalidator app.FrequencyInvalidator
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		cache := infraredis.NewFrequencyCache(client, source, cacheTTL, logger)
		source, invalidator = cache, cache
		b.lock = infraredis.NewImportLock(client, lockTTL)
	} else {
		cache := memory.NewFrequencyCache(source, cacheTTL)
		source, invalidator = cache, cache
		b.lock = memory.NewImportLock()
	}

	b.importer = app.NewImporter(stimuli, quizzes, people, reactions, logger)
	b.importer.InvalidateOnPersist(invalidator)
	b.dictionary = app.NewDictionaryService(words, source)
	return b, nil
}
