package app

import (
	"context"
	"log"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"timedquiz/internal/cache"
	"timedquiz/internal/config"
	"timedquiz/internal/quiz"
	"timedquiz/internal/repository"
)

const pingTimeout = 5 * time.Second

// App opens the backends selected by the configuration and closes them together
type App struct {
	cfg     *config.Config
	closers []func(context.Context) error

	mongoDB *mongo.Database
}

func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// MongoDB connects to the configured database once and reuses the connection
func (a *App) MongoDB(ctx context.Context) (*mongo.Database, error) {
	if a.mongoDB != nil {
		return a.mongoDB, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}
	log.Println("Connected to MongoDB")

	a.closers = append(a.closers, client.Disconnect)
	a.mongoDB = client.Database(a.cfg.MongoDB)
	return a.mongoDB, nil
}

// QuestionRepo returns the question bank selected by QUESTION_SOURCE
func (a *App) QuestionRepo(ctx context.Context) (repository.QuestionRepo, error) {
	switch a.cfg.QuestionSource {
	case config.SourceMongo:
		db, err := a.MongoDB(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoQuestionRepo(db), nil
	default:
		log.Printf("Reading question bank from %s", a.cfg.QuestionDir)
		return repository.NewFileQuestionRepo(a.cfg.QuestionDir), nil
	}
}

// Storage returns the snapshot store selected by STATE_STORE
func (a *App) Storage(ctx context.Context) (quiz.Storage, error) {
	switch a.cfg.StateStore {
	case config.StoreRedis:
		opts, err := redis.ParseURL(a.cfg.RedisURI)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid REDIS_URI %q", a.cfg.RedisURI)
		}
		rdb := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, errors.Wrap(err, "failed to ping Redis")
		}
		log.Println("Connected to Redis")

		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		return cache.NewStateCache(rdb), nil

	case config.StoreSQLite:
		store, err := repository.OpenSQLiteStorage(a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("Storing quiz state in %s", a.cfg.SQLitePath)

		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		return store, nil

	default:
		log.Println("Storing quiz state in memory; attempts will not survive a restart")
		return quiz.NewMemoryStorage(), nil
	}
}

// Close releases every opened backend, most recent first
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.mongoDB = nil
	return errors.Wrap(multierror.Append(nil, errs...).ErrorOrNil(), "failed to close resources")
}
