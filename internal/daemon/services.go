package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/adaptive"
	"github.com/felixgeelhaar/waypoint/internal/config"
	"github.com/felixgeelhaar/waypoint/internal/curriculum"
	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/evaluation"
	"github.com/felixgeelhaar/waypoint/internal/progress"
	"github.com/felixgeelhaar/waypoint/internal/queue"
	"github.com/felixgeelhaar/waypoint/internal/sandbox"
	"github.com/felixgeelhaar/waypoint/internal/storage"
	"github.com/felixgeelhaar/waypoint/internal/storage/local"
	"github.com/felixgeelhaar/waypoint/internal/storage/memory"
	"github.com/felixgeelhaar/waypoint/internal/storage/postgres"
	"github.com/felixgeelhaar/waypoint/internal/storage/redis"
	"github.com/felixgeelhaar/waypoint/internal/storage/sqlite"
)

// Services bundles everything the HTTP and MCP surfaces call into
type Services struct {
	Curriculum *curriculum.Model
	Catalog    *curriculum.Catalog
	Manager    *progress.Manager
	Evaluator  *evaluation.Evaluator
	Generator  *adaptive.Generator
	History    evaluation.History
	Events     *domain.EventDispatcher
	// Jobs is nil when asynchronous evaluation is disabled
	Jobs AsyncEvaluator

	closers []func(context.Context) error
}

// NewServices wires in-process services over backend. It is used by tests
// and by OpenServices once the backends are connected.
func NewServices(model *curriculum.Model, catalog *curriculum.Catalog, backend storage.Storage, strategy evaluation.Strategy, history evaluation.History, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = evaluation.NewMemoryHistory()
	}

	events := domain.NewEventDispatcher()
	engine := progress.NewEngine(model)
	store := progress.NewStore(backend, engine, logger)

	return &Services{
		Curriculum: model,
		Catalog:    catalog,
		Manager:    progress.NewManager(engine, store, progress.WithEvents(events), progress.WithLogger(logger)),
		Evaluator: evaluation.NewEvaluator(strategy,
			evaluation.WithHistory(history),
			evaluation.WithLogger(logger),
		),
		Generator: adaptive.NewGenerator(catalog),
		History:   history,
		Events:    events,
	}
}

// OpenServices connects the configured storage backend, evaluation strategy
// and optional RabbitMQ wiring. dir is the waypoint data directory.
func OpenServices(ctx context.Context, cfg *config.LocalConfig, dir string, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	model, err := curriculum.Load(cfg.Curriculum.Path)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}
	catalog, err := curriculum.LoadCatalog(cfg.Curriculum.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load exercise catalog: %w", err)
	}

	var closers []func(context.Context) error
	fail := func(err error) (*Services, error) {
		closeAll(context.Background(), closers, logger)
		return nil, err
	}

	backend, history, closeStorage, err := openStorage(ctx, cfg, dir, logger)
	if err != nil {
		return fail(err)
	}
	if closeStorage != nil {
		closers = append(closers, closeStorage)
	}

	strategy, closeStrategy, err := openStrategy(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	if closeStrategy != nil {
		closers = append(closers, closeStrategy)
	}

	svc := NewServices(model, catalog, backend, strategy, history, logger)
	svc.Evaluator = evaluation.NewEvaluator(strategy,
		evaluation.WithTimeout(cfg.EvaluationTimeout()),
		evaluation.WithHistory(svc.History),
		evaluation.WithLogger(logger),
	)

	if cfg.Events.Enabled {
		closeQueue, err := svc.attachQueue(ctx, cfg, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeQueue)
	}

	svc.closers = closers
	logger.Info("services ready",
		"storage", cfg.Storage.Backend,
		"strategy", strategy.Name(),
		"events", cfg.Events.Enabled,
		"curriculum", model.Name(),
	)
	return svc, nil
}

// openStorage returns the profile backend and, when the backend has a
// database, an evaluation history stored alongside it.
func openStorage(ctx context.Context, cfg *config.LocalConfig, dir string, logger *slog.Logger) (storage.Storage, evaluation.History, func(context.Context) error, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil, nil

	case config.BackendLocal:
		store, err := local.NewStore(cfg.ProfilesPath(dir))
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, nil, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath(dir))
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx, logger); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		closeDB := func(context.Context) error { return db.Close() }
		return sqlite.NewDocumentStore(db), sqlite.NewEvaluationStore(db), closeDB, nil

	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		return store, nil, func(context.Context) error { store.Close(); return nil }, nil

	case config.BackendRedis:
		r := cfg.Storage.Redis
		store, err := redis.Open(ctx, redis.Config{
			Addr:      r.Addr,
			Password:  r.Password,
			DB:        r.DB,
			KeyPrefix: r.KeyPrefix,
			TTL:       cfg.RedisTTL(),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func(context.Context) error { return store.Close() }, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// openStrategy builds the evaluation strategy. The sandbox strategy falls
// back to the heuristic one when Docker is unavailable.
func openStrategy(ctx context.Context, cfg *config.LocalConfig, logger *slog.Logger) (evaluation.Strategy, func(context.Context) error, error) {
	heuristic := evaluation.NewHeuristicStrategy()
	if cfg.Evaluation.Strategy != config.StrategySandbox {
		return heuristic, nil, nil
	}

	backend, err := sandbox.NewDockerBackend(ctx)
	if err != nil {
		logger.Warn("docker not available, using heuristic evaluation", "error", err)
		return heuristic, nil, nil
	}
	manager := sandbox.NewManager(backend, cfg.Evaluation.Sandbox, logger)
	var strategy evaluation.Strategy = evaluation.NewSandboxStrategy(manager, evaluation.WithUntested(heuristic))

	if cfg.Evaluation.Resilience.Enabled {
		rc := evaluation.DefaultResilientConfig()
		if cfg.Evaluation.Resilience.MaxConcurrent > 0 {
			rc.MaxConcurrent = cfg.Evaluation.Resilience.MaxConcurrent
		}
		rc.Logger = logger
		strategy = evaluation.NewResilientStrategy(strategy, heuristic, rc)
	}
	return strategy, manager.Close, nil
}

// attachQueue forwards progress events to RabbitMQ and starts the
// evaluation worker and result consumer.
func (s *Services) attachQueue(ctx context.Context, cfg *config.LocalConfig, logger *slog.Logger) (func(context.Context) error, error) {
	conn, err := queue.NewConnection(cfg.Events.AMQPURL, logger)
	if err != nil {
		return nil, err
	}

	queue.NewEventForwarder(conn, logger).Attach(s.Events)

	handler := func(ctx context.Context, job *queue.EvaluationJob) (*domain.EvaluationResult, error) {
		return s.Evaluator.Evaluate(ctx, job.Submission, job.Spec), nil
	}
	consumer := queue.NewConsumer(conn, handler, queue.ConsumerConfig{Workers: cfg.Events.Workers}, logger)
	// Workers outlive the request context that opened the services
	workerCtx := context.WithoutCancel(ctx)
	if err := consumer.Start(workerCtx); err != nil {
		conn.Close()
		return nil, err
	}

	results := queue.NewResultConsumer(conn, logger)
	if err := results.Start(workerCtx); err != nil {
		consumer.Stop()
		conn.Close()
		return nil, err
	}

	s.Jobs = NewQueueJobs(queue.NewProducer(conn, logger), results, time.Now)

	return func(context.Context) error {
		consumer.Stop()
		results.Stop()
		return conn.Close()
	}, nil
}

// Close releases backends in reverse order of opening
func (s *Services) Close(ctx context.Context) error {
	return closeAll(ctx, s.closers, slog.Default())
}

func closeAll(ctx context.Context, closers []func(context.Context) error, logger *slog.Logger) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
