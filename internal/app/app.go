package app

import (
	"context"
	"time"

	"timeglass/internal/config"
	"timeglass/internal/database"
	"timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/platform"
	"timeglass/internal/repository"
	"timeglass/internal/server"
	"timeglass/internal/services"
)

// App owns the wired component graph: database, repository, collector,
// aggregator and the HTTP API. Construction connects and migrates the
// database; Start and Shutdown bracket the tracker's lifetime.
type App struct {
	cfg        *config.Config
	dbService  database.Service
	repository repository.Repository
	cache      *services.RollupCache
	events     *services.EventService
	collector  *services.Collector
	aggregator *services.Aggregator
	server     *server.Server
	serveAPI   bool
	logger     logging.Logger
}

// Option adjusts construction, mainly for tests and query-only runs
type Option func(*options)

type options struct {
	collect  bool
	serveAPI bool
	api      platform.ActivityAPI
}

// WithoutCollector builds a query-only app: no sampling loop, no
// platform probes. Reports and edits still work.
func WithoutCollector() Option {
	return func(o *options) { o.collect = false }
}

// WithoutAPI runs the collector without exposing the HTTP surface
func WithoutAPI() Option {
	return func(o *options) { o.serveAPI = false }
}

// WithActivityAPI substitutes the platform probe implementation
func WithActivityAPI(api platform.ActivityAPI) Option {
	return func(o *options) { o.api = api }
}

// NewApp builds the component graph from the runtime configuration,
// connecting the database and running migrations.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{collect: true, serveAPI: true}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.NewDefaultLogger()

	dbConfig := database.ConfigForEnvironment(cfg.Environment)
	switch {
	case cfg.DBPath != "":
		dbConfig.Path = cfg.DBPath
	case cfg.Environment == "production":
		path, err := cfg.DatabasePath()
		if err != nil {
			return nil, err
		}
		dbConfig.Path = path
	}

	dbService := database.NewSQLiteService(logger)
	if err := dbService.Connect(context.Background(), dbConfig); err != nil {
		return nil, err
	}
	if err := dbService.Migrate(context.Background()); err != nil {
		dbService.Close()
		return nil, err
	}

	repo := repository.NewSQLiteRepository(dbService, logger)
	cache := services.NewRollupCache()
	events := services.NewEventService(repo, cache, logger)

	a := &App{
		cfg:        cfg,
		dbService:  dbService,
		repository: repo,
		cache:      cache,
		events:     events,
		logger:     logger,
	}

	var status server.TrackerStatus
	var openSource services.OpenEventSource
	if o.collect {
		api := o.api
		if api == nil {
			api = platform.NewActivityAPI()
		}
		sampler := services.NewSampler(api, cfg.IdleThreshold, logger)
		collectorConfig := services.CollectorConfig{
			SampleInterval:   cfg.SampleInterval,
			IdleThreshold:    cfg.IdleThreshold,
			MaxGap:           cfg.MaxGap,
			MaxEventDuration: cfg.MaxEventDuration,
		}
		a.collector = services.NewCollector(collectorConfig, sampler, events, logger)
		status = a.collector
		openSource = a.collector
	}

	a.aggregator = services.NewAggregator(events, repo, openSource, cache, logger)
	a.server = server.NewServer(a.aggregator, events, repo, status, logger)
	a.server.SetInfo(server.Info{
		DatabasePath:   dbConfig.Path,
		SampleInterval: cfg.SampleInterval.String(),
		IdleThreshold:  cfg.IdleThreshold.String(),
	})
	a.serveAPI = o.serveAPI

	return a, nil
}

// Start begins sampling (when a collector is wired) and serves the
// HTTP API until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.collector != nil {
		a.collector.Start()
	}

	if !a.serveAPI {
		<-ctx.Done()
		return a.Shutdown()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Start(a.cfg.ListenAddr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		return a.Shutdown()
	}
}

// Shutdown stops sampling, flushes the open event, drains the HTTP
// server and closes the database.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down")

	if a.collector != nil {
		a.collector.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown failed", "error", err)
	}

	if err := a.dbService.Close(); err != nil {
		return errors.NewRepositoryError("shutdown", err, errors.ClassifyError(err))
	}
	return nil
}

// Aggregator exposes the report queries for in-process callers
func (a *App) Aggregator() *services.Aggregator {
	return a.aggregator
}

// Logger returns the application's structured logger
func (a *App) Logger() logging.Logger {
	return a.logger
}
