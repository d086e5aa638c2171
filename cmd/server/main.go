package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/liamcoop/ilrvalidation/catalogs"
	"github.com/liamcoop/ilrvalidation/config"
	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/metrics"
	"github.com/liamcoop/ilrvalidation/pipeline"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/worker"
)

// Dependencies are the stores and sources a server is built over
type Dependencies struct {
	DB      *sql.DB
	Lookups *lookup.Provider
	Sources external.Sources
	Store   rules.ExpressionStore
	Metrics *metrics.Metrics
}

type Server struct {
	cfg      *config.Config
	db       *sql.DB
	lookups  *lookup.Provider
	store    rules.ExpressionStore
	compiler *rules.ExpressionCompiler
	catalogs *catalogs.Manager
	local    *worker.LocalWorker
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	router   *chi.Mux
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Lookups == nil {
		deps.Lookups = lookup.NewInternalProvider()
	}
	if err := deps.Lookups.Warm(); err != nil {
		return nil, fmt.Errorf("failed to load lookups: %w", err)
	}
	if deps.Store == nil {
		deps.Store = rules.NewInMemoryExpressionStore()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}

	compiler, err := rules.NewExpressionCompiler(deps.Lookups)
	if err != nil {
		return nil, err
	}

	manager, err := catalogs.NewManager(deps.Store, deps.Lookups, logger.Logger)
	if err != nil {
		return nil, err
	}
	versions := cfg.CatalogVersions()
	logger.Logger.Info("loading catalog versions", "versions", versions)
	if err := manager.Load(versions...); err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	severities, err := cfg.SeverityMap()
	if err != nil {
		return nil, err
	}
	local, err := worker.NewLocalWorker(manager, cfg.RulesEngineConfig(),
		worker.WithSeverities(severities),
		worker.WithObserver(deps.Metrics),
		worker.WithLogger(logger.Logger),
	)
	if err != nil {
		return nil, err
	}

	var opts []pipeline.Option
	if len(cfg.Dispatch.WorkerURLs) > 0 {
		workers := make([]worker.Worker, len(cfg.Dispatch.WorkerURLs))
		for i, u := range cfg.Dispatch.WorkerURLs {
			workers[i] = worker.NewHTTPWorker(u, cfg.Dispatch.WorkerTimeout)
		}
		dispatcher, err := worker.NewDispatcher(workers, worker.DispatchConfig{
			ChunkSize:   cfg.Dispatch.ChunkSize,
			MaxInFlight: cfg.Dispatch.MaxInFlight,
		}, logger.Logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithDispatcher(dispatcher))
		logger.Logger.Info("dispatching to remote workers", "workers", len(workers))
	}

	population := external.NewPopulationService(deps.Sources, logger.Logger, deps.Metrics)
	p, err := pipeline.New(deps.Lookups, population, local, opts...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		db:       deps.DB,
		lookups:  deps.Lookups,
		store:    deps.Store,
		compiler: compiler,
		catalogs: manager,
		local:    local,
		pipeline: p,
		metrics:  deps.Metrics,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Engine.RunTimeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Validation
	r.Post("/api/v1/validate", s.handleValidate)
	r.Post(worker.ValidatePath, s.handleWorkerValidate)

	// Catalog management
	r.Route("/api/v1/catalogs", func(r chi.Router) {
		r.Get("/", s.handleListCatalogs)

		r.Route("/{version}", func(r chi.Router) {
			r.Post("/reload", s.handleReloadCatalog)

			r.Post("/rules", s.handleCreateRule)
			r.Get("/rules", s.handleListRules)
			r.Get("/rules/{ruleId}", s.handleGetRule)
			r.Put("/rules/{ruleId}", s.handleUpdateRule)
			r.Delete("/rules/{ruleId}", s.handleDeleteRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// openDependencies connects the reference data and rule stores named by cfg.
// PostgreSQL takes precedence over a reference data file.
func openDependencies(cfg *config.Config) (Dependencies, func(), error) {
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return Dependencies{}, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return Dependencies{}, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return Dependencies{
			DB:      db,
			Sources: external.NewPostgresStore(db).Sources(),
			Store:   rules.NewPostgresExpressionStore(db),
		}, func() { db.Close() }, nil
	}

	if cfg.Reference.FilePath != "" {
		sources, err := external.FileSources(cfg.Reference.FilePath)
		if err != nil {
			return Dependencies{}, nil, err
		}
		return Dependencies{Sources: sources}, func() {}, nil
	}

	return Dependencies{}, nil, errors.New("no reference data configured: set database.url or reference.file_path")
}

func main() {
	configPath := flag.String("config", os.Getenv("ILRV_CONFIG"), "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	deps, cleanup, err := openDependencies(cfg)
	if err != nil {
		logger.Fatal("failed to open dependencies", "error", err)
	}
	defer cleanup()

	server, err := NewServer(cfg, deps)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown handling
	go func() {
		logger.Logger.Info("server starting", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Logger.Error("server shutdown error", "error", err)
	}

	logger.Logger.Info("server stopped")
	_ = logger.Shutdown(ctx)
}
