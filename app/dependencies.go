package app

import (
	"context"
	"fmt"

	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/repositories"
	"github.com/ApexChef/backlog-chef/repositories/postgres"
	"github.com/ApexChef/backlog-chef/services/budget"
	"github.com/ApexChef/backlog-chef/services/pipeline"
	"github.com/ApexChef/backlog-chef/services/providers"
	"github.com/ApexChef/backlog-chef/services/providers/ollama"
	"github.com/ApexChef/backlog-chef/services/providers/openai"
	"github.com/ApexChef/backlog-chef/services/router"
	"go.uber.org/zap"
)

// Dependencies is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Core services
	Registry *providers.Registry
	Ledger   *budget.Service
	Router   *router.Service
	Pipeline *pipeline.Service

	// Optional run persistence; nil when DATABASE_URL is unset
	Runs repositories.RunRepository
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initProviders(cfg)

	deps.Ledger = budget.NewService(cfg.Routing.Budget, logger)
	deps.Router = router.NewService(cfg.Routing, deps.Registry, deps.Ledger, logger)
	deps.Pipeline = pipeline.NewService(deps.Router, logger)

	if cfg.Database.Enabled() {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	logger.Info("all dependencies initialized",
		zap.Strings("providers", deps.Registry.List()),
		zap.Bool("run_store", deps.Runs != nil))
	return deps, nil
}

func (d *Dependencies) initProviders(cfg *config.Config) {
	d.Registry = providers.NewRegistry()

	// Registration never fails for distinct adapter names; availability is
	// checked per request by the router.
	_ = d.Registry.Register(openai.New(cfg.Providers.OpenAI))
	_ = d.Registry.Register(ollama.New(cfg.Providers.Ollama))
}

func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	runs := postgres.NewRunRepository(db.DB)
	if err := runs.InitSchema(ctx); err != nil {
		return err
	}
	d.Runs = runs

	return nil
}

// Close releases held resources
func (d *Dependencies) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
