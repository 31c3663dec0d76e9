package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/assistant"
	"github.com/cloo-solutions/taskpilot/internal/config"
	"github.com/cloo-solutions/taskpilot/internal/database"
	"github.com/cloo-solutions/taskpilot/internal/logging"
	"github.com/cloo-solutions/taskpilot/internal/memstore"
	"github.com/cloo-solutions/taskpilot/internal/openai"
	"github.com/cloo-solutions/taskpilot/internal/repository"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"github.com/cloo-solutions/taskpilot/internal/storage"
)

// entityStore is what the assistant reads: entities plus user scope resolution
type entityStore interface {
	retrieval.Store
	retrieval.ScopeLoader
}

// runtime holds the collaborators shared by the daemon commands
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger

	store  entityStore
	pool   *pgxpool.Pool
	repo   *repository.Store
	bodies *storage.S3Client
	openai *openai.Client
}

// openRuntime loads configuration and opens the entity store. A non-empty
// fixture path selects the in-memory store and skips PostgreSQL.
func openRuntime(ctx context.Context, fixture string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}

	if fixture != "" {
		store, err := memstore.Load(fixture)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixture: %w", err)
		}
		rt.store = store
		logger.Debug("using fixture store", zap.String("path", fixture))
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		rt.repo = repository.NewStore(pool)
		rt.store = rt.repo
	}

	if cfg.HasS3() {
		bodies, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		rt.bodies = bodies
	}

	if cfg.HasOpenAI() {
		rt.openai = openai.NewClientWithConfig(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			ChatModel: cfg.OpenAIChatModel,
		})
	}

	return rt, nil
}

// Close releases the database pool and flushes the logger
func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
	_ = rt.logger.Sync()
}

// service wires retrievers, the assembler and the optional gateway
func (rt *runtime) service() *assistant.Service {
	deps := retrieval.Deps{
		Store:  rt.store,
		Logger: rt.logger,
		Config: retrieval.Config{
			MaxChainDepth:         rt.cfg.MaxChainDepth,
			FuzzyThreshold:        rt.cfg.FuzzyThreshold,
			MeetingFuzzyThreshold: rt.cfg.MeetingFuzzyThreshold,
		},
	}
	if rt.bodies != nil {
		deps.Bodies = rt.bodies
	}
	if rt.repo != nil && rt.openai != nil {
		deps.Docs = retrieval.NewSemanticSearcher(rt.openai, rt.repo)
	}

	assembler := assistant.NewAssembler(retrieval.NewSet(deps).Registry(),
		assistant.WithLogger(rt.logger),
		assistant.WithSizer(assistant.NewSizer(rt.cfg.BudgetUnit, rt.logger)),
		assistant.WithBudget(rt.cfg.ContextBudget),
		assistant.WithParallel(rt.cfg.ParallelRetrieval),
	)

	svcDeps := assistant.ServiceDeps{
		Assembler:     assembler,
		Store:         rt.store,
		Scopes:        rt.store,
		Logger:        rt.logger,
		MaxChainDepth: rt.cfg.MaxChainDepth,
	}
	if rt.openai != nil {
		svcDeps.Gateway = rt.openai
	}
	return assistant.NewService(svcDeps)
}

func addFixtureFlag(cmd *cobra.Command) {
	cmd.Flags().String("fixture", "", "Read entities from a YAML fixture instead of PostgreSQL")
}
