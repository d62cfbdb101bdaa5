package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"career-curve/internal/interview"
	"career-curve/internal/llm"
	"career-curve/internal/llm/openai"
	"career-curve/internal/ranking"
	"career-curve/internal/shared/config"
	"career-curve/internal/shared/server"
	"career-curve/internal/shared/storage/db"
	"career-curve/internal/shared/storage/object"
	localstore "career-curve/internal/shared/storage/object/local"
	s3store "career-curve/internal/shared/storage/object/s3"
	"career-curve/internal/shared/telemetry"
	"career-curve/internal/submissions"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Ledger      ranking.Ledger
	Engine      *ranking.Engine
	LLM         llm.Client
	Submissions *submissions.Service
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ledger, sqlDB, err := buildLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	engine := ranking.NewEngine(ledger)
	if cfg.RankTimeout > 0 {
		engine.Timeout = cfg.RankTimeout
	}

	svc := &submissions.Service{
		Store:          store,
		LLM:            llmClient,
		Ranker:         engine,
		PromptVersion:  cfg.PromptVersion,
		MaxResumeChars: cfg.MaxResumeChars,
		MaxJDChars:     cfg.MaxJDChars,
	}

	// A nil *ChatProxy must not reach the handler as a non-nil interface.
	var forwarder interview.Forwarder
	if proxy := openai.NewChatProxy(cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.LLMTimeout); proxy != nil {
		forwarder = proxy
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Store:       store,
		Ledger:      ledger,
		Engine:      engine,
		LLM:         llmClient,
		Submissions: svc,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		DB:                sqlDB,
		SubmissionHandler: submissions.NewHandler(svc, cfg.MaxUploadBytes),
		RankingHandler:    ranking.NewHandler(engine),
		InterviewHandler:  interview.NewHandler(forwarder),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"ledger":       cfg.LedgerBackend,
		"llm_provider": cfg.LLMProvider,
		"chat_enabled": forwarder != nil,
	})
	return app, nil
}

// Close releases the database pool when one was opened.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLedger(ctx context.Context, cfg config.Config) (ranking.Ledger, *sql.DB, error) {
	switch cfg.LedgerBackend {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, nil, fmt.Errorf("connect ledger database: %w", err)
		}
		if cfg.AutoMigrate {
			if err := db.RunMigrations(ctx, sqlDB); err != nil {
				sqlDB.Close()
				return nil, nil, fmt.Errorf("migrate ledger database: %w", err)
			}
		}
		return &ranking.PGLedger{DB: sqlDB}, sqlDB, nil
	case "file":
		return ranking.NewFileLedger(cfg.LedgerFile), nil, nil
	default:
		if !cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_ledger", map[string]any{
				"env": cfg.Env,
			})
		}
		return ranking.NewMemoryLedger(), nil, nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && cfg.IsDevLike() {
		telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{
			"reason": "OPENAI_API_KEY empty",
		})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(openai.Options{
		APIKey:              cfg.OpenAIAPIKey,
		Model:               cfg.LLMModel,
		BaseURL:             cfg.LLMBaseURL,
		Timeout:             cfg.LLMTimeout,
		NoTemperatureModels: cfg.NoTemperatureModels(),
	})
}
