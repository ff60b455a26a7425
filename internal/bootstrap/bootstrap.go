package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/defence-assistant/internal/config"
	"github.com/kirillkom/defence-assistant/internal/core/analysis"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
	"github.com/kirillkom/defence-assistant/internal/core/usecase"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/extractor/document"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/knowledge"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     *nats.Queue
	Analyzer  ports.DocumentAnalyzer
	History   ports.DocumentHistory
	Chat      ports.LegalChat
	Referrals ports.ReferralService

	closeFn func()
}

type options struct {
	breakerObserver  resilience.StateObserver
	analysisObserver ports.AnalysisObserver
	chatObserver     ports.ChatObserver
}

type Option func(*options)

// WithBreakerObserver reports circuit breaker transitions of every outbound call.
func WithBreakerObserver(observer resilience.StateObserver) Option {
	return func(o *options) {
		o.breakerObserver = observer
	}
}

func WithAnalysisObserver(observer ports.AnalysisObserver) Option {
	return func(o *options) {
		o.analysisObserver = observer
	}
}

func WithChatObserver(observer ports.ChatObserver) Option {
	return func(o *options) {
		o.chatObserver = observer
	}
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := NewExecutor(cfg, logger, o.breakerObserver)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject,
		nats.WithExecutor(executor),
		nats.WithLogger(logger),
		nats.WithReconnect(time.Duration(cfg.NATSReconnectWaitMS)*time.Millisecond, cfg.NATSMaxReconnects),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	completer, err := NewCompleter(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init llm provider: %w", err)
	}

	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	users := postgres.NewUserRepository(db)
	analyses := postgres.NewAnalysisRepository(db)
	chats := postgres.NewChatRepository(db)
	referrals := postgres.NewReferralRepository(db)

	pipeline := NewPipeline(cfg, completer, logger, o.breakerObserver)
	advisor := llm.NewGuidanceClient(
		llm.NewResilientCompleter(completer, executor, "llm.legal_guidance"),
		cfg.ChatTemperature,
		cfg.ChatMaxTokens,
	)

	analyzeOpts := []usecase.AnalyzeOption{usecase.WithAnalyzeLogger(logger)}
	if o.analysisObserver != nil {
		analyzeOpts = append(analyzeOpts, usecase.WithAnalysisObserver(o.analysisObserver))
	}
	chatOpts := []usecase.ChatOption{
		usecase.WithChatLogger(logger),
		usecase.WithGuidanceTimeout(time.Duration(cfg.ChatTimeoutSeconds) * time.Second),
	}
	if o.chatObserver != nil {
		chatOpts = append(chatOpts, usecase.WithChatObserver(o.chatObserver))
	}

	cases, procedures := kb.Size()
	logger.Info("bootstrap.ready",
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"knowledge_cases", cases,
		"knowledge_procedures", procedures,
		"storage_path", cfg.StoragePath,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,

		Analyzer:  usecase.NewAnalyzeDocumentUseCase(users, analyses, storage, queue, document.NewExtractor(), pipeline, analyzeOpts...),
		History:   usecase.NewHistoryUseCase(users, analyses, xlsx.NewExporter(logger)),
		Chat:      usecase.NewChatUseCase(users, chats, advisor, kb, chatOpts...),
		Referrals: usecase.NewReferralUseCase(users, referrals, logger),

		closeFn: closer(queue, db),
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func closer(queue *nats.Queue, db *sql.DB) func() {
	return func() {
		queue.Close()
		_ = db.Close()
	}
}

// NewExecutor builds the shared retry and circuit breaker executor.
func NewExecutor(cfg config.Config, logger *slog.Logger, observer resilience.StateObserver) *resilience.Executor {
	return newExecutor(resilienceConfig(cfg), logger, observer)
}

func newExecutor(rc resilience.Config, logger *slog.Logger, observer resilience.StateObserver) *resilience.Executor {
	opts := []resilience.Option{resilience.WithLogger(logger)}
	if observer != nil {
		opts = append(opts, resilience.WithStateObserver(observer))
	}
	return resilience.NewExecutor(rc, opts...)
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	if cfg.ResilienceBreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	if cfg.ResilienceBreakerFailureRatio > 0 {
		rc.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	}
	if cfg.ResilienceBreakerOpenTimeoutMS > 0 {
		rc.BreakerOpenTimeout = time.Duration(cfg.ResilienceBreakerOpenTimeoutMS) * time.Millisecond
	}
	return rc
}

func NewCompleter(cfg config.Config) (ports.Completer, error) {
	return llm.NewCompleter(llm.ProviderConfig{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  time.Duration(cfg.AnalysisTimeoutSeconds) * time.Second,
	})
}

// NewPipeline wires the analysis client and the fallback pipeline. Analysis
// calls get one attempt each so a slow provider falls back promptly; the
// executor only contributes the breaker.
func NewPipeline(cfg config.Config, completer ports.Completer, logger *slog.Logger, observer resilience.StateObserver) *analysis.Pipeline {
	executor := newExecutor(resilienceConfig(cfg).SingleAttempt(), logger, observer)
	client := llm.NewAnalysisClient(completer,
		llm.WithSampling(cfg.AnalysisTemperature, cfg.AnalysisMaxTokens),
		llm.WithExecutor(executor),
	)
	return analysis.NewPipeline(client, logger, time.Duration(cfg.AnalysisTimeoutSeconds)*time.Second)
}
