package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marksheet/internal/config"
	"marksheet/internal/importer"
	"marksheet/internal/model"
	"marksheet/internal/ocr"
	"marksheet/internal/service/roster"
	svcstore "marksheet/internal/service/store"
	"marksheet/internal/store"
)

// App 进程内共享的组件：持久化存储、汇总数据、识别队列与复核会话
type App struct {
	Config   *config.AppConfig
	DataDir  string
	Store    *store.Store
	Results  *svcstore.MemoryStore
	Engine   ocr.Engine
	Worklist *importer.Worklist
	Review   *importer.Review
	Logger   *zap.Logger
}

// Open 按配置初始化全部组件
func Open(cfg *config.AppConfig, dataDir string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := store.New(config.DBPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	engine, err := NewEngine(cfg.OCR, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	results := svcstore.NewMemoryStore(st, logger.Named("results"))
	worklist := importer.NewWorklist(engine,
		importer.WithMaxItems(cfg.Upload.MaxQueue),
		importer.WithLogger(logger.Named("worklist")),
	)
	review := importer.NewReview(results, worklist, logger.Named("review"))
	worklist.SetListener(func(item model.QueueItem) {
		review.Offer(item)
	})

	logger.Info("components ready",
		zap.String("db", config.DBPath(dataDir)),
		zap.String("engine", engine.Name()),
		zap.Int("sheets", results.Count()),
	)
	return &App{
		Config:   cfg,
		DataDir:  dataDir,
		Store:    st,
		Results:  results,
		Engine:   engine,
		Worklist: worklist,
		Review:   review,
		Logger:   logger,
	}, nil
}

// Close 关闭数据库
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Verifier 识别引擎支持复核时返回复核器
func (a *App) Verifier() (*ocr.LLMEngine, bool) {
	llm, ok := a.Engine.(*ocr.LLMEngine)
	return llm, ok
}

// RosterOptions 花名册匹配参数
func (a *App) RosterOptions() roster.Options {
	return RosterOptions(a.Config.Roster)
}

// RosterOptions 由配置生成花名册匹配参数（未设置的项取默认值）
func RosterOptions(cfg config.RosterConfig) roster.Options {
	return roster.Options{
		IdentityHeader:  cfg.IdentityHeader,
		NameHeader:      cfg.NameHeader,
		HeaderScanLines: cfg.HeaderScanLines,
		SuffixLength:    cfg.SuffixLength,
	}
}

// NewEngine 按配置选择识别引擎
func NewEngine(cfg config.OCRConfig, logger *zap.Logger) (ocr.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "llm":
		if strings.TrimSpace(cfg.APIKey) == "" {
			logger.Warn("ocr api key is empty; extraction requests will be rejected by the provider")
		}
		return ocr.NewLLMEngine(ocr.LLMConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
			RetryAttempts:  cfg.RetryAttempts,
		}, ocr.WithLogger(logger.Named("ocr"))), nil
	case "tesseract":
		return ocr.NewTesseractEngine(cfg.Languages...), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
