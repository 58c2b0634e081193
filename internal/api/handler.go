package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marksheet/internal/importer"
	"marksheet/internal/model"
	"marksheet/internal/ocr"
	"marksheet/internal/service/excel"
	"marksheet/internal/service/roster"
	svcstore "marksheet/internal/service/store"
	"marksheet/internal/store"
)

// AuditLog 合并/导出日志
type AuditLog interface {
	CreateMergeLog(filename string, format model.RosterFormat, report *model.MergeReport) (int64, error)
	ListMergeLogs(limit int) ([]store.MergeLog, error)
	CreateExportLog(format string, sheetCount, keyCount int) error
}

// Verifier 识别结果复核
type Verifier interface {
	Verify(ctx context.Context, marks []model.SheetMark) ([]ocr.Verification, error)
}

// Deps 处理器依赖
type Deps struct {
	Results       *svcstore.MemoryStore
	Worklist      *importer.Worklist
	Review        *importer.Review
	Audit         AuditLog
	Verifier      Verifier
	EngineName    string
	RosterOptions roster.Options
	MaxImageBytes int64
	Logger        *zap.Logger
}

// Handler API 处理器
type Handler struct {
	results   *svcstore.MemoryStore
	worklist  *importer.Worklist
	review    *importer.Review
	audit     AuditLog
	verifier  Verifier
	exporter  *excel.Exporter
	downloads *downloadStore
	logger    *zap.Logger

	engineName    string
	rosterOptions roster.Options
	maxImageBytes int64
	startedAt     time.Time
	now           func() time.Time
}

// NewHandler 创建 API 处理器
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := deps.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Handler{
		results:       deps.Results,
		worklist:      deps.Worklist,
		review:        deps.Review,
		audit:         deps.Audit,
		verifier:      deps.Verifier,
		exporter:      excel.NewExporter(),
		downloads:     newDownloadStore(),
		logger:        logger,
		engineName:    deps.EngineName,
		rosterOptions: deps.RosterOptions,
		maxImageBytes: maxBytes,
		startedAt:     time.Now(),
		now:           time.Now,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 识别队列
	router.POST("/images", h.UploadImages)
	router.GET("/queue", h.ListQueue)
	router.DELETE("/queue/:id", h.RemoveQueueItem)
	router.POST("/queue/process", h.ProcessQueue)
	router.POST("/queue/stop", h.StopQueue)

	// 复核
	router.GET("/review", h.GetReview)
	router.PATCH("/review/marks/:index", h.UpdateMark)
	router.PATCH("/review/total", h.UpdateTotal)
	router.POST("/review/select/:regNo", h.SelectReview)
	router.POST("/review/verify", h.VerifyReview)
	router.POST("/review/finalize", h.FinalizeReview)
	router.POST("/review/discard", h.DiscardReview)

	// 汇总结果
	router.GET("/results", h.ListResults)
	router.DELETE("/results/:regNo", h.DeleteResult)
	router.DELETE("/results", h.ClearResults)

	// 导出与合并
	router.GET("/export", h.Export)
	router.POST("/merge", h.Merge)
	router.GET("/merge/logs", h.ListMergeLogs)
	router.GET("/merge/download/:token", h.DownloadMerge)
}
