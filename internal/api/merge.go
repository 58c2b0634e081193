package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marksheet/internal/service/roster"
)

const mergeDownloadTTL = 10 * time.Minute

// Merge 上传花名册并与汇总数据合并，返回合并报告与下载地址
// POST /api/merge
func (h *Handler) Merge(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取文件失败"})
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取文件失败"})
		return
	}

	agg := h.results.Snapshot()
	if agg.Count() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有可合并的汇总数据"})
		return
	}

	result, err := roster.Merge(data, fh.Filename, agg, h.rosterOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	encoded, err := result.Encode()
	if err != nil {
		h.logger.Error("encode merged roster", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成合并文件失败: " + err.Error()})
		return
	}

	report := result.Report
	h.logger.Info("roster merged",
		zap.String("file", fh.Filename),
		zap.Int("rows", report.TotalRows),
		zap.Int("updated", report.UpdatedCount),
		zap.Int("collisions", len(report.Collisions)),
		zap.Int("unmapped_keys", len(report.UnmappedKeys)),
	)
	if h.audit != nil {
		if _, err := h.audit.CreateMergeLog(fh.Filename, result.Roster.Format, report); err != nil {
			h.logger.Warn("record merge log", zap.Error(err))
		}
	}

	fileName := result.FileName(h.now())
	token := h.downloads.put(download{
		filename:    fileName,
		contentType: result.ContentType(),
		data:        encoded,
	}, mergeDownloadTTL)

	prefix := "/api"
	if i := strings.Index(c.Request.URL.Path, "/merge"); i > 0 {
		prefix = c.Request.URL.Path[:i]
	}
	c.JSON(http.StatusOK, gin.H{
		"report":      report,
		"fileName":    fileName,
		"downloadUrl": fmt.Sprintf("%s/merge/download/%s", prefix, token),
	})
}

// DownloadMerge 下载合并后的花名册（一次性）
// GET /api/merge/download/:token
func (h *Handler) DownloadMerge(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token"})
		return
	}
	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}
	c.Header("Content-Disposition", buildContentDisposition(item.filename))
	c.Data(http.StatusOK, item.contentType, item.data)
}

// ListMergeLogs 最近的合并记录
// GET /api/merge/logs?limit=20
func (h *Handler) ListMergeLogs(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []any{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	logs, err := h.audit.ListMergeLogs(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
