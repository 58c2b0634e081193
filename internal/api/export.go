package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marksheet/internal/service/excel"
	"marksheet/internal/service/roster"
)

// Export 导出汇总数据
// GET /api/export?format=xlsx|csv
func (h *Handler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))
	agg := h.results.Snapshot()
	if agg.Count() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有可导出的数据"})
		return
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = h.exporter.ExportXLSX(agg)
		contentType = roster.ContentTypeXLSX
	case "csv":
		data, err = h.exporter.ExportCSV(agg)
		contentType = roster.ContentTypeCSV
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的导出格式: " + format})
		return
	}
	if err != nil {
		h.logger.Error("export failed", zap.String("format", format), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败: " + err.Error()})
		return
	}

	if h.audit != nil {
		if err := h.audit.CreateExportLog(format, agg.Count(), len(agg.Questions)); err != nil {
			h.logger.Warn("record export log", zap.Error(err))
		}
	}

	c.Header("Content-Disposition", buildContentDisposition(excel.FileBaseName+"."+format))
	c.Data(http.StatusOK, contentType, data)
}

func buildContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename))
}
