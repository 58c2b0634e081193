package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marksheet/internal/service/excel"
)

// ListResults 汇总结果（含导出同款二维表）
// GET /api/results
func (h *Handler) ListResults(c *gin.Context) {
	agg := h.results.Snapshot()
	table := h.exporter.Table(agg)
	c.JSON(http.StatusOK, gin.H{
		"questions":  agg.Questions,
		"sheets":     agg.Sheets,
		"sheetCount": agg.Count(),
		"header":     table[0],
		"rows":       table[1:],
		"fileName":   excel.FileBaseName,
	})
}

// DeleteResult 删除一张已汇总的答题卡
// DELETE /api/results/:regNo
func (h *Handler) DeleteResult(c *gin.Context) {
	agg, err := h.results.Delete(c.Param("regNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": agg.Questions, "sheetCount": agg.Count()})
}

// ClearResults 清空全部汇总数据
// DELETE /api/results
func (h *Handler) ClearResults(c *gin.Context) {
	if err := h.results.Clear(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
