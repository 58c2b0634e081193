package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marksheet/internal/importer"
)

// MarkRequest 修改分数请求
type MarkRequest struct {
	Value string `json:"value"`
}

// GetReview 当前复核中的答题卡
// GET /api/review
func (h *Handler) GetReview(c *gin.Context) {
	cur, ok := h.review.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"sheet": nil, "pending": h.review.Pending()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": cur, "pending": h.review.Pending()})
}

// UpdateMark 修改某一行的修正分数
// PATCH /api/review/marks/:index
func (h *Handler) UpdateMark(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的行号"})
		return
	}
	var req MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}
	cur, err := h.review.SetMark(index, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": cur})
}

// UpdateTotal 修改修正总分
// PATCH /api/review/total
func (h *Handler) UpdateTotal(c *gin.Context) {
	var req MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}
	cur, err := h.review.SetTotal(req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": cur})
}

// SelectReview 切换到指定注册号的识别结果
// POST /api/review/select/:regNo
func (h *Handler) SelectReview(c *gin.Context) {
	cur, err := h.review.Select(c.Param("regNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": cur})
}

// VerifyReview 请识别模型复核当前答题卡并采纳修正建议
// POST /api/review/verify
func (h *Handler) VerifyReview(c *gin.Context) {
	if h.verifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "当前识别引擎不支持复核"})
		return
	}
	cur, ok := h.review.Current()
	if !ok {
		respondError(c, importer.ErrNoReviewSheet)
		return
	}
	items, err := h.verifier.Verify(c.Request.Context(), cur.Marks)
	if err != nil {
		h.logger.Warn("verification failed", zap.String("reg_no", cur.RegNo), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	updated, applied, err := h.review.ApplyVerifications(items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": updated, "applied": applied, "verifications": items})
}

// FinalizeReview 定稿当前答题卡
// POST /api/review/finalize
func (h *Handler) FinalizeReview(c *gin.Context) {
	cur, ok := h.review.Current()
	if !ok {
		respondError(c, importer.ErrNoReviewSheet)
		return
	}
	agg, err := h.review.Finalize()
	if err != nil {
		respondError(c, err)
		return
	}
	next, _ := h.review.Current()
	c.JSON(http.StatusOK, gin.H{
		"finalized":  cur.RegNo,
		"sheetCount": agg.Count(),
		"next":       next,
	})
}

// DiscardReview 放弃当前答题卡
// POST /api/review/discard
func (h *Handler) DiscardReview(c *gin.Context) {
	if err := h.review.Discard(); err != nil {
		if errors.Is(err, importer.ErrNoReviewSheet) {
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
