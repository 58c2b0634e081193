package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marksheet/internal/model"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Engine         string `json:"engine"`         // 识别引擎
	SheetCount     int    `json:"sheetCount"`     // 已汇总答题卡数
	QuestionCount  int    `json:"questionCount"`  // 题号键数
	QueueTotal     int    `json:"queueTotal"`     // 队列总数
	QueuePending   int    `json:"queuePending"`   // 待处理（含失败）
	Processing     bool   `json:"processing"`     // 是否正在识别
	Reviewing      string `json:"reviewing"`      // 复核中的注册号
	PendingReviews int    `json:"pendingReviews"` // 待复核数
	Uptime         string `json:"uptime"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	agg := h.results.Snapshot()
	items := h.worklist.Items()

	pending := 0
	for _, item := range items {
		if item.Status.Runnable() {
			pending++
		}
	}

	resp := StatusResponse{
		Engine:         h.engineName,
		SheetCount:     agg.Count(),
		QuestionCount:  len(agg.Questions),
		QueueTotal:     len(items),
		QueuePending:   pending,
		Processing:     h.worklist.Running(),
		PendingReviews: len(h.review.Pending()),
		Uptime:         time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if cur, ok := h.review.Current(); ok {
		resp.Reviewing = cur.RegNo
	}
	c.JSON(http.StatusOK, resp)
}

// queueItemCount 统计指定状态的队列项
func queueItemCount(items []model.QueueItem, status model.ItemStatus) int {
	n := 0
	for _, item := range items {
		if item.Status == status {
			n++
		}
	}
	return n
}
