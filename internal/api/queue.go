package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marksheet/internal/importer"
	"marksheet/internal/model"
)

// UploadImages 上传答题卡图片（multipart 字段 files）
// POST /api/images
func (h *Handler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的表单数据"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	images := make([]model.Image, 0, len(files))
	rejected := []importer.Rejection{}
	for _, fh := range files {
		if fh.Size > h.maxImageBytes {
			rejected = append(rejected, importer.Rejection{
				Name:   fh.Filename,
				Reason: fmt.Sprintf("file exceeds %d bytes", h.maxImageBytes),
			})
			continue
		}
		f, err := fh.Open()
		if err != nil {
			rejected = append(rejected, importer.Rejection{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			rejected = append(rejected, importer.Rejection{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		images = append(images, model.Image{
			Name: fh.Filename,
			MIME: fh.Header.Get("Content-Type"),
			Data: data,
		})
	}

	added, more, err := h.worklist.Add(images...)
	rejected = append(rejected, more...)
	if err != nil && len(added) == 0 {
		respondError(c, err)
		return
	}

	h.logger.Info("images queued", zap.Int("added", len(added)), zap.Int("rejected", len(rejected)))
	resp := gin.H{"added": added, "rejected": rejected}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// ListQueue 队列列表
// GET /api/queue
func (h *Handler) ListQueue(c *gin.Context) {
	items := h.worklist.Items()
	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"processing": h.worklist.Running(),
		"done":       queueItemCount(items, model.ItemStatusDone),
		"failed":     queueItemCount(items, model.ItemStatusError),
	})
}

// RemoveQueueItem 移除队列项
// DELETE /api/queue/:id
func (h *Handler) RemoveQueueItem(c *gin.Context) {
	if err := h.worklist.Remove(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ProcessQueue 处理队列 (SSE 流式响应)
// POST /api/queue/process
func (h *Handler) ProcessQueue(c *gin.Context) {
	// 客户端断开不影响队列继续处理
	progressChan, err := h.worklist.Process(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondError(c, err)
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// StopQueue 停止启动后续队列项
// POST /api/queue/stop
func (h *Handler) StopQueue(c *gin.Context) {
	h.worklist.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "processing": h.worklist.Running()})
}
