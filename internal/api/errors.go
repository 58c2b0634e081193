package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marksheet/internal/importer"
	"marksheet/internal/ocr"
	"marksheet/internal/service/roster"
	svcstore "marksheet/internal/service/store"
)

// statusFor 业务错误对应的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, importer.ErrNoReviewSheet),
		errors.Is(err, importer.ErrItemNotFound),
		errors.Is(err, importer.ErrSheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrQueueBusy),
		errors.Is(err, importer.ErrItemBusy):
		return http.StatusConflict
	case errors.Is(err, importer.ErrQueueFull):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrMarkIndex),
		errors.Is(err, svcstore.ErrEmptyRegNo),
		errors.Is(err, roster.ErrHeaderNotFound),
		errors.Is(err, roster.ErrUnsupportedFormat),
		errors.Is(err, ocr.ErrNotImage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
