package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marksheet/internal/model"
)

var (
	// ErrUnusableExtraction 识别调用成功但内容不可用（无注册号，或既无小题分数也无总分）
	ErrUnusableExtraction = errors.New("could not find register number or any marks/total marks")
	// ErrNotImage 上传的文件不是图片
	ErrNotImage = errors.New("file is not an image")
)

// Engine 答题卡识别引擎：图片 -> 结构化抽取结果
type Engine interface {
	Name() string
	Extract(ctx context.Context, img model.Image) (model.Extraction, error)
}

// Validate 检查抽取结果是否可用于汇总
func Validate(e model.Extraction) error {
	if strings.TrimSpace(e.RegNo) == "" {
		return ErrUnusableExtraction
	}
	if e.SubPartCount() == 0 && strings.TrimSpace(e.TotalMarks) == "" {
		return ErrUnusableExtraction
	}
	return nil
}

// Normalize 去除各字段首尾空白，丢弃空题号
func Normalize(e model.Extraction) model.Extraction {
	out := model.Extraction{
		RegNo:             strings.TrimSpace(e.RegNo),
		TotalMarks:        strings.TrimSpace(e.TotalMarks),
		QuestionsAndMarks: make([]model.QuestionMarks, 0, len(e.QuestionsAndMarks)),
	}
	for _, q := range e.QuestionsAndMarks {
		q.QuestionNumber = strings.TrimSpace(q.QuestionNumber)
		if q.QuestionNumber == "" {
			continue
		}
		q.A = strings.TrimSpace(q.A)
		q.B = strings.TrimSpace(q.B)
		q.C = strings.TrimSpace(q.C)
		q.D = strings.TrimSpace(q.D)
		out.QuestionsAndMarks = append(out.QuestionsAndMarks, q)
	}
	return out
}

// DetectMIME 确定图片类型：优先使用声明的类型，否则按内容嗅探
func DetectMIME(declared string, data []byte) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
		if i := strings.Index(mime, ";"); i >= 0 {
			mime = mime[:i]
		}
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	return mime, nil
}
