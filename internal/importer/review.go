package importer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"marksheet/internal/model"
	"marksheet/internal/ocr"
	"marksheet/internal/parser"
)

var (
	// ErrNoReviewSheet 当前没有待复核的答题卡
	ErrNoReviewSheet = errors.New("no sheet data available to finalize")
	// ErrMarkIndex 复核行号越界
	ErrMarkIndex = errors.New("mark index out of range")
	// ErrSheetNotFound 队列中没有该学号的识别结果
	ErrSheetNotFound = errors.New("no processed sheet for register number")
)

// Results 汇总存储
type Results interface {
	Has(regNo string) bool
	Upsert(regNo string, marks map[string]string, total string) (*model.Aggregate, error)
}

// DoneSource 提供识别成功的队列项
type DoneSource interface {
	Done() []model.QueueItem
}

// Review 复核会话：同一时刻最多一张答题卡处于复核中
type Review struct {
	results Results
	source  DoneSource
	logger  *zap.Logger

	mu      sync.Mutex
	current *model.SheetRecord
}

// NewReview 创建复核会话
func NewReview(results Results, source DoneSource, logger *zap.Logger) *Review {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Review{results: results, source: source, logger: logger}
}

// Offer 识别成功后调用：当前无复核中的答题卡时，该项成为当前复核项
func (r *Review) Offer(item model.QueueItem) bool {
	if item.Extraction == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return false
	}
	r.setLocked(item)
	return true
}

// Current 当前复核中的答题卡副本
func (r *Review) Current() (*model.SheetRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, false
	}
	return cloneSheet(r.current), true
}

// Select 将指定学号的识别结果设为当前复核项（替换当前项，未定稿的修改丢弃）
func (r *Review) Select(regNo string) (*model.SheetRecord, error) {
	regNo = strings.TrimSpace(regNo)
	var found *model.QueueItem
	if r.source != nil {
		for _, item := range r.source.Done() {
			if item.Extraction.RegNo == regNo {
				it := item
				found = &it
				break
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, regNo)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.setLocked(*found)
	return cloneSheet(r.current), nil
}

// SetMark 修改第 index 行的修正分数
func (r *Review) SetMark(index int, value string) (*model.SheetRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, ErrNoReviewSheet
	}
	if index < 0 || index >= len(r.current.Marks) {
		return nil, fmt.Errorf("%w: %d", ErrMarkIndex, index)
	}
	r.current.Marks[index].CorrectedMark = value
	return cloneSheet(r.current), nil
}

// SetTotal 修改修正总分
func (r *Review) SetTotal(value string) (*model.SheetRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, ErrNoReviewSheet
	}
	r.current.CorrectedTotalMarks = value
	return cloneSheet(r.current), nil
}

// ApplyVerifications 采纳复核建议：仅对判定不准确且给出修正值的行写入修正分数
func (r *Review) ApplyVerifications(items []ocr.Verification) (*model.SheetRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, 0, ErrNoReviewSheet
	}
	byQuestion := make(map[string]ocr.Verification, len(items))
	for _, v := range items {
		byQuestion[strings.TrimSpace(v.Question)] = v
	}
	applied := 0
	for i, m := range r.current.Marks {
		v, ok := byQuestion[m.Question]
		if !ok || v.IsAccurate || strings.TrimSpace(v.CorrectedMark) == "" {
			continue
		}
		r.current.Marks[i].CorrectedMark = strings.TrimSpace(v.CorrectedMark)
		applied++
	}
	return cloneSheet(r.current), applied, nil
}

// Finalize 将当前答题卡的有效分数写入汇总，然后切换到下一张尚未汇总的识别结果
func (r *Review) Finalize() (*model.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.RegNo == "" {
		return nil, ErrNoReviewSheet
	}

	sheet := r.current
	agg, err := r.results.Upsert(sheet.RegNo, sheet.EffectiveMarks(), sheet.EffectiveTotal())
	if err != nil {
		return nil, fmt.Errorf("failed to finalize sheet %s: %w", sheet.RegNo, err)
	}
	r.logger.Info("review finalized", zap.String("reg_no", sheet.RegNo), zap.Int("marks", len(sheet.Marks)))

	r.current = nil
	r.promoteLocked()
	return agg, nil
}

// Discard 放弃当前答题卡（不写入汇总）
func (r *Review) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ErrNoReviewSheet
	}
	r.logger.Info("review discarded", zap.String("reg_no", r.current.RegNo))
	r.current = nil
	return nil
}

// Pending 识别成功但尚未汇总的学号
func (r *Review) Pending() []string {
	out := []string{}
	if r.source == nil {
		return out
	}
	for _, item := range r.source.Done() {
		if !r.results.Has(item.Extraction.RegNo) {
			out = append(out, item.Extraction.RegNo)
		}
	}
	return out
}

func (r *Review) promoteLocked() {
	if r.source == nil {
		return
	}
	for _, item := range r.source.Done() {
		if r.results.Has(item.Extraction.RegNo) {
			continue
		}
		r.setLocked(item)
		return
	}
}

func (r *Review) setLocked(item model.QueueItem) {
	r.current = parser.MapExtraction(*item.Extraction)
}

func cloneSheet(s *model.SheetRecord) *model.SheetRecord {
	out := *s
	out.Marks = append([]model.SheetMark{}, s.Marks...)
	return &out
}
