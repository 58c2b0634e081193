package roster

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"marksheet/internal/model"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Result 一次合并的结果
type Result struct {
	Roster *model.Roster
	Rows   []model.RosterRow
	Report *model.MergeReport
}

// DetectFormat 按文件扩展名判断花名册格式
func DetectFormat(filename string) (model.RosterFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return model.RosterFormatCSV, nil
	case ".xlsx", ".xlsm":
		return model.RosterFormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

// Parse 解析花名册文件
func Parse(data []byte, filename string, opts Options) (*model.Roster, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if format == model.RosterFormatXLSX {
		return ParseXLSX(data, opts)
	}
	return ParseCSV(data, opts)
}

// Merge 解析花名册并与汇总数据合并
func Merge(data []byte, filename string, agg *model.Aggregate, opts Options) (*Result, error) {
	r, err := Parse(data, filename, opts)
	if err != nil {
		return nil, err
	}
	rows, report := Reconcile(r.Rows, r.Headers, agg, opts)
	return &Result{Roster: r, Rows: rows, Report: report}, nil
}

// Encode 按输入格式编码合并后的花名册
func (r *Result) Encode() ([]byte, error) {
	if r.Roster.Format == model.RosterFormatXLSX {
		return WriteXLSX(r.Roster, r.Rows)
	}
	return WriteCSV(r.Roster, r.Rows), nil
}

// ContentType 下载时的 MIME 类型
func (r *Result) ContentType() string {
	if r.Roster.Format == model.RosterFormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// FileName 下载文件名，例如 merged_marks_2024-03-01.csv
func (r *Result) FileName(now time.Time) string {
	ext := ".csv"
	if r.Roster.Format == model.RosterFormatXLSX {
		ext = ".xlsx"
	}
	return "merged_marks_" + now.Format("2006-01-02") + ext
}
