package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"marksheet/internal/model"
	"marksheet/internal/parser"
)

const (
	// SheetName 汇总表 sheet 名称
	SheetName = "Consolidated Marks"
	// FileBaseName 导出文件名（不含扩展名）
	FileBaseName = "consolidated_marks_data"
	// RegNoHeader 首列表头
	RegNoHeader = "Register No."
)

// Exporter 汇总数据导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Table 汇总数据转为二维表：表头 + 按注册号升序的数据行，缺失单元格为空
func (e *Exporter) Table(agg *model.Aggregate) [][]string {
	if agg == nil {
		agg = model.NewAggregate()
	}
	keys := parser.SortedKeys(agg.Questions)

	header := make([]string, 0, len(keys)+1)
	header = append(header, RegNoHeader)
	for _, k := range keys {
		if k == model.TotalMarksKey {
			header = append(header, model.TotalMarksLabel)
			continue
		}
		header = append(header, k)
	}

	regNos := make([]string, 0, len(agg.Sheets))
	for regNo := range agg.Sheets {
		regNos = append(regNos, regNo)
	}
	sort.Strings(regNos)

	table := make([][]string, 0, len(regNos)+1)
	table = append(table, header)
	for _, regNo := range regNos {
		marks := agg.Sheets[regNo]
		row := make([]string, 0, len(keys)+1)
		row = append(row, regNo)
		for _, k := range keys {
			row = append(row, marks[k])
		}
		table = append(table, row)
	}
	return table
}

// Export 导出汇总数据到 Excel
func (e *Exporter) Export(agg *model.Aggregate) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetName)

	table := e.Table(agg)
	for i, values := range table {
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	// 设置表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	f.SetRowStyle(SheetName, 1, 1, headerStyle)

	// 设置列宽
	f.SetColWidth(SheetName, "A", "A", 18)
	if n := len(table[0]); n > 1 {
		last, _ := excelize.ColumnNumberToName(n)
		f.SetColWidth(SheetName, "B", last, 10)
	}

	return f, nil
}

// ExportXLSX 导出为 xlsx 字节
func (e *Exporter) ExportXLSX(agg *model.Aggregate) ([]byte, error) {
	f, err := e.Export(agg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportCSV 导出为 CSV 字节
func (e *Exporter) ExportCSV(agg *model.Aggregate) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(e.Table(agg)); err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
