package roster

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"marksheet/internal/model"
	"marksheet/internal/parser"
)

// ParseXLSX 解析 Excel 花名册：依次扫描各 sheet，取首个找到表头的 sheet
func ParseXLSX(data []byte, opts Options) (*model.Roster, error) {
	opts = opts.withDefaults()

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open roster workbook: %w", err)
	}
	defer wb.Close()

	for _, sheetName := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheetName)
		if err != nil {
			continue
		}
		headerIdx := findHeaderRow(rows, opts)
		if headerIdx < 0 {
			continue
		}

		headers := make([]string, len(rows[headerIdx]))
		for i, h := range rows[headerIdx] {
			headers[i] = cleanCell(h)
		}
		if !containsHeader(headers, opts.IdentityHeader) {
			continue
		}

		out := &model.Roster{
			Format:      model.RosterFormatXLSX,
			SheetName:   sheetName,
			Prelude:     make([]string, 0, headerIdx),
			PreludeRows: make([][]string, 0, headerIdx),
			Headers:     headers,
			Rows:        make([]model.RosterRow, 0, len(rows)-headerIdx-1),
		}
		for _, row := range rows[:headerIdx] {
			out.Prelude = append(out.Prelude, strings.Join(row, ","))
			out.PreludeRows = append(out.PreludeRows, append([]string{}, row...))
		}
		for _, row := range rows[headerIdx+1:] {
			if isBlankRow(row) {
				continue
			}
			out.Rows = append(out.Rows, buildRow(headers, row))
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: need %q and %q", ErrHeaderNotFound, opts.IdentityHeader, opts.NameHeader)
}

// WriteXLSX 导出合并后的 Excel 花名册（表头前的行原样写回）
func WriteXLSX(r *model.Roster, rows []model.RosterRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := r.SheetName
	if sheetName == "" {
		sheetName = "Merged"
	}
	f.SetSheetName("Sheet1", sheetName)

	rowNo := 1
	writeRow := func(values []string) error {
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNo)
		if err != nil {
			return err
		}
		rowNo++
		return f.SetSheetRow(sheetName, cell, &cells)
	}

	for _, prelude := range r.PreludeRows {
		if err := writeRow(prelude); err != nil {
			return nil, fmt.Errorf("failed to write prelude row: %w", err)
		}
	}

	headerRow := rowNo
	if err := writeRow(r.Headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(sheetName, headerRow, headerRow, headerStyle)
	}

	for _, row := range rows {
		values := make([]string, len(r.Headers))
		for i, h := range r.Headers {
			values[i] = row[h]
		}
		if err := writeRow(values); err != nil {
			return nil, fmt.Errorf("failed to write roster row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func findHeaderRow(rows [][]string, opts Options) int {
	for i := 0; i < len(rows) && i < opts.HeaderScanLines; i++ {
		if parser.ContainsAll(strings.Join(rows[i], ","), opts.IdentityHeader, opts.NameHeader) {
			return i
		}
	}
	return -1
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
