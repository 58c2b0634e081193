package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"marksheet/internal/model"
	"marksheet/internal/parser"
)

var (
	// ErrHeaderNotFound 前若干行中找不到同时包含学号列与姓名列的表头
	ErrHeaderNotFound = errors.New("roster header row not found")
	// ErrUnsupportedFormat 不支持的花名册格式
	ErrUnsupportedFormat = errors.New("unsupported roster format")
)

var lineBreakRe = regexp.MustCompile(`\r\n|\n`)

// ParseCSV 解析 CSV 花名册
// 表头行：前 HeaderScanLines 行中首个同时包含学号列名与姓名列名的行；表头之前的行原样保留
func ParseCSV(data []byte, opts Options) (*model.Roster, error) {
	opts = opts.withDefaults()

	text := strings.TrimPrefix(string(data), "\ufeff")
	lines := lineBreakRe.Split(text, -1)

	headerIdx := -1
	for i := 0; i < len(lines) && i < opts.HeaderScanLines; i++ {
		if parser.ContainsAll(lines[i], opts.IdentityHeader, opts.NameHeader) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: need %q and %q", ErrHeaderNotFound, opts.IdentityHeader, opts.NameHeader)
	}

	rawHeaders, err := readRecord(lines[headerIdx])
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster header: %w", err)
	}
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = cleanCell(h)
	}
	if !containsHeader(headers, opts.IdentityHeader) {
		return nil, fmt.Errorf("%w: roster must contain %q column", ErrHeaderNotFound, opts.IdentityHeader)
	}

	dataLines := make([]string, 0, len(lines)-headerIdx-1)
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		dataLines = append(dataLines, line)
	}

	rows := make([]model.RosterRow, 0, len(dataLines))
	r := newReader(strings.NewReader(strings.Join(dataLines, "\n")))
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse roster row: %w", err)
		}
		rows = append(rows, buildRow(headers, record))
	}

	return &model.Roster{
		Format:  model.RosterFormatCSV,
		Prelude: append([]string{}, lines[:headerIdx]...),
		Headers: headers,
		Rows:    rows,
	}, nil
}

// WriteCSV 重建 CSV：保留表头前的原始行，表头以逗号拼接，数据单元格一律加引号
func WriteCSV(r *model.Roster, rows []model.RosterRow) []byte {
	var buf bytes.Buffer
	for _, line := range r.Prelude {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	header := make([]string, len(r.Headers))
	for i, h := range r.Headers {
		header[i] = quoteIfNeeded(h)
	}
	buf.WriteString(strings.Join(header, ","))

	for _, row := range rows {
		buf.WriteByte('\n')
		cells := make([]string, len(r.Headers))
		for i, h := range r.Headers {
			cells[i] = quote(row[h])
		}
		buf.WriteString(strings.Join(cells, ","))
	}
	return buf.Bytes()
}

func newReader(src io.Reader) *csv.Reader {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	// 逗号后带空格的引号单元格 `, "Doe, Jane"` 仍按一个单元格读取
	r.TrimLeadingSpace = true
	return r
}

func readRecord(line string) ([]string, error) {
	record, err := newReader(strings.NewReader(line)).Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	return record, err
}

func buildRow(headers []string, values []string) model.RosterRow {
	row := make(model.RosterRow, len(headers))
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = cleanCell(values[i])
		}
		row[h] = v
	}
	return row
}

func cleanCell(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, `"`, ""))
}

func containsHeader(headers []string, want string) bool {
	for _, h := range headers {
		if h == want {
			return true
		}
	}
	return false
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func quoteIfNeeded(v string) string {
	if strings.ContainsAny(v, ",\"\n\r") {
		return quote(v)
	}
	return v
}
