package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"marksheet/internal/model"
)

func exportAggregate() *model.Aggregate {
	return &model.Aggregate{
		Questions: []string{"TotalMarks", "Q2a", "Q1b", "Q1a"},
		Sheets: map[string]map[string]string{
			"REG002": {"Q1a": "4", "TotalMarks": "4"},
			"REG001": {"Q1a": "5", "Q1b": "3", "Q2a": "1", "TotalMarks": "9"},
		},
	}
}

func TestTableLayout(t *testing.T) {
	table := NewExporter().Table(exportAggregate())
	wantHeader := []string{"Register No.", "Q1a", "Q1b", "Q2a", "Total Marks"}
	if strings.Join(table[0], "|") != strings.Join(wantHeader, "|") {
		t.Fatalf("header = %v, want %v", table[0], wantHeader)
	}
	if len(table) != 3 {
		t.Fatalf("rows = %d, want 3", len(table))
	}
	if table[1][0] != "REG001" || table[2][0] != "REG002" {
		t.Fatalf("row order = %s,%s", table[1][0], table[2][0])
	}
	if got := strings.Join(table[2], "|"); got != "REG002|4|||4" {
		t.Fatalf("sparse row = %q", got)
	}
}

func TestTableEmptyAggregate(t *testing.T) {
	table := NewExporter().Table(nil)
	if len(table) != 1 || len(table[0]) != 1 || table[0][0] != RegNoHeader {
		t.Fatalf("table = %#v", table)
	}
}

func TestExportXLSX(t *testing.T) {
	data, err := NewExporter().ExportXLSX(exportAggregate())
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue(SheetName, "E1")
	if err != nil || v != "Total Marks" {
		t.Fatalf("E1 = %q err=%v", v, err)
	}
	v, _ = f.GetCellValue(SheetName, "B2")
	if v != "5" {
		t.Fatalf("B2 = %q, want 5", v)
	}
}

func TestExportCSV(t *testing.T) {
	data, err := NewExporter().ExportCSV(exportAggregate())
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "Register No.,Q1a,Q1b,Q2a,Total Marks" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "REG001,5,3,1,9" {
		t.Fatalf("row = %q", lines[1])
	}
}
