package roster

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"marksheet/internal/model"
)

const sampleCSV = "Course: CS301,Semester 5\n" +
	"Exam,Series 1\n" +
	"Admission No,Name,1 (3.00) CO1,6.a (7.00) CO2,6b,Total (50)\n" +
	"XYZ016,\"Doe, Jane\",,,,\n" +
	"\n" +
	"XYZ020,Bob,2,4,1,7\n"

func sampleAggregate() *model.Aggregate {
	return &model.Aggregate{
		Questions: []string{"Q1a", "Q1b", "TotalMarks"},
		Sheets: map[string]map[string]string{
			"JEC23AD016": {"Q1a": "5", "Q1b": "3", "TotalMarks": "8"},
		},
	}
}

func TestParseCSVFindsHeaderAfterPrelude(t *testing.T) {
	r, err := ParseCSV([]byte("\ufeff"+sampleCSV), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(r.Prelude) != 2 || r.Prelude[0] != "Course: CS301,Semester 5" {
		t.Fatalf("prelude = %#v", r.Prelude)
	}
	if len(r.Headers) != 6 || r.Headers[2] != "1 (3.00) CO1" {
		t.Fatalf("headers = %#v", r.Headers)
	}
	if len(r.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank line skipped)", len(r.Rows))
	}
	if got := r.Rows[0]["Name"]; got != "Doe, Jane" {
		t.Fatalf("quoted cell = %q, want embedded comma kept", got)
	}
	if got := r.Rows[1]["Total (50)"]; got != "7" {
		t.Fatalf("total cell = %q", got)
	}
}

func TestParseCSVQuotedCellAfterSpace(t *testing.T) {
	data := "Admission No,Name,1,Total\nXYZ016, \"Doe, Jane\",2,7\n"
	r, err := ParseCSV([]byte(data), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(r.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(r.Rows))
	}
	row := r.Rows[0]
	if row["Name"] != "Doe, Jane" || row["1"] != "2" || row["Total"] != "7" {
		t.Fatalf("row = %#v", row)
	}

	out := string(WriteCSV(r, r.Rows))
	if !strings.HasSuffix(out, `"XYZ016","Doe, Jane","2","7"`) {
		t.Fatalf("written csv:\n%s", out)
	}
}

func TestParseCSVHeaderNotFound(t *testing.T) {
	data := "a,b,c\n1,2,3\n"
	if _, err := ParseCSV([]byte(data), DefaultOptions()); !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("err = %v, want ErrHeaderNotFound", err)
	}

	// 表头位于扫描范围之外
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("note\n")
	}
	b.WriteString("Admission No,Name\nX001,A\n")
	if _, err := ParseCSV([]byte(b.String()), DefaultOptions()); !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("err = %v, want ErrHeaderNotFound beyond scan window", err)
	}
}

func TestReconcileUpdatesMatchedRow(t *testing.T) {
	headers := []string{"Admission No", "Name", "1", "6.a"}
	rows := []model.RosterRow{{"Admission No": "XYZ016", "Name": "Jane", "1": "", "6.a": ""}}
	agg := sampleAggregate()

	out, report := Reconcile(rows, headers, agg, DefaultOptions())
	if report.UpdatedCount != 1 {
		t.Fatalf("updatedCount = %d, want 1", report.UpdatedCount)
	}
	if out[0]["1"] != "5" {
		t.Fatalf("column 1 = %q, want 5", out[0]["1"])
	}
	if out[0]["6.a"] != "" {
		t.Fatalf("column 6.a = %q, want untouched", out[0]["6.a"])
	}
	if rows[0]["1"] != "" {
		t.Fatalf("input row mutated")
	}
	if agg.Sheets["JEC23AD016"]["Q1a"] != "5" || len(agg.Sheets) != 1 {
		t.Fatalf("aggregate mutated: %#v", agg.Sheets)
	}
	// Q1b 与 TotalMarks 在花名册中没有对应列
	if len(report.UnmappedKeys) != 2 {
		t.Fatalf("unmapped = %#v", report.UnmappedKeys)
	}
}

func TestReconcileNoMatchLeavesRowUnchanged(t *testing.T) {
	headers := []string{"Admission No", "Name", "1"}
	rows := []model.RosterRow{{"Admission No": "XYZ999", "Name": "Bob", "1": "2"}}

	out, report := Reconcile(rows, headers, sampleAggregate(), DefaultOptions())
	if report.UpdatedCount != 0 || report.MatchedRows != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(out[0]) != 3 || out[0]["1"] != "2" || out[0]["Name"] != "Bob" {
		t.Fatalf("row changed: %#v", out[0])
	}
	if len(report.UnmatchedRows) != 1 || report.UnmatchedRows[0] != "XYZ999" {
		t.Fatalf("unmatched = %#v", report.UnmatchedRows)
	}
}

func TestReconcileMissingIdentityPassesThrough(t *testing.T) {
	rows := []model.RosterRow{{"Name": "NoId", "1": ""}}
	out, report := Reconcile(rows, []string{"Name", "1"}, sampleAggregate(), DefaultOptions())
	if report.UpdatedCount != 0 || out[0]["1"] != "" {
		t.Fatalf("row without identity updated: %#v", out[0])
	}
}

func TestReconcileCountsRowOnce(t *testing.T) {
	headers := []string{"Admission No", "Name", "1", "1b", "Total Marks"}
	rows := []model.RosterRow{{"Admission No": "A016", "Name": "x", "1": "", "1b": "", "Total Marks": ""}}

	out, report := Reconcile(rows, headers, sampleAggregate(), DefaultOptions())
	if report.UpdatedCount != 1 {
		t.Fatalf("updatedCount = %d, want 1", report.UpdatedCount)
	}
	if out[0]["1"] != "5" || out[0]["1b"] != "3" || out[0]["Total Marks"] != "8" {
		t.Fatalf("row = %#v", out[0])
	}

	// 值相同不算更新
	_, report = Reconcile(out, headers, sampleAggregate(), DefaultOptions())
	if report.UpdatedCount != 0 {
		t.Fatalf("second pass updatedCount = %d, want 0", report.UpdatedCount)
	}
}

func TestReconcileEmptyMarkDoesNotOverwrite(t *testing.T) {
	agg := &model.Aggregate{Sheets: map[string]map[string]string{"R016": {"Q1a": ""}}}
	rows := []model.RosterRow{{"Admission No": "X016", "1": "4"}}
	out, report := Reconcile(rows, []string{"Admission No", "1"}, agg, DefaultOptions())
	if out[0]["1"] != "4" || report.UpdatedCount != 0 {
		t.Fatalf("empty mark overwrote cell: %#v", out[0])
	}
}

func TestReconcileCollisionTakesFirstLexicographic(t *testing.T) {
	agg := &model.Aggregate{Sheets: map[string]map[string]string{
		"B-016": {"Q1a": "9"},
		"A-016": {"Q1a": "1"},
	}}
	rows := []model.RosterRow{{"Admission No": "Z016", "1": ""}}
	out, report := Reconcile(rows, []string{"Admission No", "1"}, agg, DefaultOptions())
	if out[0]["1"] != "1" {
		t.Fatalf("chosen mark = %q, want from A-016", out[0]["1"])
	}
	if len(report.Collisions) != 1 || report.Collisions[0].Chosen != "A-016" || len(report.Collisions[0].Candidates) != 2 {
		t.Fatalf("collisions = %#v", report.Collisions)
	}
}

func TestWriteCSVReconstructsRoster(t *testing.T) {
	r, err := ParseCSV([]byte(sampleCSV), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	r.Rows[0]["Name"] = `Jane "JD"`

	got := string(WriteCSV(r, r.Rows))
	lines := strings.Split(got, "\n")
	if lines[0] != "Course: CS301,Semester 5" || lines[1] != "Exam,Series 1" {
		t.Fatalf("prelude lines = %#v", lines[:2])
	}
	if lines[2] != "Admission No,Name,1 (3.00) CO1,6.a (7.00) CO2,6b,Total (50)" {
		t.Fatalf("header line = %q", lines[2])
	}
	if lines[3] != `"XYZ016","Jane ""JD""","","","",""` {
		t.Fatalf("data line = %q", lines[3])
	}
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(lines))
	}
}

func TestMergeCSVEndToEnd(t *testing.T) {
	res, err := Merge([]byte(sampleCSV), "roster.csv", sampleAggregate(), DefaultOptions())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Report.UpdatedCount != 1 {
		t.Fatalf("updatedCount = %d", res.Report.UpdatedCount)
	}
	data, err := res.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"XYZ016","Doe, Jane","5","","","8"`) {
		t.Fatalf("merged csv = %s", data)
	}
	if res.ContentType() != ContentTypeCSV {
		t.Fatalf("content type = %s", res.ContentType())
	}
}

func TestMergeRejectsUnknownExtension(t *testing.T) {
	if _, err := Merge([]byte("x"), "roster.pdf", sampleAggregate(), DefaultOptions()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestMergeXLSXRoundTrip(t *testing.T) {
	f := excelize.NewFile()
	sheet := "Sheet1"
	_ = f.SetSheetRow(sheet, "A1", &[]interface{}{"Internal Marks"})
	_ = f.SetSheetRow(sheet, "A2", &[]interface{}{"Admission No", "Name", "1", "1.b"})
	_ = f.SetSheetRow(sheet, "A3", &[]interface{}{"XYZ016", "Jane", "", ""})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	f.Close()

	res, err := Merge(buf.Bytes(), "roster.xlsx", sampleAggregate(), DefaultOptions())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Report.UpdatedCount != 1 || res.Rows[0]["1.b"] != "3" {
		t.Fatalf("rows = %#v report = %+v", res.Rows, res.Report)
	}

	data, err := res.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := ParseXLSX(data, DefaultOptions())
	if err != nil {
		t.Fatalf("ParseXLSX merged: %v", err)
	}
	if len(out.PreludeRows) != 1 || out.PreludeRows[0][0] != "Internal Marks" {
		t.Fatalf("prelude = %#v", out.PreludeRows)
	}
	if out.Rows[0]["1"] != "5" {
		t.Fatalf("merged cell = %q", out.Rows[0]["1"])
	}
}
