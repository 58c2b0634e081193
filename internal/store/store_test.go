package store

import (
	"errors"
	"path/filepath"
	"testing"

	"marksheet/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "marksheet.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.GetSnapshot("markSheetData"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	if err := st.PutSnapshot("markSheetData", []byte(`{"questions":[]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.PutSnapshot("markSheetData", []byte(`{"questions":["Q1a"]}`)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := st.GetSnapshot("markSheetData")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"questions":["Q1a"]}` {
		t.Fatalf("unexpected snapshot: %s", got)
	}

	if err := st.DeleteSnapshot("markSheetData"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteSnapshot("markSheetData"); err != nil {
		t.Fatalf("delete missing should be no-op: %v", err)
	}
	if _, err := st.GetSnapshot("markSheetData"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound after delete, got %v", err)
	}
}

func TestMergeLog(t *testing.T) {
	st := newTestStore(t)

	report := &model.MergeReport{
		TotalRows:    3,
		UpdatedCount: 1,
		MatchedRows:  2,
		Collisions:   []model.Collision{{AdmissionNo: "A016", Chosen: "X016", Candidates: []string{"X016", "Y016"}}},
	}
	id, err := st.CreateMergeLog("roster.csv", model.RosterFormatCSV, report)
	if err != nil {
		t.Fatalf("create merge log: %v", err)
	}
	if id <= 0 {
		t.Fatalf("unexpected id: %d", id)
	}

	logs, err := st.ListMergeLogs(10)
	if err != nil {
		t.Fatalf("list merge logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].UpdatedRows != 1 || logs[0].Collisions != 1 || logs[0].RosterFormat != "csv" {
		t.Fatalf("unexpected log: %+v", logs[0])
	}
}

func TestExportLog(t *testing.T) {
	st := newTestStore(t)

	if err := st.CreateExportLog("xlsx", 2, 5); err != nil {
		t.Fatalf("create export log: %v", err)
	}
	n, err := st.CountExportLogs()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 export log, got %d", n)
	}
}
