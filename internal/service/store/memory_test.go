package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	kv "marksheet/internal/store"
)

func newKV(t *testing.T) *kv.Store {
	t.Helper()
	st, err := kv.New(filepath.Join(t.TempDir(), "marksheet.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// TestMemoryStorePersistsAcrossReload 修改后重新加载应得到相同汇总
func TestMemoryStorePersistsAcrossReload(t *testing.T) {
	st := newKV(t)

	s := NewMemoryStore(st, zap.NewNop())
	if s.Count() != 0 {
		t.Fatalf("new store should be empty, got %d", s.Count())
	}

	if _, err := s.Upsert("JEC23AD016", map[string]string{"Q1a": "5", "Q1b": "3"}, "8"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert("JEC23AD020", map[string]string{"Q2a": "1"}, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	agg, err := s.Delete("JEC23AD020")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	reloaded := NewMemoryStore(st, zap.NewNop())
	if !reflect.DeepEqual(reloaded.Snapshot(), agg) {
		t.Fatalf("reloaded=%+v, want %+v", reloaded.Snapshot(), agg)
	}
	if !reloaded.Has("JEC23AD016") {
		t.Fatal("expected JEC23AD016 after reload")
	}
}

// TestMemoryStoreCorruptSnapshotResets 损坏快照视为空汇总
func TestMemoryStoreCorruptSnapshotResets(t *testing.T) {
	st := newKV(t)
	if err := st.PutSnapshot(SnapshotKey, []byte(`{"sheets":{"A":{}}}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	s := NewMemoryStore(st, zap.NewNop())
	if s.Count() != 0 {
		t.Fatalf("corrupt snapshot should load as empty, got %d sheets", s.Count())
	}
	if _, err := st.GetSnapshot(SnapshotKey); err == nil {
		t.Fatal("corrupt snapshot should be removed")
	}
}

// TestMemoryStoreClear 清空后重新加载仍为空
func TestMemoryStoreClear(t *testing.T) {
	st := newKV(t)
	s := NewMemoryStore(st, zap.NewNop())
	if _, err := s.Upsert("R1", map[string]string{"Q1a": "1"}, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := s.Snapshot(); len(got.Questions) != 0 || len(got.Sheets) != 0 {
		t.Fatalf("expected empty aggregate, got %+v", got)
	}
	if NewMemoryStore(st, zap.NewNop()).Count() != 0 {
		t.Fatal("clear should be persisted")
	}
}

// TestMemoryStoreSnapshotIsCopy 返回的快照不应影响内部状态
func TestMemoryStoreSnapshotIsCopy(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	if _, err := s.Upsert("R1", map[string]string{"Q1a": "1"}, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	snap := s.Snapshot()
	snap.Sheets["R1"]["Q1a"] = "99"
	if s.Snapshot().Sheets["R1"]["Q1a"] != "1" {
		t.Fatal("snapshot should be a deep copy")
	}
}
