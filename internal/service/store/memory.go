package store

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"marksheet/internal/model"
	kv "marksheet/internal/store"
)

// SnapshotKey 汇总快照在键值存储中的固定键名
const SnapshotKey = "markSheetData"

// Persister 进程级键值存储
type Persister interface {
	GetSnapshot(key string) ([]byte, error)
	PutSnapshot(key string, value []byte) error
	DeleteSnapshot(key string) error
}

// MemoryStore 汇总数据存储：内存中持有当前汇总，每次修改后同步写入整份快照
type MemoryStore struct {
	persister Persister
	logger    *zap.Logger

	data *model.Aggregate
	mu   sync.RWMutex
}

// NewMemoryStore 创建汇总存储并加载已持久化的快照
func NewMemoryStore(persister Persister, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{
		persister: persister,
		logger:    logger,
		data:      model.NewAggregate(),
	}
	s.Load()
	return s
}

// Load 从键值存储加载快照；缺失或损坏时重置为空汇总（仅记录日志）
func (s *MemoryStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = model.NewAggregate()
	if s.persister == nil {
		return
	}

	raw, err := s.persister.GetSnapshot(SnapshotKey)
	if err != nil {
		if !errors.Is(err, kv.ErrSnapshotNotFound) {
			s.logger.Error("load aggregate snapshot", zap.Error(err))
		}
		return
	}

	agg, err := DecodeSnapshot(raw)
	if err != nil {
		s.logger.Warn("discard corrupt aggregate snapshot", zap.Error(err))
		if derr := s.persister.DeleteSnapshot(SnapshotKey); derr != nil {
			s.logger.Error("delete corrupt aggregate snapshot", zap.Error(derr))
		}
		return
	}
	s.data = agg
	s.logger.Info("aggregate snapshot loaded",
		zap.Int("sheets", agg.Count()),
		zap.Int("questions", len(agg.Questions)),
	)
}

// Snapshot 当前汇总的副本
func (s *MemoryStore) Snapshot() *model.Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Has 是否已汇总该学号
func (s *MemoryStore) Has(regNo string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data.Sheets[regNo]
	return ok
}

// Count 已汇总答题卡数量
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Count()
}

// Upsert 写入（整体替换）一张答题卡的有效分数
func (s *MemoryStore) Upsert(regNo string, marks map[string]string, total string) (*model.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := ApplyUpsert(s.data, regNo, marks, total)
	if err != nil {
		return nil, err
	}
	if err := s.persistLocked(next); err != nil {
		return nil, err
	}
	s.data = next
	s.logger.Info("sheet finalized", zap.String("reg_no", regNo), zap.Int("sheets", next.Count()))
	return next.Clone(), nil
}

// Delete 删除一张答题卡（不存在时为空操作）
func (s *MemoryStore) Delete(regNo string) (*model.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := ApplyDelete(s.data, regNo)
	if err := s.persistLocked(next); err != nil {
		return nil, err
	}
	s.data = next
	s.logger.Info("sheet deleted", zap.String("reg_no", regNo), zap.Int("sheets", next.Count()))
	return next.Clone(), nil
}

// Clear 清空全部汇总数据（不可恢复）
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.DeleteSnapshot(SnapshotKey); err != nil {
			return err
		}
	}
	s.data = model.NewAggregate()
	s.logger.Warn("aggregate cleared")
	return nil
}

func (s *MemoryStore) persistLocked(agg *model.Aggregate) error {
	if s.persister == nil {
		return nil
	}
	raw, err := EncodeSnapshot(agg)
	if err != nil {
		return err
	}
	return s.persister.PutSnapshot(SnapshotKey, raw)
}
