package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"marksheet/internal/model"
	"marksheet/internal/parser"
)

var (
	// ErrEmptyRegNo 学号为空，无法汇总
	ErrEmptyRegNo = errors.New("register number is required")
	// ErrCorruptSnapshot 持久化快照结构不完整
	ErrCorruptSnapshot = errors.New("corrupt aggregate snapshot")
)

// ApplyUpsert 整体替换 regNo 的记录并重算题号并集，返回新汇总，不修改入参
func ApplyUpsert(agg *model.Aggregate, regNo string, marks map[string]string, total string) (*model.Aggregate, error) {
	if strings.TrimSpace(regNo) == "" {
		return nil, ErrEmptyRegNo
	}
	next := agg.Clone()

	record := make(map[string]string, len(marks)+1)
	for k, v := range marks {
		record[k] = v
	}
	if total != "" {
		record[model.TotalMarksKey] = total
	}
	next.Sheets[regNo] = record
	next.Questions = UnionQuestions(next.Sheets)
	return next, nil
}

// ApplyDelete 删除 regNo 的记录（不存在时为空操作）并重算题号并集
func ApplyDelete(agg *model.Aggregate, regNo string) *model.Aggregate {
	next := agg.Clone()
	delete(next.Sheets, regNo)
	next.Questions = UnionQuestions(next.Sheets)
	return next
}

// UnionQuestions 全部记录题号键的并集，按题号规则排序
func UnionQuestions(sheets map[string]map[string]string) []string {
	set := make(map[string]struct{})
	for _, marks := range sheets {
		for k := range marks {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	parser.SortKeys(out)
	return out
}

// EncodeSnapshot 序列化汇总快照
func EncodeSnapshot(agg *model.Aggregate) ([]byte, error) {
	if agg == nil {
		agg = model.NewAggregate()
	}
	return json.Marshal(agg)
}

type snapshotShape struct {
	Questions *[]string                     `json:"questions"`
	Sheets    *map[string]map[string]string `json:"sheets"`
}

// DecodeSnapshot 反序列化并校验快照：questions 与 sheets 两个字段必须存在
func DecodeSnapshot(data []byte) (*model.Aggregate, error) {
	var shape snapshotShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if shape.Questions == nil || shape.Sheets == nil {
		return nil, fmt.Errorf("%w: missing questions or sheets", ErrCorruptSnapshot)
	}

	agg := model.NewAggregate()
	for regNo, marks := range *shape.Sheets {
		record := make(map[string]string, len(marks))
		for k, v := range marks {
			record[k] = v
		}
		agg.Sheets[regNo] = record
	}
	agg.Questions = UnionQuestions(agg.Sheets)
	return agg, nil
}
