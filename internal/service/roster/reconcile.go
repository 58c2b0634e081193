package roster

import (
	"sort"

	"marksheet/internal/model"
	"marksheet/internal/parser"
)

// Reconcile 将汇总分数写回花名册（纯函数：不修改 rows 与 agg，返回行副本）
//
// 每行按学号列末尾 SuffixLength 个字符匹配汇总中的注册号，
// 注册号按字典序扫描，取首个后缀相同者；匹配后仅覆盖值不同且非空的单元格。
// 一行无论改了几个单元格，只计一次 UpdatedCount。
func Reconcile(rows []model.RosterRow, headers []string, agg *model.Aggregate, opts Options) ([]model.RosterRow, *model.MergeReport) {
	opts = opts.withDefaults()
	if agg == nil {
		agg = model.NewAggregate()
	}

	report := &model.MergeReport{
		TotalRows:     len(rows),
		UnmatchedRows: []string{},
		Collisions:    []model.Collision{},
		UnmappedKeys:  []model.UnmappedKey{},
	}

	index := buildSuffixIndex(agg, opts.SuffixLength)
	mapper := parser.NewFieldMapper(headers)
	unmapped := make(map[model.UnmappedKey]bool)

	out := make([]model.RosterRow, len(rows))
	for i, row := range rows {
		updated := row.Clone()
		out[i] = updated

		id, ok := row[opts.IdentityHeader]
		if !ok || id == "" {
			continue
		}

		candidates := index[parser.IdentitySuffix(id, opts.SuffixLength)]
		if len(candidates) == 0 {
			report.UnmatchedRows = append(report.UnmatchedRows, id)
			continue
		}
		regNo := candidates[0]
		if len(candidates) > 1 {
			report.Collisions = append(report.Collisions, model.Collision{
				AdmissionNo: id,
				Chosen:      regNo,
				Candidates:  append([]string{}, candidates...),
			})
		}
		report.MatchedRows++

		changed := false
		marks := agg.Sheets[regNo]
		for _, key := range sortedSheetKeys(marks) {
			value := marks[key]
			if value == "" {
				continue
			}
			col, found := mapper.Column(key)
			if !found {
				uk := model.UnmappedKey{RegNo: regNo, Question: key}
				if !unmapped[uk] {
					unmapped[uk] = true
					report.UnmappedKeys = append(report.UnmappedKeys, uk)
				}
				continue
			}
			if updated[col] != value {
				updated[col] = value
				changed = true
			}
		}
		if changed {
			report.UpdatedCount++
		}
	}

	return out, report
}

// buildSuffixIndex 后缀 -> 注册号列表（字典序）
func buildSuffixIndex(agg *model.Aggregate, n int) map[string][]string {
	regNos := make([]string, 0, len(agg.Sheets))
	for regNo := range agg.Sheets {
		regNos = append(regNos, regNo)
	}
	sort.Strings(regNos)

	index := make(map[string][]string, len(regNos))
	for _, regNo := range regNos {
		suffix := parser.IdentitySuffix(regNo, n)
		index[suffix] = append(index[suffix], regNo)
	}
	return index
}

func sortedSheetKeys(marks map[string]string) []string {
	keys := make([]string, 0, len(marks))
	for k := range marks {
		keys = append(keys, k)
	}
	parser.SortKeys(keys)
	return keys
}
