package parser

import (
	"sort"
	"strings"

	"marksheet/internal/model"
)

// MapExtraction 将 OCR 抽取结果转换为待复核的答题卡记录
//   - 每个非空小题生成一行 Q{n}{p}
//   - 某题所有小题均为空时，补一行空的 Q{n}a 供人工录入
//   - 修正值初始化为识别值
func MapExtraction(e model.Extraction) *model.SheetRecord {
	marks := make([]model.SheetMark, 0, len(e.QuestionsAndMarks))
	seen := make(map[string]int)

	add := func(question, mark string) {
		if idx, ok := seen[question]; ok {
			// 同一题号重复出现时，只用非空分数补齐此前的空行
			if marks[idx].ExtractedMark == "" && mark != "" {
				marks[idx].ExtractedMark = mark
				marks[idx].CorrectedMark = mark
			}
			return
		}
		seen[question] = len(marks)
		marks = append(marks, model.SheetMark{
			Question:      question,
			ExtractedMark: mark,
			CorrectedMark: mark,
		})
	}

	for _, qm := range e.QuestionsAndMarks {
		number := strings.TrimSpace(qm.QuestionNumber)
		if number == "" {
			continue
		}
		if !qm.HasAnyMark() {
			add(FormatKey(number, "a"), "")
			continue
		}
		for _, p := range model.SubParts {
			if v := strings.TrimSpace(qm.SubPartMark(p)); v != "" {
				add(FormatKey(number, p), v)
			}
		}
	}

	sort.SliceStable(marks, func(i, j int) bool {
		return CompareKeys(marks[i].Question, marks[j].Question) < 0
	})

	total := strings.TrimSpace(e.TotalMarks)
	return &model.SheetRecord{
		RegNo:               strings.TrimSpace(e.RegNo),
		Marks:               marks,
		ExtractedTotalMarks: total,
		CorrectedTotalMarks: total,
	}
}
