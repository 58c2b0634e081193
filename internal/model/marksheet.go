package model

import "strings"

// TotalMarksKey 总分保留键（在题号排序中恒为最后）
const TotalMarksKey = "TotalMarks"

// TotalMarksLabel 导出表头中总分列的展示名称
const TotalMarksLabel = "Total Marks"

// SubParts 每道题允许的小题标识
var SubParts = []string{"a", "b", "c", "d"}

// QuestionMarks OCR 返回的单道题分数（小题 a-d 可选）
type QuestionMarks struct {
	QuestionNumber string `json:"questionNumber"`
	A              string `json:"a,omitempty"`
	B              string `json:"b,omitempty"`
	C              string `json:"c,omitempty"`
	D              string `json:"d,omitempty"`
}

// SubPartMark 返回指定小题的分数
func (q QuestionMarks) SubPartMark(part string) string {
	switch part {
	case "a":
		return q.A
	case "b":
		return q.B
	case "c":
		return q.C
	case "d":
		return q.D
	}
	return ""
}

// HasAnyMark 是否存在任一非空小题分数（仅含空白视为空）
func (q QuestionMarks) HasAnyMark() bool {
	for _, p := range SubParts {
		if strings.TrimSpace(q.SubPartMark(p)) != "" {
			return true
		}
	}
	return false
}

// Extraction OCR 抽取结果（外部协作方输出契约）
type Extraction struct {
	RegNo             string          `json:"regNo"`
	QuestionsAndMarks []QuestionMarks `json:"questionsAndMarks"`
	TotalMarks        string          `json:"totalMarks,omitempty"`
}

// SubPartCount 统计非空小题分数个数
func (e Extraction) SubPartCount() int {
	n := 0
	for _, q := range e.QuestionsAndMarks {
		for _, p := range SubParts {
			if q.SubPartMark(p) != "" {
				n++
			}
		}
	}
	return n
}

// SheetMark 复核表中的单行：题号键 + 识别分数 + 修正分数
type SheetMark struct {
	Question      string `json:"question"`
	ExtractedMark string `json:"extractedMark"`
	CorrectedMark string `json:"correctedMark"`
}

// EffectiveMark 有效分数：修正值非空时取修正值，否则取识别值
func (m SheetMark) EffectiveMark() string {
	return effective(m.CorrectedMark, m.ExtractedMark)
}

// SheetRecord 单张答题卡的复核记录
type SheetRecord struct {
	RegNo               string      `json:"regNo"`
	Marks               []SheetMark `json:"marks"`
	ExtractedTotalMarks string      `json:"extractedTotalMarks,omitempty"`
	CorrectedTotalMarks string      `json:"correctedTotalMarks,omitempty"`
}

// EffectiveTotal 有效总分
func (s *SheetRecord) EffectiveTotal() string {
	return effective(s.CorrectedTotalMarks, s.ExtractedTotalMarks)
}

// EffectiveMarks 汇总为 题号键 -> 有效分数（空分数同样保留，用于人工补录后的表头）
func (s *SheetRecord) EffectiveMarks() map[string]string {
	out := make(map[string]string, len(s.Marks))
	for _, m := range s.Marks {
		out[m.Question] = m.EffectiveMark()
	}
	return out
}

// Aggregate 汇总数据：全部题号键 + 学号 -> 稀疏分数表
type Aggregate struct {
	Questions []string                     `json:"questions"`
	Sheets    map[string]map[string]string `json:"sheets"`
}

// NewAggregate 创建空汇总
func NewAggregate() *Aggregate {
	return &Aggregate{
		Questions: []string{},
		Sheets:    make(map[string]map[string]string),
	}
}

// Clone 深拷贝
func (a *Aggregate) Clone() *Aggregate {
	out := &Aggregate{
		Questions: append([]string{}, a.Questions...),
		Sheets:    make(map[string]map[string]string, len(a.Sheets)),
	}
	for regNo, marks := range a.Sheets {
		cp := make(map[string]string, len(marks))
		for k, v := range marks {
			cp[k] = v
		}
		out.Sheets[regNo] = cp
	}
	return out
}

// Count 已汇总答题卡数量
func (a *Aggregate) Count() int {
	return len(a.Sheets)
}

func effective(corrected, extracted string) string {
	if strings.TrimSpace(corrected) != "" {
		return corrected
	}
	return extracted
}
