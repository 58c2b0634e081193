package parser

import (
	"strconv"
	"strings"

	"marksheet/internal/model"
)

// FieldMapper 花名册列映射器：把题号键映射到花名册中的列名
type FieldMapper struct {
	headers []string
	tokens  []string
	lowered []string
}

// NewFieldMapper 创建列映射器
func NewFieldMapper(headers []string) *FieldMapper {
	m := &FieldMapper{
		headers: append([]string{}, headers...),
		tokens:  make([]string, len(headers)),
		lowered: make([]string, len(headers)),
	}
	for i, h := range headers {
		m.tokens[i] = HeaderToken(h)
		m.lowered[i] = lowerCaser.String(NormalizeColumnName(h))
	}
	return m
}

// TotalColumn 总分列：首个以 total 开头（不区分大小写）的列
func (m *FieldMapper) TotalColumn() (string, bool) {
	for i, h := range m.lowered {
		if strings.HasPrefix(h, "total") {
			return m.headers[i], true
		}
	}
	return "", false
}

// QuestionCandidates 题号对应的列名候选，按优先级排列：
//  1. 裸题号 "6"（仅小题 a：不带后缀的列视为 a 小题）
//  2. "6b"
//  3. "6.b"
func QuestionCandidates(k QuestionKey) []string {
	n := strconv.Itoa(k.Number)
	out := make([]string, 0, 3)
	if k.SubPart == "a" {
		out = append(out, n)
	}
	out = append(out, n+k.SubPart)
	if k.SubPart != "" {
		out = append(out, n+"."+k.SubPart)
	}
	return out
}

// QuestionColumn 按候选优先级查找题号对应的列，同一优先级取表头中首个匹配
func (m *FieldMapper) QuestionColumn(key string) (string, bool) {
	k, ok := ParseKey(key)
	if !ok {
		return "", false
	}
	for _, want := range QuestionCandidates(k) {
		for i, tok := range m.tokens {
			if tok == want {
				return m.headers[i], true
			}
		}
	}
	return "", false
}

// Column 任意汇总键对应的列
func (m *FieldMapper) Column(key string) (string, bool) {
	if key == model.TotalMarksKey {
		return m.TotalColumn()
	}
	return m.QuestionColumn(key)
}
