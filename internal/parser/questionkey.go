package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"marksheet/internal/model"
)

// QuestionKey 题号键解析结果：大题号 + 小题（a-d，可为空）
type QuestionKey struct {
	Number  int
	SubPart string
}

// String 规范形式，例如 Q6b
func (k QuestionKey) String() string {
	return "Q" + strconv.Itoa(k.Number) + k.SubPart
}

var questionKeyRe = regexp.MustCompile(`^[A-Za-z]*\s*(\d+)\s*\.?\s*([a-dA-D]?)$`)

// ParseKey 解析题号键，支持 "Q1a" / "6.b" / "6b" / "1"
// TotalMarks 以及无法识别的字符串返回 ok=false
func ParseKey(key string) (QuestionKey, bool) {
	key = strings.TrimSpace(key)
	if key == "" || key == model.TotalMarksKey {
		return QuestionKey{}, false
	}
	m := questionKeyRe.FindStringSubmatch(key)
	if m == nil {
		return QuestionKey{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return QuestionKey{}, false
	}
	return QuestionKey{Number: n, SubPart: strings.ToLower(m[2])}, true
}

// FormatKey 由大题号和小题生成题号键
func FormatKey(questionNumber string, subPart string) string {
	return "Q" + strings.TrimSpace(questionNumber) + subPart
}

// keyRank 排序分组：数字题号 < 其他字符串 < TotalMarks
func keyRank(key string) (QuestionKey, int) {
	if key == model.TotalMarksKey {
		return QuestionKey{}, 2
	}
	if k, ok := ParseKey(key); ok {
		return k, 0
	}
	return QuestionKey{}, 1
}

// CompareKeys 题号键比较：大题号升序，其次小题字典序（空在 a 之前），TotalMarks 恒为最大
// 解析结果相同但文本不同的键按原文比较，保证全序
func CompareKeys(a, b string) int {
	if a == b {
		return 0
	}
	ka, ra := keyRank(a)
	kb, rb := keyRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ra == 0 {
		if ka.Number != kb.Number {
			if ka.Number < kb.Number {
				return -1
			}
			return 1
		}
		if c := strings.Compare(ka.SubPart, kb.SubPart); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// SortKeys 原地稳定排序
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		return CompareKeys(keys[i], keys[j]) < 0
	})
}

// SortedKeys 返回排序后的副本，不修改入参
func SortedKeys(keys []string) []string {
	out := append([]string{}, keys...)
	SortKeys(out)
	return out
}
