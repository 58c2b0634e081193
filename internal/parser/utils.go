package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	lowerCaser   = cases.Lower(language.Und)
)

// NormalizeColumnName 规范化列名：去除首尾空白与引号，全角转半角，压缩连续空白
func NormalizeColumnName(name string) string {
	name = width.Narrow.String(name)
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\t", " ")
	return whitespaceRe.ReplaceAllString(name, " ")
}

// HeaderToken 列名首个空白分隔片段的小写形式
// 例如 "1 (3.00) CO1" -> "1"，"6.a (7.00) CO1" -> "6.a"
func HeaderToken(header string) string {
	fields := strings.Fields(NormalizeColumnName(header))
	if len(fields) == 0 {
		return ""
	}
	return lowerCaser.String(fields[0])
}

// IdentitySuffix 取标识末尾 n 个字符（按 rune 计，不做全角转换），不足 n 个时返回全部
func IdentitySuffix(id string, n int) string {
	id = strings.TrimSpace(id)
	if n <= 0 {
		return id
	}
	runes := []rune(id)
	if len(runes) <= n {
		return id
	}
	return string(runes[len(runes)-n:])
}

// ContainsAll 检查文本是否同时包含全部关键词
func ContainsAll(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}
