package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"marksheet/internal/model"
)

// TesseractEngine 离线识别引擎：gosseract 识别纯文本后按行解析
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine 创建离线引擎，languages 为空时使用 eng
func NewTesseractEngine(languages ...string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: languages, clientFactory: gosseract.NewClient}
}

// Name 引擎名称
func (e *TesseractEngine) Name() string { return "tesseract" }

// Extract 识别一张答题卡（每张图片单独创建 client）
func (e *TesseractEngine) Extract(ctx context.Context, img model.Image) (model.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return model.Extraction{}, err
	}
	if _, err := DetectMIME(img.MIME, img.Data); err != nil {
		return model.Extraction{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return model.Extraction{}, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(img.Data); err != nil {
		return model.Extraction{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return model.Extraction{}, fmt.Errorf("recognize text: %w", err)
	}
	return ParseText(text), nil
}

var (
	regNoLineRe  = regexp.MustCompile(`(?i)reg(?:ister)?\.?\s*(?:no|number)\.?\s*[:\-]?\s*([A-Za-z0-9| ]+)`)
	totalLineRe  = regexp.MustCompile(`(?i)^\s*total(?:\s*marks)?\s*[:\-=]?\s*(\d+(?:\.\d+)?)\s*$`)
	questionRe   = regexp.MustCompile(`^\s*(?:[Qq]\s*)?(\d{1,2})\s*[.:)]?\s+(.+)$`)
	markTokenRe  = regexp.MustCompile(`^(\d+(?:\.\d+)?|[-_]+)$`)
	regNoCleanRe = regexp.MustCompile(`[\s|]+`)
)

// ParseText 从识别文本中解析注册号、逐题分数与总分
// 题目行形如 "3 4 - 2"：题号后依次为 a/b/c/d 小题分数，"-" 表示空
func ParseText(text string) model.Extraction {
	var out model.Extraction
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if out.RegNo == "" {
			if m := regNoLineRe.FindStringSubmatch(line); m != nil {
				out.RegNo = strings.ToUpper(regNoCleanRe.ReplaceAllString(m[1], ""))
				continue
			}
		}
		if m := totalLineRe.FindStringSubmatch(line); m != nil {
			out.TotalMarks = m[1]
			continue
		}
		m := questionRe.FindStringSubmatch(line)
		if m == nil || seen[m[1]] {
			continue
		}
		tokens := strings.Fields(m[2])
		if len(tokens) > len(model.SubParts) {
			continue
		}
		marks := make([]string, len(model.SubParts))
		ok := true
		for i, tok := range tokens {
			if !markTokenRe.MatchString(tok) {
				ok = false
				break
			}
			if strings.Trim(tok, "-_") != "" {
				marks[i] = tok
			}
		}
		if !ok {
			continue
		}
		seen[m[1]] = true
		out.QuestionsAndMarks = append(out.QuestionsAndMarks, model.QuestionMarks{
			QuestionNumber: m[1],
			A:              marks[0],
			B:              marks[1],
			C:              marks[2],
			D:              marks[3],
		})
	}
	return Normalize(out)
}
