package ocr

import (
	"errors"
	"testing"

	"marksheet/internal/model"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		in   model.Extraction
		ok   bool
	}{
		{"marks", model.Extraction{RegNo: "JEC23AD016", QuestionsAndMarks: []model.QuestionMarks{{QuestionNumber: "1", A: "5"}}}, true},
		{"total only", model.Extraction{RegNo: "JEC23AD016", TotalMarks: "40"}, true},
		{"no reg no", model.Extraction{QuestionsAndMarks: []model.QuestionMarks{{QuestionNumber: "1", A: "5"}}, TotalMarks: "5"}, false},
		{"blank reg no", model.Extraction{RegNo: "  ", TotalMarks: "5"}, false},
		{"nothing extracted", model.Extraction{RegNo: "JEC23AD016", QuestionsAndMarks: []model.QuestionMarks{{QuestionNumber: "7"}}}, false},
	}
	for _, tc := range cases {
		err := Validate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrUnusableExtraction) {
			t.Fatalf("%s: err = %v, want ErrUnusableExtraction", tc.name, err)
		}
	}
}

func TestDetectMIME(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got, err := DetectMIME("", png); err != nil || got != "image/png" {
		t.Fatalf("sniffed = %q err=%v", got, err)
	}
	if got, err := DetectMIME("image/jpeg; charset=binary", nil); err != nil || got != "image/jpeg" {
		t.Fatalf("declared = %q err=%v", got, err)
	}
	if _, err := DetectMIME("text/csv", []byte("a,b")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
	if _, err := DetectMIME("", []byte("hello world")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage for sniffed text", err)
	}
}

func TestDecodeLLMJSONCodeFence(t *testing.T) {
	content := "Here you go:\n```json\n{\"regNo\":\"JEC23AD016\",\"questionsAndMarks\":[{\"questionNumber\":\"1\",\"a\":\"5\"}]}\n```"
	var e model.Extraction
	if err := DecodeLLMJSON(content, &e); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if e.RegNo != "JEC23AD016" || len(e.QuestionsAndMarks) != 1 || e.QuestionsAndMarks[0].A != "5" {
		t.Fatalf("decoded = %+v", e)
	}
	if err := DecodeLLMJSON("   ", &e); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestNormalizeDropsBlankQuestions(t *testing.T) {
	got := Normalize(model.Extraction{
		RegNo: " JEC23AD016 ",
		QuestionsAndMarks: []model.QuestionMarks{
			{QuestionNumber: " ", A: "1"},
			{QuestionNumber: "2", B: " 4 "},
		},
	})
	if got.RegNo != "JEC23AD016" || len(got.QuestionsAndMarks) != 1 || got.QuestionsAndMarks[0].B != "4" {
		t.Fatalf("normalized = %+v", got)
	}
}

func TestParseText(t *testing.T) {
	text := `MODEL EXAMINATION
Reg. No: J E C 2 3 A D 0 1 6
Q.No a b c d
1 5 3
2 - 4
7
3 2 2 1 1
Total Marks: 18`
	e := ParseText(text)
	if e.RegNo != "JEC23AD016" {
		t.Fatalf("regNo = %q", e.RegNo)
	}
	if e.TotalMarks != "18" {
		t.Fatalf("total = %q", e.TotalMarks)
	}
	if len(e.QuestionsAndMarks) != 3 {
		t.Fatalf("questions = %+v", e.QuestionsAndMarks)
	}
	q2 := e.QuestionsAndMarks[1]
	if q2.QuestionNumber != "2" || q2.A != "" || q2.B != "4" {
		t.Fatalf("q2 = %+v", q2)
	}
	if e.SubPartCount() != 7 {
		t.Fatalf("sub parts = %d, want 7", e.SubPartCount())
	}
	if err := Validate(e); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
