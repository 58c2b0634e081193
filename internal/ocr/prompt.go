package ocr

// ExtractionPrompt 答题卡抽取提示词
const ExtractionPrompt = `You are an expert in optical character recognition (OCR) from mark sheets.
The marksheet has question numbers (typically from 1 up to 34, always returned as a string). Each question number may have sub-parts labeled 'a', 'b', 'c' and 'd'.
Identify and extract:
1. The register number (often labeled "Reg. No." or "Register Number"), usually at the top of the sheet. If its characters are written in separate boxes (e.g. J | E | C | 2 | 4 | A | D | 0 | 1 | 6), concatenate them into one string such as "JEC24AD016".
2. For each main question number visible on the sheet, the marks awarded for sub-parts 'a', 'b', 'c' and 'd'. Record a red numerical mark in the matching field. Leave a field empty when the sub-part is empty, not attempted or absent.
3. The "Total Marks" value, usually written at the bottom or side of the table, as a numerical string. Leave it empty if not found.

Respond with JSON only, in exactly this shape:
{"regNo": "...", "questionsAndMarks": [{"questionNumber": "1", "a": "", "b": "", "c": "", "d": ""}], "totalMarks": ""}
A question with no discernible marks may be omitted or returned with all sub-parts empty. All marks are strings. Double-check the register number, every sub-part mark and the total.`

// VerificationPrompt 复核提示词：逐题判断识别分数是否准确
const VerificationPrompt = `You are an expert at verifying marks extracted from mark sheets.
You receive a list of questions with the extracted mark for each. Check every mark for accuracy.
If a mark is correct, set "isAccurate" to true and leave "correctedMark" empty. If it is incorrect, set "isAccurate" to false and give the corrected mark in "correctedMark".
Respond with JSON only: {"items": [{"question": "Q1a", "extractedMark": "5", "correctedMark": "", "isAccurate": true}]}`
