package rag

import (
	"regexp"
	"strings"

	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Heuristics in this file are approximations. They feed metadata tags and
// display hints only, never correctness-critical branching.

// DetectLanguage classifies text as Japanese if it contains any Japanese
// script characters (hiragana, katakana, or CJK ideographs), else English.
func DetectLanguage(text string) string {
	for _, r := range text {
		if isJapaneseRune(r) {
			return domdoc.LanguageJapanese
		}
	}
	return domdoc.LanguageEnglish
}

func isJapaneseRune(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // katakana
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK ideographs
		return true
	}
	return false
}

var excelFuncPattern = regexp.MustCompile(
	`(?i)\b(VLOOKUP|XLOOKUP|HLOOKUP|INDEX|MATCH|SUMIF|SUMIFS|COUNTIF|COUNTIFS|` +
		`AVERAGEIF|IFERROR|IFS|CONCATENATE|TEXTJOIN|SUBSTITUTE|FILTER|SORT|UNIQUE|` +
		`OFFSET|INDIRECT|PIVOTBY|LAMBDA|LET)\b`,
)

// DetectExcelFunctions extracts distinct Excel function names mentioned in
// text, uppercased, in first-mention order.
func DetectExcelFunctions(text string) []string {
	matches := excelFuncPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var funcs []string
	for _, m := range matches {
		name := strings.ToUpper(m)
		if !seen[name] {
			seen[name] = true
			funcs = append(funcs, name)
		}
	}
	return funcs
}
