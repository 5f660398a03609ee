package util

import (
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\uFEFF"

// Smart quotes and other Windows-1252 leftovers that show up in scraped
// review text, mapped to plain equivalents.
var charReplacementMap = map[string]string{
	"‘": "'", "’": "'", "“": "\"",
	"”": "\"", "–": "-", "—": "--",
	"…": "...", " ": " ", "": "-",
	"": "--", "": "'", "": "'",
	"": "\"", "": "\"",
}

// CleanText normalizes a scraped or archived text field: strips any BOM,
// replaces invalid UTF-8 sequences, and swaps typographic punctuation for
// plain ASCII so embeddings and keyword matching see consistent input.
func CleanText(s string) string {
	s = strings.TrimPrefix(s, utf8BOM)

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}

	for bad, good := range charReplacementMap {
		s = strings.ReplaceAll(s, bad, good)
	}
	return s
}
