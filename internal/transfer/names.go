// Package transfer moves sheet contents in and out of CSV and XLSX files:
// upload parsing with size caps, staged import previews, and export.
package transfer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ColumnLabel returns the spreadsheet letter label for a zero-based column:
// 0 is "A", 25 is "Z", 26 is "AA". Negative indexes yield "".
func ColumnLabel(index int) string {
	if index < 0 {
		return ""
	}
	var buf []byte
	for current := index; current >= 0; current = current/26 - 1 {
		buf = append(buf, byte('A'+current%26))
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ColumnLabels returns the labels for columns 0..n-1.
func ColumnLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = ColumnLabel(i)
	}
	return out
}

var asciiOnly = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// SafeDownloadName turns a sheet name into an ASCII file name with the
// given extension. Accents are folded, whitespace becomes '_', and any
// other character outside [A-Za-z0-9_.-] is dropped. An empty result
// falls back to "sheet".
func SafeDownloadName(sheetName, ext string) string {
	folded, _, err := transform.String(asciiOnly, sheetName)
	if err != nil {
		folded = ""
	}
	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	joined := strings.Join(strings.Fields(folded), "_")

	var b strings.Builder
	for _, r := range joined {
		if r == '_' || r == '.' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	base := strings.Trim(b.String(), "._")
	if base == "" {
		base = "sheet"
	}
	return base + "." + ext
}

// MaxWorksheetName is the longest worksheet name Excel accepts.
const MaxWorksheetName = 31

// SafeWorksheetName makes a sheet name acceptable as an Excel worksheet
// name: the characters []:*?/\ become spaces and the result is cut to 31
// characters. A blank name becomes "Sheet1".
func SafeWorksheetName(name string) string {
	candidate := strings.TrimSpace(name)
	if candidate == "" {
		candidate = "Sheet1"
	}
	candidate = strings.NewReplacer(
		"[", " ", "]", " ", ":", " ", "*", " ", "?", " ", "/", " ", "\\", " ",
	).Replace(candidate)
	if r := []rune(candidate); len(r) > MaxWorksheetName {
		candidate = string(r[:MaxWorksheetName])
	}
	return candidate
}
