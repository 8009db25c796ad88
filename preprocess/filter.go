package preprocess

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fencedCodeSpanRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeSpanRe = regexp.MustCompile("`[^`]*`")
	dollarQuotedRe   = regexp.MustCompile(`(?s)\$(\w*)\$.*?\$\1\$`)
	sqlKeywordRe     = regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE|MATCH|MERGE|WITH|RETURN)\b`)
)

// symbolDominanceThreshold is the non-alphanumeric rune ratio above which a
// line is considered "dominated by symbols" and dropped (spec.md §3.1).
const symbolDominanceThreshold = 0.5

// PostFilter strips residual code/query noise from translated prose before
// chunk assembly: fenced and inline code spans, SQL/query-language lines,
// symbol-dominated lines, and dollar-quoted string literals. Applied to
// every node's Text after translation so a stray placeholder or partial
// LLM echo doesn't pollute chunk text that extraction will read as prose.
func PostFilter(text string) string {
	text = fencedCodeSpanRe.ReplaceAllString(text, "")
	text = inlineCodeSpanRe.ReplaceAllString(text, "")
	text = dollarQuotedRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if sqlKeywordRe.MatchString(line) {
			continue
		}
		if isSymbolDominated(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isSymbolDominated(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	var symbols, total int
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			symbols++
		}
	}
	if total == 0 {
		return false
	}
	return float64(symbols)/float64(total) > symbolDominanceThreshold
}
