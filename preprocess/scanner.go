package preprocess

import (
	"regexp"
	"strings"
)

var (
	inlineLinkRe = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	inlineBoldRe = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	inlineItalRe = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
)

// Scan turns a document body into a Node sequence. It generalizes the
// teacher's isCodeFence/isHeading/parseHeading line-oriented primitives
// (source/chunker/chunker.go's parseSections) into the typed tagged union
// SPEC_FULL.md §3.1 requires: fenced blocks are tagged Code/Mermaid/JSON/
// YAML by fence info string instead of being opaque section content, and
// list/heading/text lines are split into their own nodes rather than
// accumulated into one big "section".
func Scan(body string) []Node {
	lines := strings.Split(body, "\n")
	var nodes []Node

	var textBuf []string
	flushText := func() {
		if len(textBuf) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(textBuf, "\n"))
		if joined != "" {
			nodes = append(nodes, Node{Kind: KindText, Text: renderInline(joined), Lines: len(textBuf)})
		}
		textBuf = nil
	}

	var listBuf []string
	listOrdered := false
	flushList := func() {
		if len(listBuf) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(listBuf, "\n"))
		nodes = append(nodes, Node{Kind: KindList, Ordered: listOrdered, Text: renderInline(joined), Lines: len(listBuf)})
		listBuf = nil
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if isCodeFence(trimmed) {
			flushText()
			flushList()
			lang := fenceLang(trimmed)
			fenceMark := fenceMarker(trimmed)
			var body []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), fenceMark) {
				body = append(body, lines[i])
				i++
			}
			i++ // skip closing fence (or EOF if unterminated)
			nodes = append(nodes, Node{Kind: kindForFence(lang), Lang: lang, Text: strings.Join(body, "\n"), Lines: len(body)})
			continue
		}

		if isHeading(trimmed) {
			flushText()
			flushList()
			level, text := parseHeading(trimmed)
			nodes = append(nodes, Node{Kind: KindHeading, Level: level, Text: renderInline(text), Lines: 1})
			i++
			continue
		}

		if ordered, isList := listItem(trimmed); isList {
			flushText()
			if len(listBuf) > 0 && listOrdered != ordered {
				flushList()
			}
			listOrdered = ordered
			listBuf = append(listBuf, line)
			i++
			continue
		}

		flushList()
		if trimmed == "" {
			flushText()
		} else {
			textBuf = append(textBuf, line)
		}
		i++
	}
	flushText()
	flushList()

	return nodes
}

func isCodeFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func fenceMarker(trimmed string) string {
	if strings.HasPrefix(trimmed, "```") {
		return "```"
	}
	return "~~~"
}

func fenceLang(trimmed string) string {
	marker := fenceMarker(trimmed)
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, marker)))
}

func kindForFence(lang string) NodeKind {
	switch lang {
	case "mermaid":
		return KindMermaid
	case "json":
		return KindJSON
	case "yaml", "yml":
		return KindYAML
	case "":
		return KindOther
	default:
		return KindCode
	}
}

func isHeading(trimmed string) bool {
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	level := 0
	for _, ch := range trimmed {
		if ch == '#' {
			level++
			continue
		}
		break
	}
	return level <= 6 && (len(trimmed) == level || trimmed[level] == ' ')
}

func parseHeading(trimmed string) (int, string) {
	level := 0
	for _, ch := range trimmed {
		if ch == '#' {
			level++
		} else {
			break
		}
	}
	if level > 6 {
		level = 6
	}
	text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	return level, text
}

var listItemRe = regexp.MustCompile(`^(\d+)\.\s+`)

func listItem(trimmed string) (ordered bool, ok bool) {
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ") {
		return false, true
	}
	if listItemRe.MatchString(trimmed) {
		return true, true
	}
	return false, false
}

// renderInline strips markdown inline formatting to plain text: bold/italic
// markers drop, links keep their link text and drop the URL (spec.md §3.1).
func renderInline(s string) string {
	s = inlineLinkRe.ReplaceAllString(s, "$1")
	s = inlineBoldRe.ReplaceAllString(s, "$1$2")
	s = inlineItalRe.ReplaceAllString(s, "$1$2")
	return s
}
