package document

import (
	"regexp"
	"strings"
)

// span is a fragment of inline text with formatting resolved.
type span struct {
	Text   string
	Bold   bool
	Italic bool
	Break  bool // line break before this span
}

var inlineMarkPattern = regexp.MustCompile(`\*\*.*?\*\*|\*.*?\*`)

// parseSpans splits content with **bold** and *italic* markers into
// formatted spans. Lines are separated by break spans.
func parseSpans(content string) []span {
	var spans []span
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			spans = append(spans, span{Break: true})
		}
		if line == "" {
			continue
		}
		last := 0
		for _, loc := range inlineMarkPattern.FindAllStringIndex(line, -1) {
			if loc[0] > last {
				spans = append(spans, span{Text: line[last:loc[0]]})
			}
			mark := line[loc[0]:loc[1]]
			if strings.HasPrefix(mark, "**") {
				spans = append(spans, span{Text: mark[2 : len(mark)-2], Bold: true})
			} else {
				spans = append(spans, span{Text: mark[1 : len(mark)-1], Italic: true})
			}
			last = loc[1]
		}
		if last < len(line) {
			spans = append(spans, span{Text: line[last:]})
		}
	}
	return spans
}

// hasInlineMarks reports whether content carries markdown emphasis that
// needs run-level formatting.
func hasInlineMarks(content string) bool {
	return strings.Contains(content, "*")
}

// mdTable is a parsed markdown pipe table.
type mdTable struct {
	Headers []string
	Rows    [][]string
}

// parseMarkdownTable parses a pipe-delimited markdown table. The first
// line is the header, the second the separator; remaining lines are
// data rows. Returns nil when the input is not a table.
func parseMarkdownTable(md string) *mdTable {
	lines := strings.Split(strings.TrimSpace(md), "\n")
	if len(lines) < 2 {
		return nil
	}

	headers := splitTableRow(lines[0])
	if len(headers) == 0 {
		return nil
	}

	var rows [][]string
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "|---") {
			continue
		}
		rows = append(rows, splitTableRow(line))
	}

	return &mdTable{Headers: headers, Rows: rows}
}

// splitTableRow splits "| a | b |" into trimmed cells.
func splitTableRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	cells := make([]string, 0, len(parts)-2)
	for _, p := range parts[1 : len(parts)-1] {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// looksLikeTable reports whether a placeholder value should render as a
// markdown table rather than plain text.
func looksLikeTable(value string) bool {
	return strings.Contains(value, "|")
}
