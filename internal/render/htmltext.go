package render

import (
	"html"
	"regexp"
	"strings"
)

// Task descriptions arrive as HTML fragments. Calendar DESCRIPTION
// properties want plain text, so the markup is flattened: structural
// tags become newlines, anchors keep their target visible, everything
// else is stripped.
var (
	reBreak     = regexp.MustCompile(`(?i)<br\s*/?>`)
	reParaOpen  = regexp.MustCompile(`(?i)<p[^>]*>`)
	reParaClose = regexp.MustCompile(`(?i)</p>`)
	reDivOpen   = regexp.MustCompile(`(?i)<div[^>]*>`)
	reDivClose  = regexp.MustCompile(`(?i)</div>`)
	reAnchor    = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']*)["'][^>]*>(.*?)</a>`)
	reTag       = regexp.MustCompile(`<[^>]+>`)
	reBlankRuns = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText converts an HTML fragment into plain text suitable for an
// iCalendar DESCRIPTION value.
func HTMLToText(fragment string) string {
	if fragment == "" {
		return ""
	}

	text := reBreak.ReplaceAllString(fragment, "\n")
	text = reParaOpen.ReplaceAllString(text, "\n\n")
	text = reParaClose.ReplaceAllString(text, "")
	text = reDivOpen.ReplaceAllString(text, "\n")
	text = reDivClose.ReplaceAllString(text, "")
	text = reAnchor.ReplaceAllString(text, "$2 ($1)")
	text = reTag.ReplaceAllString(text, "")

	// Decode entities only after markup is gone, so literal text like
	// "&lt;c&gt;" survives instead of turning into a strippable tag.
	text = html.UnescapeString(text)

	// Collapse runs of blank lines to at most one blank line.
	text = reBlankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
