package text

import "regexp"

// Markdown cleanup patterns, applied in order. Link text survives, URLs and
// formatting markers do not.
var markdownPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},       // **bold**
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},           // *italic*
	{regexp.MustCompile("`([^`]+)`"), "$1"},             // `code`
	{regexp.MustCompile(`(?m)^#{1,6}\s*(.+)$`), "$1"},   // # heading
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"}, // [text](url)
	{regexp.MustCompile(`(?m)^>\s*(.+)$`), "$1"},        // > quote
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},        // - bullet
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},        // 1. numbered
}

// StripMarkdown removes markdown formatting while keeping the text content.
func StripMarkdown(s string) string {
	if s == "" {
		return s
	}

	for _, p := range markdownPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	s = multiSpace.ReplaceAllString(s, " ")

	return s
}
