package rag

import (
	"html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
)

// Pre-compiled expressions for markup stripping and whitespace collapsing.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	tripleNewline = regexp.MustCompile(`\n{3,}`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalize reduces raw fetched text (markdown, HTML or plain) to canonical
// plain text: visible text only, entities unescaped, whitespace collapsed.
// Stripping the source formatting before anything travels downstream is an
// attribution requirement of the upstream content provider. Returns "" for
// empty or whitespace-only input and never fails.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	// Search providers deliver raw content as markdown; rendering it first
	// funnels both markdown and already-HTML input through one tag stripper.
	rendered := string(markdown.ToHTML([]byte(raw), nil, nil))

	text := scriptTag.ReplaceAllString(rendered, "")
	text = styleTag.ReplaceAllString(text, "")
	text = htmlComments.ReplaceAllString(text, "")
	text = allTags.ReplaceAllString(text, "\n")
	text = html.UnescapeString(text)

	text = tripleNewline.ReplaceAllString(text, "\n\n")
	text = whitespaceRun.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
