// Package sanitize turns platform-rendered comment HTML into plain text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// Only complete references are decoded; html.UnescapeString alone would
	// also expand legacy prefixes such as "&not" inside "&notanentity;".
	entityRe = regexp.MustCompile(`&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
	// Escaped markup such as "&lt;b&gt;" decodes into a tag. Only well-formed
	// tags of common elements are dropped so that text like "<b and c>" stays.
	decodedTagRe = regexp.MustCompile(`(?i)</?(?:a|abbr|b|br|code|del|div|em|h[1-6]|hr|i|iframe|img|li|ol|p|pre|s|script|small|span|strike|strong|style|sub|sup|u|ul)(?:\s+[A-Za-z_:][-A-Za-z0-9_:.]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>]+))*\s*/?>`)

	lineEdgeRe   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
	spacesRe     = regexp.MustCompile(`[ \t]+`)
)

// Text converts line-break tags to newlines, strips remaining markup,
// decodes HTML entities and collapses redundant whitespace. Entities that
// are not recognised are left as they are.
func Text(s string) string {
	if s == "" {
		return ""
	}

	out := decodeEntities(stripMarkup(s))
	out = decodedTagRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "\u00a0", " ")
	out = strings.ReplaceAll(out, "\r\n", "\n")

	out = lineEdgeRe.ReplaceAllString(out, "\n")
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	out = spacesRe.ReplaceAllString(out, " ")

	return strings.TrimSpace(out)
}

// stripMarkup keeps the raw, still-escaped text between tags and turns
// <br> into a newline.
func stripMarkup(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}

func decodeEntities(s string) string {
	return entityRe.ReplaceAllStringFunc(s, func(ref string) string {
		decoded := html.UnescapeString(ref)
		// A partial match leaves the reference's trailing ';' behind.
		if len(decoded) > 1 && strings.HasSuffix(decoded, ";") {
			return ref
		}
		return decoded
	})
}

// Truncate caps s at limit runes, appending "..." when it was cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
