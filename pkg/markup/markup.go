// Package markup builds the small HTML fragments the rewriter hands back to
// the wiki host.
package markup

import (
	"html"
	"strings"
)

// Isolate wraps already-escaped HTML in a <bdi> element so names mixing
// left-to-right and right-to-left scripts render in their own direction.
func Isolate(innerHTML string) string {
	return "<bdi>" + innerHTML + "</bdi>"
}

// Text escapes plain text for use as element content
func Text(s string) string {
	return html.EscapeString(s)
}

// Anchor renders <a href="..." class="...">innerHTML</a>.
// The class attribute is omitted when empty; innerHTML is used verbatim.
func Anchor(href, class, innerHTML string) string {
	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(href))
	b.WriteByte('"')
	if class != "" {
		b.WriteString(` class="`)
		b.WriteString(html.EscapeString(class))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(innerHTML)
	b.WriteString("</a>")
	return b.String()
}

// JoinClasses joins class names with single spaces, skipping empty ones
func JoinClasses(classes ...string) string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}
