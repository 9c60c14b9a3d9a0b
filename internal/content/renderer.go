package content

import (
	"fmt"
	"html"
	"strings"

	"WallRelay/internal/domain"
)

const anchorLine = "\n<a href='%s'>%s</a>\n"

// Render composes the outgoing message for extracted content. The second
// result is false when there is nothing to publish.
//
// A post without text but with photos becomes a PhotoBurst and loses its
// videos; everything else becomes a single HTML text message.
func Render(c domain.Content) (domain.Message, bool) {
	if c.Text == "" && len(c.Photos) > 0 {
		urls := make([]string, len(c.Photos))
		copy(urls, c.Photos)
		return domain.PhotoBurst{URLs: urls}, true
	}

	var b strings.Builder
	b.WriteString(html.EscapeString(c.Text))

	for _, link := range c.Links {
		writeAnchor(&b, link.URL, link.Title)
	}
	for _, u := range c.Photos {
		writeAnchor(&b, u, u)
	}
	for _, u := range c.Videos {
		writeAnchor(&b, u, u)
	}

	if b.Len() == 0 {
		return nil, false
	}

	return domain.TextMessage{HTML: b.String()}, true
}

func writeAnchor(b *strings.Builder, href, label string) {
	fmt.Fprintf(b, anchorLine, html.EscapeString(href), html.EscapeString(label))
}
