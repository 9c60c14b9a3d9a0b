package vk

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"WallRelay/internal/ports"
)

// escapedIframeExpr matches players embedded in inline scripts, where the
// markup is JSON escaped: <iframe ... src=\"https:\/\/host\/embed\/id?...
var escapedIframeExpr = regexp.MustCompile(`<iframe [^>]+src=\\"([^"]+)\?`)

// PlayerResolver extracts the direct player URL from a video page.
type PlayerResolver struct{}

var _ ports.PlayerResolver = PlayerResolver{}

// NewPlayerResolver returns the default resolver.
func NewPlayerResolver() PlayerResolver {
	return PlayerResolver{}
}

// ResolvePlayerURL returns the src of the player iframe up to its query
// string. The JSON escaped markup of the inline player script is searched
// first; plain iframes are only a fallback. Backslashes are left in place for
// the caller to strip.
func (PlayerResolver) ResolvePlayerURL(page []byte) (string, bool) {
	if len(page) == 0 {
		return "", false
	}

	if match := escapedIframeExpr.FindSubmatch(page); len(match) == 2 && len(match[1]) > 0 {
		return string(match[1]), true
	}

	return iframeFromDocument(page)
}

func iframeFromDocument(page []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false
	}

	var src string
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, _ := s.Attr("src")
		base, _, hasQuery := strings.Cut(strings.TrimSpace(raw), "?")
		if !hasQuery || base == "" {
			return true
		}
		src = base
		return false
	})

	return src, src != ""
}
