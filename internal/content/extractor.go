package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"WallRelay/internal/domain"
	"WallRelay/internal/ports"
)

// PhotoPreference is the order in which photo resolutions are probed.
var PhotoPreference = []int{807, 800, 604, 1280}

const videoURLFormat = "https://vk.com/video%d_%d"

// Extractor turns post attachments into links, photo and video URLs.
type Extractor struct {
	pages    ports.PageFetcher
	resolver ports.PlayerResolver
	logger   *slog.Logger
}

// NewExtractor wires the page fetcher and player resolver used for videos
// with external players. Either may be nil, in which case such videos keep
// their canonical link.
func NewExtractor(pages ports.PageFetcher, resolver ports.PlayerResolver, log *slog.Logger) *Extractor {
	return &Extractor{pages: pages, resolver: resolver, logger: log}
}

// Extract walks attachments in order. It never fails: unresolvable videos
// degrade to their canonical URL and photos without a known size are dropped.
func (e *Extractor) Extract(ctx context.Context, post domain.Post) domain.Content {
	out := domain.Content{Text: post.Text}

	for _, att := range post.Attachments {
		switch a := att.(type) {
		case domain.Link:
			out.AddLink(a.Title, a.URL)
		case domain.Photo:
			if u, ok := BestPhoto(a); ok {
				out.Photos = append(out.Photos, u)
			}
		case domain.Video:
			out.Videos = append(out.Videos, e.videoURL(ctx, post.ID, a))
		}
	}

	return out
}

// BestPhoto picks the first available resolution from PhotoPreference.
func BestPhoto(p domain.Photo) (string, bool) {
	for _, size := range PhotoPreference {
		if u, ok := p.Variants[size]; ok && u != "" {
			return u, true
		}
	}
	return "", false
}

// CanonicalVideoURL is the public page of a hosted video.
func CanonicalVideoURL(v domain.Video) string {
	return fmt.Sprintf(videoURLFormat, v.OwnerID, v.VideoID)
}

func (e *Extractor) videoURL(ctx context.Context, postID int64, v domain.Video) string {
	link := CanonicalVideoURL(v)
	if !v.HasExternalPlayer || e.pages == nil || e.resolver == nil {
		return link
	}

	page, err := e.pages.FetchPage(ctx, link)
	if err != nil {
		e.warn("video page fetch failed, using canonical link", "id", postID, "video", link, "error", err)
		return link
	}

	direct, ok := e.resolver.ResolvePlayerURL(page)
	if !ok {
		e.warn("player not found on video page, using canonical link", "id", postID, "video", link)
		return link
	}

	return strings.ReplaceAll(direct, `\`, "")
}

func (e *Extractor) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
