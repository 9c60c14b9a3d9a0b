package domain

// Post is a single wall entry as returned by the upstream feed.
type Post struct {
	ID          int64
	CreatedAt   int64
	AuthorID    int64
	IsPinned    bool
	IsAd        bool
	Text        string
	Attachments []Attachment
}

// AttachmentKind names the supported attachment variants.
type AttachmentKind string

const (
	AttachmentLink  AttachmentKind = "link"
	AttachmentPhoto AttachmentKind = "photo"
	AttachmentVideo AttachmentKind = "video"
)

// Attachment is one of Link, Photo or Video.
type Attachment interface {
	Kind() AttachmentKind
}

// Link is an external page shared in a post.
type Link struct {
	Title string
	URL   string
}

// Photo maps resolution keys (807, 604, ...) to image URLs.
type Photo struct {
	Variants map[int]string
}

// Video references a hosted video; HasExternalPlayer is set for
// videos that play through a third-party embed (YouTube and the like).
type Video struct {
	OwnerID           int64
	VideoID           int64
	HasExternalPlayer bool
}

func (Link) Kind() AttachmentKind  { return AttachmentLink }
func (Photo) Kind() AttachmentKind { return AttachmentPhoto }
func (Video) Kind() AttachmentKind { return AttachmentVideo }

// Content is what survives extraction from a post's attachments.
type Content struct {
	Text   string
	Links  []Link
	Photos []string
	Videos []string
}

// AddLink stores url under title. A repeated title overwrites the earlier
// url but keeps its original position.
func (c *Content) AddLink(title, url string) {
	for i := range c.Links {
		if c.Links[i].Title == title {
			c.Links[i].URL = url
			return
		}
	}
	c.Links = append(c.Links, Link{Title: title, URL: url})
}

// Message is either a PhotoBurst or a TextMessage.
type Message interface {
	isMessage()
}

// PhotoBurst is sent as one photo message per URL.
type PhotoBurst struct {
	URLs []string
}

// TextMessage carries HTML formatted text.
type TextMessage struct {
	HTML string
}

func (PhotoBurst) isMessage()  {}
func (TextMessage) isMessage() {}
