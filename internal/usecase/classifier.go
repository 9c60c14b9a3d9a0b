package usecase

import (
	"log/slog"

	"WallRelay/internal/domain"
)

// SkipReason explains why a post was not relayed.
type SkipReason string

const (
	SkipPinned        SkipReason = "pinned"
	SkipWatermark     SkipReason = "watermark"
	SkipForeignAuthor SkipReason = "foreign_author"
	SkipAdvertisement SkipReason = "advertisement"
	SkipAlreadySent   SkipReason = "already_sent"
)

// Skip is a post rejected by the classifier.
type Skip struct {
	PostID int64
	Reason SkipReason
}

// Classification is the outcome of one pass over a fetched page.
type Classification struct {
	Accepted []domain.Post
	Skipped  []Skip
	// StoppedAt is the index of the post that hit the watermark, or -1.
	StoppedAt int
	// Candidate is the new watermark, valid only when HasCandidate is set.
	Candidate    int64
	HasCandidate bool
}

// Classifier decides which fetched posts are new. It expects pages sorted
// newest first.
type Classifier struct {
	groupID int64
	logger  *slog.Logger
}

// NewClassifier binds the classifier to the community whose own posts are relayed.
func NewClassifier(groupID int64, log *slog.Logger) *Classifier {
	return &Classifier{groupID: groupID, logger: log}
}

// Classify applies the rules in fixed order: pinned, watermark stop,
// candidate watermark, foreign author, advertisement, recency. Accepted
// posts are registered in cursor.Recent before being returned; the
// watermark itself is left for the caller to commit.
func (c *Classifier) Classify(cursor *domain.Cursor, posts []domain.Post) Classification {
	result := Classification{StoppedAt: -1}

	for i, post := range posts {
		if post.IsPinned {
			result.skip(c, post, SkipPinned)
			continue
		}

		if post.CreatedAt <= cursor.LastWatermark {
			c.debug("skip post", "reason", SkipWatermark, "id", post.ID, "date", post.CreatedAt)
			result.Skipped = append(result.Skipped, Skip{PostID: post.ID, Reason: SkipWatermark})
			result.StoppedAt = i
			break
		}

		if !result.HasCandidate {
			c.debug("set new last post date", "date", post.CreatedAt)
			result.Candidate = post.CreatedAt
			result.HasCandidate = true
		}

		if post.AuthorID != c.groupID {
			result.skip(c, post, SkipForeignAuthor)
			continue
		}

		if post.IsAd {
			result.skip(c, post, SkipAdvertisement)
			continue
		}

		if cursor.Recent.Contains(post.ID) {
			result.skip(c, post, SkipAlreadySent)
			continue
		}

		cursor.Recent.Push(post.ID)
		result.Accepted = append(result.Accepted, post)
	}

	return result
}

func (r *Classification) skip(c *Classifier, post domain.Post, reason SkipReason) {
	c.debug("skip post", "reason", reason, "id", post.ID)
	r.Skipped = append(r.Skipped, Skip{PostID: post.ID, Reason: reason})
}

func (c *Classifier) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
