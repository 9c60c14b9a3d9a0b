package domain

import (
	"fmt"
	"time"
)

// DeliveryKind tells how a post was published.
type DeliveryKind string

const (
	DeliveryPhotos DeliveryKind = "photos"
	DeliveryText   DeliveryKind = "text"
)

// Delivery is an audit record of one publish attempt.
type Delivery struct {
	PostID     int64
	PostedAt   int64
	Kind       DeliveryKind
	Attempted  int
	Delivered  int
	Error      string
	RecordedAt time.Time
}

// MalformedFeedError is returned when the upstream answered with something
// that is not a usable post list. Body keeps the raw payload for diagnostics.
type MalformedFeedError struct {
	Reason string
	Detail string
	Body   []byte
}

func (e *MalformedFeedError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}
