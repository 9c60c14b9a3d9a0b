package domain

import "slices"

// DefaultRecentCapacity is how many post IDs the cursor remembers.
const DefaultRecentCapacity = 20

// RecencySet is a fixed-size FIFO of the last inserted IDs.
// Duplicates occupy their own slots.
type RecencySet struct {
	capacity int
	ids      []int64
}

// NewRecencySet returns an empty set; capacity below 1 is raised to 1.
func NewRecencySet(capacity int) *RecencySet {
	if capacity < 1 {
		capacity = 1
	}
	return &RecencySet{capacity: capacity, ids: make([]int64, 0, capacity)}
}

// Push appends id, evicting the oldest entries once capacity is reached.
func (s *RecencySet) Push(id int64) {
	for len(s.ids) >= s.capacity {
		s.ids = s.ids[1:]
	}
	s.ids = append(s.ids, id)
}

func (s *RecencySet) Contains(id int64) bool {
	return slices.Contains(s.ids, id)
}

func (s *RecencySet) Len() int {
	return len(s.ids)
}

func (s *RecencySet) Capacity() int {
	return s.capacity
}

// IDs returns a copy of the stored IDs, oldest first.
func (s *RecencySet) IDs() []int64 {
	return slices.Clone(s.ids)
}

// Cursor is the relay position: everything at or before LastWatermark is
// considered handled, Recent guards against repeats inside that window.
type Cursor struct {
	LastWatermark int64
	Recent        *RecencySet
}

// NewCursor builds a cursor with an empty recency set.
func NewCursor(watermark int64, capacity int) *Cursor {
	return &Cursor{LastWatermark: watermark, Recent: NewRecencySet(capacity)}
}

// Advance moves the watermark forward. It reports false and keeps the
// current value when ts is not newer.
func (c *Cursor) Advance(ts int64) bool {
	if ts <= c.LastWatermark {
		return false
	}
	c.LastWatermark = ts
	return true
}
