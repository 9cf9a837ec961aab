package feed

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tesso57/feedrelay/internal/domain/reading"
)

// historyFactor bounds the seen history relative to the longest feed observed.
const historyFactor = 3

// seenItems remembers the keys of items a job has already delivered, across
// polls. Keys of the current feed are always the most recent entries; older
// keys are evicted first once the history outgrows historyFactor times the
// longest feed.
type seenItems struct {
	keys  *lru.Cache[string, struct{}]
	limit int
}

// diff returns the items not seen before, in feed order, and records the
// feed's keys.
func (s *seenItems) diff(items []reading.Item) []reading.Item {
	batch := make([]string, 0, len(items))
	inBatch := make(map[string]struct{}, len(items))
	var fresh []reading.Item
	for _, item := range items {
		key := item.Key()
		if _, dup := inBatch[key]; dup {
			continue
		}
		inBatch[key] = struct{}{}
		batch = append(batch, key)
		if s.keys == nil || !s.keys.Contains(key) {
			fresh = append(fresh, item)
		}
	}

	if len(batch) == 0 {
		return fresh
	}
	if limit := historyFactor * len(batch); limit > s.limit {
		s.limit = limit
		if s.keys == nil {
			// only fails for a non-positive size
			s.keys, _ = lru.New[string, struct{}](limit)
		} else {
			s.keys.Resize(limit)
		}
	}

	// feeds list newest first
	for i := len(batch) - 1; i >= 0; i-- {
		s.keys.Add(batch[i], struct{}{})
	}
	return fresh
}

// Len returns the number of remembered keys.
func (s *seenItems) Len() int {
	if s.keys == nil {
		return 0
	}
	return s.keys.Len()
}
