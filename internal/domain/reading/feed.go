// Package reading defines core reading models.
package reading

import "time"

// Item represents a single feed entry discovered by a poll.
type Item struct {
	GUID      string
	Title     string
	Link      string
	Author    string
	Published string
	Date      time.Time
	FeedTitle string
	FeedURL   string
}

// Key returns the identifier used to tell items of one feed apart.
// Feeds without GUIDs fall back to the link, then to the title.
func (i Item) Key() string {
	switch {
	case i.GUID != "":
		return i.GUID
	case i.Link != "":
		return i.Link
	default:
		return i.Title
	}
}

// Feed represents a parsed feed.
type Feed struct {
	Title string
	Items []Item
	URL   string
}
