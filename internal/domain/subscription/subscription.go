// Package subscription defines feed subscription models.
package subscription

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrAlreadySubscribed is returned when a channel already follows a source.
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrNotSubscribed is returned when a channel does not follow a source.
	ErrNotSubscribed = errors.New("not subscribed")
	// ErrInvalidSource is returned for empty or malformed feed urls.
	ErrInvalidSource = errors.New("invalid feed url")
	// ErrValidationTimeout is returned when a feed does not answer in time.
	ErrValidationTimeout = errors.New("connect timeout")
)

// FeedError reports a fetch or parse failure for a source.
type FeedError struct {
	Source string
	Err    error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Source, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// ChannelRef identifies a notification target as "platform:channelId".
type ChannelRef string

// NewChannelRef joins a platform and a channel id.
func NewChannelRef(platform, id string) ChannelRef {
	return ChannelRef(platform + ":" + id)
}

func (c ChannelRef) String() string {
	return string(c)
}

// SubscriberSet is the set of channels following one source.
type SubscriberSet map[ChannelRef]struct{}

// Add inserts a channel and reports whether it was new.
func (s SubscriberSet) Add(c ChannelRef) bool {
	if _, ok := s[c]; ok {
		return false
	}
	s[c] = struct{}{}
	return true
}

// Remove deletes a channel and reports whether it was present.
func (s SubscriberSet) Remove(c ChannelRef) bool {
	if _, ok := s[c]; !ok {
		return false
	}
	delete(s, c)
	return true
}

// Has reports membership.
func (s SubscriberSet) Has(c ChannelRef) bool {
	_, ok := s[c]
	return ok
}

// Members returns a sorted copy of the set.
func (s SubscriberSet) Members() []ChannelRef {
	out := make([]ChannelRef, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// ChannelSubscriptions is the persisted, ordered source list of one channel.
type ChannelSubscriptions struct {
	Channel ChannelRef
	Sources []string
}
