// Package feed fetches RSS/Atom/JSON feeds and polls them for new items.
package feed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/tesso57/feedrelay/internal/domain/reading"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "feedrelay/1.0"

const feedAcceptHeader = "application/atom+xml, application/rss+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

type acceptTransport struct {
	base http.RoundTripper
}

func (t acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", feedAcceptHeader)
	}
	return base.RoundTrip(clone)
}

// ParseFunc fetches and parses the feed at url.
type ParseFunc func(ctx context.Context, url string) (*gofeed.Feed, error)

// NewParseFunc returns a gofeed based ParseFunc sending userAgent.
func NewParseFunc(userAgent string) ParseFunc {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := &http.Client{Transport: acceptTransport{base: http.DefaultTransport}}
	return func(ctx context.Context, url string) (*gofeed.Feed, error) {
		fp := gofeed.NewParser()
		fp.UserAgent = userAgent
		fp.Client = client
		return fp.ParseURLWithContext(url, ctx)
	}
}

// Fetcher fetches single feeds with a per-request timeout.
type Fetcher struct {
	Parse   ParseFunc
	Timeout time.Duration
}

// Fetch parses the feed at url.
func (f Fetcher) Fetch(ctx context.Context, url string) (*reading.Feed, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("feed url is empty")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	parse := f.Parse
	if parse == nil {
		parse = NewParseFunc("")
	}
	parsed, err := parse(ctx, url)
	if err != nil {
		return nil, err
	}
	return convert(url, parsed), nil
}

func convert(url string, parsed *gofeed.Feed) *reading.Feed {
	f := new(reading.Feed{
		Title: parsed.Title,
		URL:   url,
		Items: make([]reading.Item, 0, len(parsed.Items)),
	})

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		pub := item.Published
		if pub == "" {
			pub = item.Updated
		}
		var date time.Time
		if item.PublishedParsed != nil {
			date = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			date = *item.UpdatedParsed
		}
		var author string
		if item.Author != nil {
			author = item.Author.Name
		}

		f.Items = append(f.Items, reading.Item{
			GUID:      item.GUID,
			Title:     item.Title,
			Link:      item.Link,
			Author:    author,
			Published: pub,
			Date:      date,
			FeedTitle: parsed.Title,
			FeedURL:   url,
		})
	}

	return f
}
