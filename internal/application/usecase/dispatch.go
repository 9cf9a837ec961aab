package usecase

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/reading"
	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// SubscriberLookup resolves a source to its current subscribers.
type SubscriberLookup interface {
	SubscribersOf(source string) []subscription.ChannelRef
}

// Router fans new items out to the subscribers of their source.
type Router struct {
	lookup      SubscriberLookup
	broadcaster Broadcaster
	format      func(reading.Item) string
	recorder    Recorder
	log         *zap.Logger

	ctx    context.Context
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRouter constructs a Router. Broadcasts run with ctx.
func NewRouter(ctx context.Context, lookup SubscriberLookup, broadcaster Broadcaster, recorder Recorder, log *zap.Logger) *Router {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		lookup:      lookup,
		broadcaster: broadcaster,
		format:      FormatItem,
		recorder:    recorder,
		log:         log,
		ctx:         ctx,
	}
}

// ItemFound broadcasts item to every channel subscribed to source. Events
// for sources without subscribers, or arriving after Close, are dropped.
func (r *Router) ItemFound(source string, item reading.Item) {
	channels := r.lookup.SubscribersOf(source)
	if len(channels) == 0 {
		r.recorder.ObserveDispatch("dropped")
		r.log.Debug("drop item for unsubscribed source", zap.String("source", source), zap.String("item", item.Key()))
		return
	}

	message := r.format(item)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.recorder.ObserveDispatch("dropped")
		r.log.Debug("drop item after close", zap.String("source", source), zap.String("item", item.Key()))
		return
	}
	r.recorder.ObserveDispatch("broadcast")
	r.wg.Go(func() {
		r.broadcaster.Broadcast(r.ctx, channels, message)
	})
}

// PollError logs a failed poll. The poller retries on its own.
func (r *Router) PollError(source string, err error) {
	r.recorder.ObservePollError()
	r.log.Warn("poll failed", zap.String("source", source), zap.Error(err))
}

// Wait blocks until in-flight broadcasts have returned.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Close stops accepting items and waits for in-flight broadcasts.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
}

// FormatItem renders an item as a plain text notification.
func FormatItem(item reading.Item) string {
	var b strings.Builder
	if item.FeedTitle != "" {
		b.WriteString(item.FeedTitle)
		if item.Author != "" {
			b.WriteString(" (" + item.Author + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString(item.Title)
	if item.Link != "" {
		b.WriteString("\n" + item.Link)
	}
	return b.String()
}
