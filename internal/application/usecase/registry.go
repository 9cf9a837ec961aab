package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

const productionJobPrefix = "poll:"

// ProductionJobID is the poll job identity used for a subscribed source.
func ProductionJobID(source string) string {
	return productionJobPrefix + source
}

// Registry maps sources to their subscribers and owns one poll job per
// subscribed source. A source key exists iff its subscriber set is non-empty.
type Registry struct {
	mu       sync.Mutex
	sources  map[string]subscription.SubscriberSet
	poller   Poller
	handler  PollHandler
	interval time.Duration
	recorder Recorder
	log      *zap.Logger
}

// NewRegistry constructs a Registry. Events of the jobs it starts go to handler.
func NewRegistry(poller Poller, handler PollHandler, interval time.Duration, recorder Recorder, log *zap.Logger) *Registry {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sources:  make(map[string]subscription.SubscriberSet),
		poller:   poller,
		handler:  handler,
		interval: interval,
		recorder: recorder,
		log:      log,
	}
}

// AddSubscriber adds channel to source, starting the poll job for a new source.
func (r *Registry) AddSubscriber(source string, channel subscription.ChannelRef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.sources[source]; ok {
		set.Add(channel)
		return
	}

	r.sources[source] = subscription.SubscriberSet{channel: {}}
	r.poller.Start(JobSpec{
		ID:            ProductionJobID(source),
		Source:        source,
		Interval:      r.interval,
		SkipFirstLoad: true,
		Handler:       r.handler,
	})
	r.recorder.SetPollJobs(len(r.sources))
	r.log.Debug("subscribe", zap.String("source", source))
}

// RemoveSubscriber removes channel from source and stops polling a source
// nobody follows anymore.
func (r *Registry) RemoveSubscriber(source string, channel subscription.ChannelRef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sources[source]
	if !ok || !set.Remove(channel) {
		return
	}
	if len(set) > 0 {
		return
	}

	delete(r.sources, source)
	r.poller.Stop(ProductionJobID(source))
	r.recorder.SetPollJobs(len(r.sources))
	r.log.Debug("unsubscribe", zap.String("source", source))
}

// SubscribersOf returns a snapshot of the channels following source.
func (r *Registry) SubscribersOf(source string) []subscription.ChannelRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sources[source]
	if !ok {
		return nil
	}
	return set.Members()
}

// Sources returns a snapshot of the whole mapping.
func (r *Registry) Sources() map[string][]subscription.ChannelRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]subscription.ChannelRef, len(r.sources))
	for source, set := range r.sources {
		out[source] = set.Members()
	}
	return out
}

// Len returns the number of polled sources.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// Reset stops every poll job and forgets all subscribers.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for source := range r.sources {
		r.poller.Stop(ProductionJobID(source))
		delete(r.sources, source)
	}
	r.recorder.SetPollJobs(0)
}
