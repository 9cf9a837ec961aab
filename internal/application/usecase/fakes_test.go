package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tesso57/feedrelay/internal/domain/reading"
	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// fakePoller records jobs. onStart, when set, runs after a job is registered
// and may drive the job's handler synchronously.
type fakePoller struct {
	mu      sync.Mutex
	jobs    map[string]JobSpec
	started []JobSpec
	stopped []string
	onStart func(JobSpec)
}

func newFakePoller() *fakePoller {
	return &fakePoller{jobs: make(map[string]JobSpec)}
}

func (p *fakePoller) Start(job JobSpec) {
	p.mu.Lock()
	p.jobs[job.ID] = job
	p.started = append(p.started, job)
	hook := p.onStart
	p.mu.Unlock()

	if hook != nil {
		hook(job)
	}
}

func (p *fakePoller) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, id)
	p.stopped = append(p.stopped, id)
}

func (p *fakePoller) job(id string) (JobSpec, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[id]
	return job, ok
}

// activeJobs counts running jobs whose id starts with prefix.
func (p *fakePoller) activeJobs(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id := range p.jobs {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return n
}

func (p *fakePoller) startedJobs(prefix string) []JobSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []JobSpec
	for _, job := range p.started {
		if strings.HasPrefix(job.ID, prefix) {
			out = append(out, job)
		}
	}
	return out
}

// probeSucceeds makes every probe complete its first poll immediately.
func probeSucceeds(job JobSpec) {
	if obs, ok := job.Handler.(PollCycleObserver); ok && strings.HasPrefix(job.ID, "probe:") {
		obs.PollCompleted(job.Source)
	}
}

// probeFails makes every probe report a poll error immediately.
func probeFails(err error) func(JobSpec) {
	return func(job JobSpec) {
		if strings.HasPrefix(job.ID, "probe:") {
			job.Handler.PollError(job.Source, err)
		}
	}
}

type broadcastCall struct {
	Channels []subscription.ChannelRef
	Message  string
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, channels []subscription.ChannelRef, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{Channels: slices.Clone(channels), Message: message})
}

func (b *recordingBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// stubChannelStore keeps lists in memory unless expectations are set.
type stubChannelStore struct {
	mock.Mock
	mu    sync.Mutex
	lists map[subscription.ChannelRef][]string
	order []subscription.ChannelRef
}

func newStubChannelStore() *stubChannelStore {
	return &stubChannelStore{lists: make(map[subscription.ChannelRef][]string)}
}

func (s *stubChannelStore) SubscriptionList(_ context.Context, channel subscription.ChannelRef) ([]string, error) {
	if len(s.ExpectedCalls) > 0 {
		args := s.Called(channel)
		list, _ := args.Get(0).([]string)
		return list, args.Error(1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lists[channel]), nil
}

func (s *stubChannelStore) SetSubscriptionList(_ context.Context, channel subscription.ChannelRef, sources []string) error {
	if len(s.ExpectedCalls) > 0 {
		args := s.Called(channel, sources)
		return args.Error(0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[channel]; !ok {
		s.order = append(s.order, channel)
	}
	s.lists[channel] = slices.Clone(sources)
	return nil
}

func (s *stubChannelStore) AssignedChannels(context.Context) ([]subscription.ChannelSubscriptions, error) {
	if len(s.ExpectedCalls) > 0 {
		args := s.Called()
		channels, _ := args.Get(0).([]subscription.ChannelSubscriptions)
		return channels, args.Error(1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []subscription.ChannelSubscriptions
	for _, ch := range s.order {
		if len(s.lists[ch]) == 0 {
			continue
		}
		out = append(out, subscription.ChannelSubscriptions{Channel: ch, Sources: slices.Clone(s.lists[ch])})
	}
	return out, nil
}

func sampleItem(source string) reading.Item {
	return reading.Item{
		GUID:      "guid-1",
		Title:     "Atom-Powered Robots Run Amok",
		Link:      "https://a.example/robots",
		FeedTitle: "Example Feed",
		FeedURL:   source,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
