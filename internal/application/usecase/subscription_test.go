package usecase

import (
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

type serviceFixture struct {
	poller *fakePoller
	store  *stubChannelStore
	reg    *Registry
	svc    SubscriptionService
}

func newServiceFixture(timeout time.Duration) serviceFixture {
	poller := newFakePoller()
	poller.onStart = probeSucceeds
	store := newStubChannelStore()
	reg := NewRegistry(poller, nil, time.Minute, nil, nil)
	v := NewValidator(poller, timeout, nil, nil)
	return serviceFixture{
		poller: poller,
		store:  store,
		reg:    reg,
		svc:    NewSubscriptionService(store, reg, v, nil),
	}
}

func (f serviceFixture) list(t *testing.T, channel subscription.ChannelRef) []string {
	t.Helper()
	list, err := f.svc.List(t.Context(), channel)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	return list
}

func TestSubscriptionSubscribe(t *testing.T) {
	f := newServiceFixture(time.Minute)

	if _, err := f.svc.Subscribe(t.Context(), "c:1", "  "+feedA+"\t"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if got := f.reg.SubscribersOf(feedA); !slices.Equal(got, []subscription.ChannelRef{"c:1"}) {
		t.Errorf("unexpected subscribers %v", got)
	}
	if got := f.list(t, "c:1"); !slices.Equal(got, []string{feedA}) {
		t.Errorf("Expected trimmed url in list, got %#v", got)
	}
	if n := f.poller.activeJobs("poll:"); n != 1 {
		t.Errorf("Expected 1 poll job, got %d", n)
	}
}

func TestSubscriptionSubscribeTwice(t *testing.T) {
	f := newServiceFixture(time.Minute)

	if _, err := f.svc.Subscribe(t.Context(), "c:1", feedA); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	_, err := f.svc.Subscribe(t.Context(), "c:1", feedA)

	if !errors.Is(err, subscription.ErrAlreadySubscribed) {
		t.Fatalf("Expected ErrAlreadySubscribed, got %v", err)
	}
	if n := len(f.reg.SubscribersOf(feedA)); n != 1 {
		t.Errorf("Expected 1 subscriber, got %d", n)
	}
	if n := len(f.poller.startedJobs("probe:")); n != 1 {
		t.Errorf("second call must not validate, got %d probes", n)
	}
}

func TestSubscriptionSubscribeRejectsInvalidURL(t *testing.T) {
	f := newServiceFixture(time.Minute)

	for _, url := range []string{" \t\n", "https://example.com/rss another"} {
		if _, err := f.svc.Subscribe(t.Context(), "c:1", url); !errors.Is(err, subscription.ErrInvalidSource) {
			t.Errorf("%q: expected ErrInvalidSource, got %v", url, err)
		}
	}
	if jobs := f.poller.startedJobs(""); len(jobs) != 0 {
		t.Errorf("Expected no jobs, got %v", jobs)
	}
}

func TestSubscriptionSubscribeTimeout(t *testing.T) {
	f := newServiceFixture(20 * time.Millisecond)
	f.poller.onStart = nil

	_, err := f.svc.Subscribe(t.Context(), "c:1", feedA)

	if !errors.Is(err, subscription.ErrValidationTimeout) {
		t.Fatalf("Expected timeout, got %v", err)
	}
	if got := f.reg.SubscribersOf(feedA); got != nil {
		t.Errorf("Expected no subscribers, got %v", got)
	}
	if n := f.poller.activeJobs(""); n != 0 {
		t.Errorf("Expected no jobs, got %d", n)
	}
	if got := f.list(t, "c:1"); len(got) != 0 {
		t.Errorf("Expected nothing persisted, got %v", got)
	}
}

func TestSubscriptionSubscribeFeedError(t *testing.T) {
	f := newServiceFixture(time.Minute)
	f.poller.onStart = probeFails(io.ErrUnexpectedEOF)

	_, err := f.svc.Subscribe(t.Context(), "c:1", feedA)

	var fe *subscription.FeedError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FeedError, got %v", err)
	}
	if f.reg.Len() != 0 {
		t.Errorf("Expected empty registry, got %d sources", f.reg.Len())
	}
}

func TestSubscriptionSubscribeRollsBackOnPersistError(t *testing.T) {
	f := newServiceFixture(time.Minute)
	f.store.On("SubscriptionList", subscription.ChannelRef("c:1")).Return([]string(nil), nil)
	f.store.On("SetSubscriptionList", subscription.ChannelRef("c:1"), []string{feedA}).Return(errors.New("disk full"))

	if _, err := f.svc.Subscribe(t.Context(), "c:1", feedA); err == nil {
		t.Fatal("Expected persist error")
	}
	if f.reg.Len() != 0 || f.poller.activeJobs("poll:") != 0 {
		t.Errorf("Expected registry rolled back, got %d sources and %d jobs", f.reg.Len(), f.poller.activeJobs("poll:"))
	}
	f.store.AssertExpectations(t)
}

func TestSubscriptionUnsubscribe(t *testing.T) {
	f := newServiceFixture(time.Minute)
	for _, source := range []string{feedA, "https://b.example/feed"} {
		if _, err := f.svc.Subscribe(t.Context(), "c:1", source); err != nil {
			t.Fatalf("Subscribe %s failed: %v", source, err)
		}
	}

	if err := f.svc.Unsubscribe(t.Context(), "c:1", feedA); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if got := f.list(t, "c:1"); !slices.Equal(got, []string{"https://b.example/feed"}) {
		t.Errorf("unexpected list %v", got)
	}
	if got := f.reg.SubscribersOf(feedA); got != nil {
		t.Errorf("Expected no subscribers, got %v", got)
	}
	if n := f.poller.activeJobs("poll:"); n != 1 {
		t.Errorf("Expected 1 poll job, got %d", n)
	}
}

func TestSubscriptionUnsubscribeNotSubscribed(t *testing.T) {
	f := newServiceFixture(time.Minute)

	if err := f.svc.Unsubscribe(t.Context(), "c:1", feedA); !errors.Is(err, subscription.ErrNotSubscribed) {
		t.Fatalf("Expected ErrNotSubscribed, got %v", err)
	}
}

func TestSubscriptionUnsubscribeKeepsRegistryOnPersistError(t *testing.T) {
	f := newServiceFixture(time.Minute)
	f.reg.AddSubscriber(feedA, "c:1")
	f.store.On("SubscriptionList", subscription.ChannelRef("c:1")).Return([]string{feedA}, nil)
	f.store.On("SetSubscriptionList", subscription.ChannelRef("c:1"), mock.Anything).Return(errors.New("disk full"))

	if err := f.svc.Unsubscribe(t.Context(), "c:1", feedA); err == nil {
		t.Fatal("Expected persist error")
	}
	if got := f.reg.SubscribersOf(feedA); !slices.Equal(got, []subscription.ChannelRef{"c:1"}) {
		t.Errorf("Expected registry untouched, got %v", got)
	}
}

func TestSubscriptionRestore(t *testing.T) {
	f := newServiceFixture(time.Minute)
	f.poller.onStart = nil
	ctx := t.Context()
	lists := map[subscription.ChannelRef][]string{
		"discord:1": {feedA, "https://b.example/feed"},
		"slack:2":   {feedA},
		"slack:3":   nil,
	}
	for _, ch := range []subscription.ChannelRef{"discord:1", "slack:2", "slack:3"} {
		if err := f.store.SetSubscriptionList(ctx, ch, lists[ch]); err != nil {
			t.Fatalf("seed %s: %v", ch, err)
		}
	}

	n, err := f.svc.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if n != 3 {
		t.Errorf("Expected 3 restored subscriptions, got %d", n)
	}
	if got := f.reg.SubscribersOf(feedA); !slices.Equal(got, []subscription.ChannelRef{"discord:1", "slack:2"}) {
		t.Errorf("unexpected subscribers %v", got)
	}
	if n := f.poller.activeJobs("poll:"); n != 2 {
		t.Errorf("Expected 2 poll jobs, got %d", n)
	}
	if probes := f.poller.startedJobs("probe:"); len(probes) != 0 {
		t.Errorf("restore must not validate, got %d probes", len(probes))
	}
}

func TestSubscriptionRestoreError(t *testing.T) {
	f := newServiceFixture(time.Minute)
	f.store.On("AssignedChannels").Return(nil, errors.New("no such table"))

	if _, err := f.svc.Restore(t.Context()); err == nil {
		t.Fatal("Expected error")
	}
	if f.reg.Len() != 0 {
		t.Errorf("Expected empty registry, got %d sources", f.reg.Len())
	}
}
