// Package usecase contains application-level services.
package usecase

import (
	"context"
	"time"

	"github.com/tesso57/feedrelay/internal/domain/reading"
	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// PollHandler receives events from a poll job.
type PollHandler interface {
	ItemFound(source string, item reading.Item)
	PollError(source string, err error)
}

// PollCycleObserver is implemented by handlers that want to know about every
// successful poll, including polls that found nothing new.
type PollCycleObserver interface {
	PollCompleted(source string)
}

// JobSpec describes one poll job. IDs are independent of sources, so the same
// source may be polled by several jobs.
type JobSpec struct {
	ID            string
	Source        string
	Interval      time.Duration
	SkipFirstLoad bool
	Handler       PollHandler
}

// Poller runs poll jobs. Start and Stop must not block on running jobs.
type Poller interface {
	Start(job JobSpec)
	Stop(id string)
}

// Broadcaster delivers a message to a set of channels. Delivery errors are
// handled by the implementation.
type Broadcaster interface {
	Broadcast(ctx context.Context, channels []subscription.ChannelRef, message string)
}

// ChannelStore persists each channel's ordered subscription list.
type ChannelStore interface {
	SubscriptionList(ctx context.Context, channel subscription.ChannelRef) ([]string, error)
	SetSubscriptionList(ctx context.Context, channel subscription.ChannelRef, sources []string) error
	AssignedChannels(ctx context.Context) ([]subscription.ChannelSubscriptions, error)
}

// Recorder receives operational metrics.
type Recorder interface {
	SetPollJobs(n int)
	ObserveValidation(result string)
	ObserveDispatch(result string)
	ObservePollError()
}

type nopRecorder struct{}

func (nopRecorder) SetPollJobs(int)          {}
func (nopRecorder) ObserveValidation(string) {}
func (nopRecorder) ObserveDispatch(string)   {}
func (nopRecorder) ObservePollError()        {}
