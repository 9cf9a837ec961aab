package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dependencies are the collaborators a Manager is built from.
type Dependencies struct {
	Poller      Poller
	Broadcaster Broadcaster
	Store       ChannelStore
	Recorder    Recorder
	Log         *zap.Logger
}

// Options tune the Manager.
type Options struct {
	// Timeout bounds a feed validation.
	Timeout time.Duration
	// Refresh is the poll interval of subscribed feeds.
	Refresh time.Duration
}

// Manager owns the subscription state of one process.
type Manager struct {
	Registry      *Registry
	Validator     *Validator
	Router        *Router
	Subscriptions SubscriptionService

	cancel context.CancelFunc
}

// NewManager wires the registry, validator, router and subscription service.
func NewManager(deps Dependencies, opts Options) *Manager {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{cancel: cancel}
	m.Registry = NewRegistry(deps.Poller, nil, opts.Refresh, recorder, log.Named("registry"))
	m.Router = NewRouter(ctx, m.Registry, deps.Broadcaster, recorder, log.Named("dispatch"))
	m.Registry.handler = m.Router
	m.Validator = NewValidator(deps.Poller, opts.Timeout, recorder, log.Named("validation"))
	m.Subscriptions = NewSubscriptionService(deps.Store, m.Registry, m.Validator, log.Named("subscription"))
	return m
}

// Shutdown stops all production poll jobs, closes the router and waits for
// in-flight broadcasts. Broadcasts still running after ctx ends are cancelled.
func (m *Manager) Shutdown(ctx context.Context) {
	m.Registry.Reset()

	done := make(chan struct{})
	go func() {
		m.Router.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.cancel()
		<-done
	}
	m.cancel()
}
