package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// SourceValidator checks that a feed can be subscribed to.
type SourceValidator interface {
	Validate(ctx context.Context, source string) (Validation, error)
}

// SubscriberRegistry is the part of the Registry the service mutates.
type SubscriberRegistry interface {
	AddSubscriber(source string, channel subscription.ChannelRef)
	RemoveSubscriber(source string, channel subscription.ChannelRef)
}

// SubscriptionService provides subscription-related operations.
type SubscriptionService struct {
	Store     ChannelStore
	Registry  SubscriberRegistry
	Validator SourceValidator
	Log       *zap.Logger

	// commit serialises read-modify-write of persisted lists with the
	// matching registry change.
	commit *sync.Mutex
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(store ChannelStore, registry SubscriberRegistry, validator SourceValidator, log *zap.Logger) SubscriptionService {
	if log == nil {
		log = zap.NewNop()
	}
	return SubscriptionService{
		Store:     store,
		Registry:  registry,
		Validator: validator,
		Log:       log,
		commit:    &sync.Mutex{},
	}
}

// List returns the feed urls a channel is subscribed to.
func (s SubscriptionService) List(ctx context.Context, channel subscription.ChannelRef) ([]string, error) {
	return s.Store.SubscriptionList(ctx, channel)
}

// Subscribe validates source and subscribes channel to it.
func (s SubscriptionService) Subscribe(ctx context.Context, channel subscription.ChannelRef, source string) (Validation, error) {
	source, err := cleanSource(source)
	if err != nil {
		return Validation{}, err
	}

	current, err := s.Store.SubscriptionList(ctx, channel)
	if err != nil {
		return Validation{}, err
	}
	if slices.Contains(current, source) {
		return Validation{}, subscription.ErrAlreadySubscribed
	}

	v, err := s.Validator.Validate(ctx, source)
	if err != nil {
		s.Log.Debug("unable to subscribe", zap.Stringer("channel", channel), zap.String("source", source), zap.Error(err))
		return v, fmt.Errorf("validate %s: %w", source, err)
	}

	s.commit.Lock()
	defer s.commit.Unlock()

	current, err = s.Store.SubscriptionList(ctx, channel)
	if err != nil {
		return v, err
	}
	if slices.Contains(current, source) {
		return v, subscription.ErrAlreadySubscribed
	}

	s.Registry.AddSubscriber(source, channel)
	if err := s.Store.SetSubscriptionList(ctx, channel, append(current, source)); err != nil {
		s.Registry.RemoveSubscriber(source, channel)
		return v, fmt.Errorf("persist subscriptions of %s: %w", channel, err)
	}
	return v, nil
}

// Unsubscribe removes source from channel's subscriptions.
func (s SubscriptionService) Unsubscribe(ctx context.Context, channel subscription.ChannelRef, source string) error {
	source = strings.TrimSpace(source)

	s.commit.Lock()
	defer s.commit.Unlock()

	current, err := s.Store.SubscriptionList(ctx, channel)
	if err != nil {
		return err
	}
	index := slices.Index(current, source)
	if index < 0 {
		return subscription.ErrNotSubscribed
	}

	updated := slices.Delete(slices.Clone(current), index, index+1)
	if err := s.Store.SetSubscriptionList(ctx, channel, updated); err != nil {
		return fmt.Errorf("persist subscriptions of %s: %w", channel, err)
	}
	s.Registry.RemoveSubscriber(source, channel)
	return nil
}

// Restore re-registers every persisted subscription without validating it
// and returns how many were restored.
func (s SubscriptionService) Restore(ctx context.Context) (int, error) {
	channels, err := s.Store.AssignedChannels(ctx)
	if err != nil {
		return 0, fmt.Errorf("load assigned channels: %w", err)
	}

	restored := 0
	for _, ch := range channels {
		for _, source := range ch.Sources {
			s.Registry.AddSubscriber(source, ch.Channel)
			restored++
		}
	}
	return restored, nil
}

func cleanSource(url string) (string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", fmt.Errorf("%w: feed url is empty", subscription.ErrInvalidSource)
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", fmt.Errorf("%w: feed url contains whitespace", subscription.ErrInvalidSource)
	}
	return trimmed, nil
}
