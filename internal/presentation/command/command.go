// Package command maps subscription operations to plain text replies.
package command

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/application/usecase"
	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// Replies sent back to the channel.
const (
	ReplySubscribed      = "subscribed successfully"
	ReplyAlreadySub      = "already subscribed"
	ReplyUnableToSub     = "unable to subscribe to this feed"
	ReplyInvalidURL      = "invalid feed url"
	ReplyUnsubscribed    = "unsubscribed successfully"
	ReplyNotSubscribed   = "not subscribed"
	ReplyNoSubscriptions = "no subscriptions"
	ReplyConnecting      = "connecting..."
)

// Subscriptions is the service the commands drive.
type Subscriptions interface {
	Subscribe(ctx context.Context, channel subscription.ChannelRef, source string) (usecase.Validation, error)
	Unsubscribe(ctx context.Context, channel subscription.ChannelRef, source string) error
	List(ctx context.Context, channel subscription.ChannelRef) ([]string, error)
}

// Handler answers subscribe, unsubscribe and list commands for a channel.
type Handler struct {
	svc Subscriptions
	log *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc Subscriptions, log *zap.Logger) Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return Handler{svc: svc, log: log}
}

// Subscribe subscribes channel to url. Every failure is answered in text.
func (h Handler) Subscribe(ctx context.Context, channel subscription.ChannelRef, url string) string {
	v, err := h.svc.Subscribe(ctx, channel, url)
	reply := ReplySubscribed
	switch {
	case err == nil:
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		reply = ReplyAlreadySub
	case errors.Is(err, subscription.ErrInvalidSource):
		reply = ReplyInvalidURL
	default:
		h.log.Info("subscribe failed", zap.Stringer("channel", channel), zap.String("url", url), zap.Error(err))
		reply = ReplyUnableToSub
	}
	if v.Shared {
		return ReplyConnecting + "\n" + reply
	}
	return reply
}

// Unsubscribe removes url from channel. Storage failures are returned.
func (h Handler) Unsubscribe(ctx context.Context, channel subscription.ChannelRef, url string) (string, error) {
	err := h.svc.Unsubscribe(ctx, channel, url)
	switch {
	case err == nil:
		return ReplyUnsubscribed, nil
	case errors.Is(err, subscription.ErrNotSubscribed):
		return ReplyNotSubscribed, nil
	default:
		return "", err
	}
}

// List returns channel's subscriptions, one per line.
func (h Handler) List(ctx context.Context, channel subscription.ChannelRef) (string, error) {
	sources, err := h.svc.List(ctx, channel)
	if err != nil {
		return "", err
	}
	if len(sources) == 0 {
		return ReplyNoSubscriptions, nil
	}
	return strings.Join(sources, "\n"), nil
}
