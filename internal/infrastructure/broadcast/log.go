// Package broadcast delivers notifications to subscribed channels.
package broadcast

import (
	"context"

	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// Log writes each broadcast as one structured log entry.
type Log struct {
	log *zap.Logger
}

// NewLog constructs a Log broadcaster.
func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

// Broadcast logs message for channels.
func (l *Log) Broadcast(_ context.Context, channels []subscription.ChannelRef, message string) {
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.String()
	}
	l.log.Info("broadcast", zap.Strings("channels", names), zap.String("message", message))
}
