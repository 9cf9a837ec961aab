// Package settings defines application-level configuration data.
package settings

import (
	"fmt"
	"time"
)

// Broadcast modes.
const (
	BroadcastLog   = "log"
	BroadcastRedis = "redis"
)

// BroadcastConfig selects where notifications are delivered.
type BroadcastConfig struct {
	Mode         string `yaml:"mode" kong:"help='Broadcast mode (log/redis)',default='log',enum='log,redis'"`
	RedisURL     string `yaml:"redis_url" kong:"help='Redis URL used by the redis broadcaster',default='redis://localhost:6379/0'"`
	StreamPrefix string `yaml:"stream_prefix" kong:"help='Redis stream key prefix, followed by the channel',default='feedrelay:channel:'"`
}

// Settings represents the application configuration.
type Settings struct {
	Timeout   time.Duration   `yaml:"timeout" kong:"help='Feed validation timeout',default='10s'"`
	Refresh   time.Duration   `yaml:"refresh" kong:"help='Poll interval of subscribed feeds',default='1m'"`
	UserAgent string          `yaml:"user_agent" kong:"help='User-Agent sent to feeds'"`
	Database  string          `yaml:"database" kong:"help='SQLite database path'"`
	Listen    string          `yaml:"listen" kong:"help='HTTP listen address',default=':8080'"`
	LogLevel  string          `yaml:"log_level" kong:"help='Log level (debug/info/warn/error)',default='info'"`
	Broadcast BroadcastConfig `yaml:"broadcast" kong:"embed,prefix='broadcast.'"`
}

// Validate reports settings the service cannot run with.
func (s Settings) Validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.Refresh <= 0 {
		return fmt.Errorf("refresh must be positive, got %s", s.Refresh)
	}
	switch s.Broadcast.Mode {
	case BroadcastLog:
	case BroadcastRedis:
		if s.Broadcast.RedisURL == "" {
			return fmt.Errorf("broadcast.redis_url is required for redis mode")
		}
	default:
		return fmt.Errorf("unknown broadcast mode %q", s.Broadcast.Mode)
	}
	return nil
}
