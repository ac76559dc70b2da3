package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	relay "github.com/koscakluka/relay-core/core"
	"github.com/koscakluka/relay-core/core/events"
)

const (
	busURLKey               = "bus.url"
	busPublishTimeoutKey    = "bus.publish_timeout"
	busReconnectIntervalKey = "bus.reconnect_interval"
	busMaxReconnectsKey     = "bus.max_reconnect_attempts"
	journalPathKey          = "journal.path"
	maxAttemptsKey          = "relay.max_attempts"
	attemptTimeoutKey       = "relay.attempt_timeout"
	responseTimeoutKey      = "relay.response_timeout"
	responsePatternKey      = "relay.response_pattern"
	inactivityTimeoutKey    = "relay.inactivity_timeout"
	sweepIntervalKey        = "relay.sweep_interval"
	pendingBoundKey         = "relay.pending_bound"
	backoffBaseKey          = "relay.backoff.base"
	backoffCapKey           = "relay.backoff.cap"
	backoffJitterKey        = "relay.backoff.jitter"
)

type config struct {
	BusURL               string
	PublishTimeout       time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int

	JournalPath string

	MaxAttempts       int
	AttemptTimeout    time.Duration
	ResponseTimeout   time.Duration
	ResponsePattern   string
	InactivityTimeout time.Duration
	SweepInterval     time.Duration
	PendingBound      int

	Backoff relay.ExponentialBackoff
}

// loadConfig reads relayd.yaml (working directory or /etc/relayd) and the
// RELAYD_* environment, env winning.
func loadConfig(path string) (config, error) {
	cfg := viper.New()
	cfg.SetEnvPrefix("RELAYD")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(busURLKey, "ws://127.0.0.1:8765/bus")
	cfg.SetDefault(busPublishTimeoutKey, 5*time.Second)
	cfg.SetDefault(busReconnectIntervalKey, 5*time.Second)
	cfg.SetDefault(busMaxReconnectsKey, 10)
	cfg.SetDefault(journalPathKey, "relay.journal")
	cfg.SetDefault(maxAttemptsKey, 3)
	cfg.SetDefault(attemptTimeoutKey, 5*time.Second)
	cfg.SetDefault(responseTimeoutKey, 30*time.Second)
	cfg.SetDefault(responsePatternKey, events.ResponsePattern)
	cfg.SetDefault(inactivityTimeoutKey, 5*time.Minute)
	cfg.SetDefault(sweepIntervalKey, 30*time.Second)
	cfg.SetDefault(pendingBoundKey, 256)
	cfg.SetDefault(backoffBaseKey, time.Second)
	cfg.SetDefault(backoffCapKey, 30*time.Second)
	cfg.SetDefault(backoffJitterKey, 0.25)

	if path != "" {
		cfg.SetConfigFile(path)
		if err := cfg.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		cfg.SetConfigName("relayd")
		cfg.AddConfigPath(".")
		cfg.AddConfigPath("/etc/relayd")
		if err := cfg.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	return config{
		BusURL:               cfg.GetString(busURLKey),
		PublishTimeout:       cfg.GetDuration(busPublishTimeoutKey),
		ReconnectInterval:    cfg.GetDuration(busReconnectIntervalKey),
		MaxReconnectAttempts: cfg.GetInt(busMaxReconnectsKey),
		JournalPath:          cfg.GetString(journalPathKey),
		MaxAttempts:          cfg.GetInt(maxAttemptsKey),
		AttemptTimeout:       cfg.GetDuration(attemptTimeoutKey),
		ResponseTimeout:      cfg.GetDuration(responseTimeoutKey),
		ResponsePattern:      cfg.GetString(responsePatternKey),
		InactivityTimeout:    cfg.GetDuration(inactivityTimeoutKey),
		SweepInterval:        cfg.GetDuration(sweepIntervalKey),
		PendingBound:         cfg.GetInt(pendingBoundKey),
		Backoff: relay.ExponentialBackoff{
			Base:         cfg.GetDuration(backoffBaseKey),
			Cap:          cfg.GetDuration(backoffCapKey),
			JitterFactor: cfg.GetFloat64(backoffJitterKey),
		},
	}, nil
}
