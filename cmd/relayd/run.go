package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	relay "github.com/koscakluka/relay-core/core"
	"github.com/koscakluka/relay-core/core/bus/wsbridge"
	"github.com/koscakluka/relay-core/core/events"
	"github.com/koscakluka/relay-core/core/journal"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the relay daemon until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r, client, err := buildRelay(ctx, cfg)
			if err != nil {
				return err
			}
			defer r.Close()
			client.OnReconnect(r.OnTransportReconnected)

			err = r.Run(ctx,
				relay.WithStateChangedCallback(func(sessionID string, state relay.State) {
					slog.Info("session state changed", "session_id", sessionID, "state", string(state))
				}),
				relay.WithResponseReadyCallback(func(session relay.Session, payload events.AgentResponsePayload) {
					slog.Info("response ready",
						"session_id", session.ID,
						"client_type", string(session.ClientType),
						"voice", payload.Voice,
					)
				}),
				relay.WithDeliveryFailedCallback(func(sessionID, entryID string) {
					slog.Error("delivery attempts exhausted", "session_id", sessionID, "entry_id", entryID)
				}),
				relay.WithTimeoutCallback(func(sessionID string) {
					slog.Warn("response timed out", "session_id", sessionID)
				}),
			)
			if err != nil {
				return err
			}

			slog.Info("relayd running", "bus_url", cfg.BusURL, "journal", cfg.JournalPath)
			<-ctx.Done()

			stats := r.Stats()
			slog.Info("relayd shutting down",
				"published", stats.EventsPublished,
				"delivered", stats.EventsDelivered,
				"exhausted", stats.EventsExhausted,
				"responses_routed", stats.ResponsesRouted,
			)
			return nil
		},
	}
}

func buildRelay(ctx context.Context, cfg config) (*relay.Relay, *wsbridge.Client, error) {
	store, err := journal.OpenFileStore(cfg.JournalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal %s: %w", cfg.JournalPath, err)
	}

	client := wsbridge.NewClient(cfg.BusURL,
		wsbridge.WithPublishTimeout(cfg.PublishTimeout),
		wsbridge.WithReconnectInterval(cfg.ReconnectInterval),
		wsbridge.WithMaxReconnectAttempts(cfg.MaxReconnectAttempts),
	)
	if err := client.Connect(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to connect to bus %s: %w", cfg.BusURL, err)
	}

	r, err := relay.New(
		relay.WithTransport(client),
		relay.WithJournal(store),
		relay.WithBackoffPolicy(cfg.Backoff),
		relay.WithMaxAttempts(cfg.MaxAttempts),
		relay.WithAttemptTimeout(cfg.AttemptTimeout),
		relay.WithResponseTimeout(cfg.ResponseTimeout),
		relay.WithResponsePattern(cfg.ResponsePattern),
		relay.WithInactivityTimeout(cfg.InactivityTimeout),
		relay.WithSweepInterval(cfg.SweepInterval),
		relay.WithPendingBound(cfg.PendingBound),
	)
	if err != nil {
		_ = client.Close()
		_ = store.Close()
		return nil, nil, err
	}
	return r, client, nil
}
