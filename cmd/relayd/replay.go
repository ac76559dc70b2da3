package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newReplayCmd(configPath *string) *cobra.Command {
	var drain time.Duration
	var includeExhausted bool

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Resubmit undelivered journal entries and exit",
		Long:  "replay connects to the bus, resubmits every journal entry that never reached delivered, optionally grants exhausted entries a fresh attempt budget, waits for the drain window, and exits. Entries that fail again stay in the journal.",
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

			// Run replays pending entries as part of startup.
			if err := r.Run(ctx); err != nil {
				return err
			}

			requeued := 0
			if includeExhausted {
				requeued, err = r.ReplayExhausted(ctx)
				if err != nil {
					return err
				}
			}

			select {
			case <-time.After(drain):
			case <-ctx.Done():
			}

			stats := r.Stats()
			fmt.Fprintf(cmd.OutOrStdout(),
				"replayed %d entries (%d previously exhausted), %d delivered, %d still owed\n",
				stats.EventsReplayed, requeued, stats.EventsDelivered,
				stats.EventsReplayed-stats.EventsDelivered)
			return nil
		},
	}
	replayCmd.Flags().DurationVar(&drain, "drain", 30*time.Second, "how long to wait for deliveries before exiting")
	replayCmd.Flags().BoolVar(&includeExhausted, "exhausted", false, "also requeue entries that failed every previous attempt")

	return replayCmd
}
