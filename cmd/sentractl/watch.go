package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sentra-bridge/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live device events",
	Long: `Connect to the vendor push stream and print device events as they
arrive. Runs until interrupted with Ctrl+C.

With --output json each event is printed as one JSON object per line,
suitable for piping into jq or a log collector.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, err := newVendorBridge()
		if err != nil {
			return err
		}

		// The stream runs until interrupted; only the initial poll is
		// bounded by the request timeout.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		initCtx, cancel := commandContext()
		defer cancel()
		if err := bridge.Initialize(initCtx); err != nil {
			return fmt.Errorf("fetching account state: %w", err)
		}

		var opts []events.SubscribeOption
		if topics, _ := cmd.Flags().GetStringSlice("events"); len(topics) > 0 {
			converted := make([]events.Topic, len(topics))
			for i, t := range topics {
				converted[i] = events.Topic(t)
			}
			opts = append(opts, events.WithTopics(converted...))
		}
		if ids, _ := cmd.Flags().GetStringSlice("device"); len(ids) > 0 {
			opts = append(opts, events.WithDeviceIDs(ids...))
		}

		unsubscribe, err := bridge.Broker().Subscribe(printEvent, opts...)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer unsubscribe()

		fmt.Fprintf(os.Stderr, "Watching %d devices. Ctrl+C to stop.\n", bridge.Registry().Count())

		if err := bridge.StartStream(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event stream: %w", err)
		}
		return nil
	},
}

// printEvent renders one broker event. It runs on the broker's publishing
// goroutine, so it must stay quick.
func printEvent(ev events.Event) {
	if flagOutput == "json" {
		_ = json.NewEncoder(os.Stdout).Encode(ev)
		return
	}

	ts := ev.At.Local().Format(time.TimeOnly)
	switch {
	case ev.Topic == events.TopicConnection:
		fmt.Printf("%s  %-18s %s\n", ts, ev.Topic, ev.Connection)
	case ev.Device != nil:
		fmt.Printf("%s  %-18s %-12s %-24s %s\n", ts, ev.Topic, ev.DeviceID, ev.Device.Name, ev.Device.StateLabel())
	default:
		fmt.Printf("%s  %-18s %s\n", ts, ev.Topic, ev.DeviceID)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSlice("events", nil, "topics to watch (device.added, device.updated, device.removed, connection.changed)")
	watchCmd.Flags().StringSlice("device", nil, "restrict to specific device IDs")
}
