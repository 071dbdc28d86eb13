package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pharmacy/internal/config"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [subject]",
	Short:   "Print events from the bus as they happen",
	Long:    "Subscribe to pharmacy events on NATS and print one line per event. The subject defaults to " + events.TopicAll + " and may use NATS wildcards.",
	GroupID: "server",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, logCloser, err := setup()
		if err != nil {
			return err
		}
		defer logCloser.Close()
		if cfg.NATSURL == "" {
			return fmt.Errorf("%sNATS_URL is required", config.EnvPrefix)
		}

		subject := events.TopicAll
		if len(args) == 1 {
			subject = args[0]
		}
		raw, _ := cmd.Flags().GetBool("raw")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(cfg.NATSURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats: disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats: reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(subject)
		if err != nil {
			return err
		}
		defer cancel()
		logger.Debug("watching", "subject", subject)
		defer func() {
			if n := sub.Dropped(); n > 0 {
				logger.Warn("watch: events dropped, output fell behind", "count", n)
			}
		}()

		out := cmd.OutOrStdout()
		st := ui.For(out)
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			st.Color = false
		}
		return printEvents(ctx, ch, out, raw, st)
	},
}

func init() {
	watchCmd.Flags().Bool("raw", false, "print payloads as received")
	watchCmd.Flags().Bool("no-color", false, "disable colored output")
}

// printEvents writes one line per payload until ctx is done or ch closes.
func printEvents(ctx context.Context, ch <-chan []byte, w io.Writer, raw bool, st ui.Styler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if raw {
				fmt.Fprintf(w, "%s\n", data)
				continue
			}
			fmt.Fprintln(w, formatEvent(time.Now(), data, st))
		}
	}
}

// formatEvent summarises a payload as "15:04:05 Entity id". Low stock
// warnings are flagged; other payloads are printed compacted.
func formatEvent(at time.Time, data []byte, st ui.Styler) string {
	stamp := st.Muted(at.Format(time.TimeOnly))
	var ev events.EntityChanged
	if err := json.Unmarshal(data, &ev); err == nil && ev.Entity != "" {
		return fmt.Sprintf("%s %s %s", stamp, st.Accent(ev.Entity), ev.ID)
	}
	var low events.StockLow
	if err := json.Unmarshal(data, &low); err == nil && low.ProductID != "" && low.BranchID != "" && strings.Contains(string(data), `"reorderLevel"`) {
		return fmt.Sprintf("%s %s product %s at branch %s: %d left (reorder at %d)",
			stamp, st.Warn("LOW STOCK"), low.ProductID, low.BranchID, low.Quantity, low.ReorderLevel)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Debug("undecodable event payload", "err", err)
		return fmt.Sprintf("%s %s", stamp, data)
	}
	compact, _ := json.Marshal(v)
	return fmt.Sprintf("%s %s", stamp, compact)
}
