package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/events"
	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
	"github.com/alfredjeanlab/dealdesk/internal/views"
)

// sseRetry is how long watch waits before reopening a dropped event stream.
const sseRetry = 3 * time.Second

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow dossier changes as they happen",
	Long:    "Follow dossier changes as they happen. Events come from NATS when a NATS URL is\nconfigured (DEALDESK_NATS_URL or the active remote), otherwise from the server's\nevent stream.",
	GroupID: "followup",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("statut")
		filter, err := views.ParseFilter(raw)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		logLevel := slog.LevelWarn
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

		cache := querycache.New(querycache.WithLogger(logger))
		defer cache.Close()

		out := cmd.OutOrStdout()
		list := views.NewDossierList(cache, dealClient)
		list.SetFilter(filter)
		seen := make(map[string]time.Time)
		sub := list.Mount(func(err error) {
			if err != nil {
				fmt.Fprintln(os.Stderr, ui.RenderError("✗"), err)
				return
			}
			printChanged(out, diffDossiers(list.Visible(), seen), list.Total())
		})
		defer sub.Unmount()

		natsURL := clientCfg.NATSURL
		if natsURL == "" {
			natsURL = activeRemote().NATSURL
		}
		if natsURL != "" {
			return watchNATS(ctx, natsURL, cache, logger)
		}
		return watchSSE(ctx, cache, logger)
	},
}

// watchNATS applies bus events to the cache until ctx is done. A reconnect
// invalidates the dossier list since events may have been missed.
func watchNATS(ctx context.Context, natsURL string, cache *querycache.Cache, logger *slog.Logger) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
			cache.Invalidate(querycache.KeyDossiers, querycache.KeyDashboardStats)
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.Prefix + ">")
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			applyEvent(cache, logger, msg.Topic, msg.Data)
		}
	}
}

// watchSSE reads the server event stream, reopening it after a drop and
// resuming from the last event seen.
func watchSSE(ctx context.Context, cache *querycache.Cache, logger *slog.Logger) error {
	req := &client.StreamRequest{Topics: []string{events.Prefix + ">"}}
	for {
		ch, err := dealClient.StreamEvents(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("opening event stream: %w", err)
		}
		for evt := range ch {
			if evt.ID != "" {
				req.LastEventID = evt.ID
			}
			applyEvent(cache, logger, evt.Topic, evt.Data)
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("event stream closed, reconnecting", "last_event_id", req.LastEventID)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sseRetry):
		}
		// Anything missed beyond the server's replay buffer is picked up here.
		cache.Invalidate(querycache.KeyDossiers)
	}
}

func applyEvent(cache *querycache.Cache, logger *slog.Logger, topic string, data []byte) {
	if !cache.ApplyRemote(topic, data) {
		logger.Debug("ignoring event", "topic", topic)
		return
	}
	logger.Debug("event applied", "topic", topic)
}

// diffDossiers returns the dossiers that are new or whose updated_at moved
// since the last call. It updates seen in place.
func diffDossiers(ds []*model.Dossier, seen map[string]time.Time) []*model.Dossier {
	var changed []*model.Dossier
	for _, d := range ds {
		prev, ok := seen[d.ID]
		if !ok || !d.UpdatedAt.Equal(prev) {
			changed = append(changed, d)
		}
		seen[d.ID] = d.UpdatedAt
	}
	return changed
}

func printChanged(w io.Writer, changed []*model.Dossier, total int) {
	if len(changed) == 0 {
		return
	}
	if jsonOutput {
		_ = printJSON(w, changed)
		return
	}
	fmt.Fprintln(w, ui.RenderMuted(time.Now().Format(timeLayout)))
	printDossierTable(w, changed, total)
}

func init() {
	watchCmd.Flags().String("statut", "ALL", "only show dossiers with this status")
	watchCmd.Flags().BoolP("verbose", "v", false, "log every event received")
}
