package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/scrobby/internal/config"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

var queueDataDir string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or flush the retry queue",
	Long: `Scrobbles that could not be delivered are kept in the retry queue and
retried by the daemon every 10 minutes. These commands inspect the queue or
retry it immediately.`,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued scrobbles",
	RunE:  runQueueList,
}

var queueFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Submit queued scrobbles now",
	RunE:  runQueueFlush,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd, queueFlushCmd)
	queueCmd.PersistentFlags().StringVar(&queueDataDir, "data-dir", "", "Directory holding the retry queue (default: $XDG_DATA_HOME/scrobby)")
}

func openQueue(cfg *config.Config, logger zerolog.Logger) (*scrobbler.Queue, func(), error) {
	store, closer, err := openStore(cfg, retryPath(cfg, queueDataDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open retry store: %w", err)
	}

	q := scrobbler.NewQueue(store, logger, scrobbler.QueueConfig{ItemDelay: cfg.Retry.ItemDelay})
	return q, func() { _ = closer.Close() }, nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	q, closeQueue, err := openQueue(cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer closeQueue()

	items, err := q.Pending(cmd.Context())
	if err != nil {
		return err
	}

	return printQueue(cmd.OutOrStdout(), items)
}

func printQueue(out io.Writer, items []scrobbler.TrackInfo) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "Retry queue is empty")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tARTIST\tTRACK\tALBUM")
	for _, t := range items {
		started := "-"
		if !t.StartTime.IsZero() {
			started = t.StartTime.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, started, t.Artist, t.Track, t.Album)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d scrobble(s) pending\n", len(items))
	return nil
}

func runQueueFlush(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" || cfg.LastFM.SessionKey == "" {
		return fmt.Errorf("Last.fm credentials not configured. Run 'scrobby auth' first")
	}

	logger := setupLogger("", "warn")

	client, err := scrobbler.NewClient(cfg.LastFM.APIKey, cfg.LastFM.APISecret, logger)
	if err != nil {
		return err
	}

	q, closeQueue, err := openQueue(cfg, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	result, err := q.Drain(cmd.Context(), client, cfg.LastFM.SessionKey)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Attempted == 0 {
		fmt.Fprintln(out, "Retry queue is empty")
		return nil
	}

	fmt.Fprintf(out, "✓ Submitted %d of %d, %d remaining\n", result.Succeeded, result.Attempted, result.Remaining)
	return nil
}
