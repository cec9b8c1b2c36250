package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/scrobby/internal/config"
	"github.com/jfmyers9/scrobby/internal/daemon"
	"github.com/jfmyers9/scrobby/internal/metrics"
	"github.com/jfmyers9/scrobby/internal/netcheck"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

var (
	daemonLogFile  string
	daemonLogLevel string
	daemonDataDir  string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scrobbling daemon",
	Long: `Run the scrobbling daemon that watches the media player and scrobbles tracks to Last.fm.

The daemon will:
- Poll the player every 10 seconds while a track plays, every 30 seconds otherwise
- Send a "now playing" update when a track starts or is replayed from the start
- Scrobble a track once it has played past half its length or 4 minutes
- Queue scrobbles that fail or happen while offline, and retry them every 10 minutes
- Handle graceful shutdown on SIGINT/SIGTERM (a second signal forces exit)

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd).`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	daemonCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Directory for the retry queue (default: $XDG_DATA_HOME/scrobby)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" || cfg.LastFM.SessionKey == "" {
		return fmt.Errorf("Last.fm credentials not configured. Run 'scrobby auth' first")
	}

	logger := setupLogger(daemonLogFile, daemonLogLevel)

	logger.Info().
		Str("version", version).
		Str("player", cfg.Player.Backend).
		Msg("Starting scrobby daemon")

	client, err := scrobbler.NewClient(cfg.LastFM.APIKey, cfg.LastFM.APISecret, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	deps := daemon.Deps{
		Reader:   newReader(cfg),
		Remote:   client,
		Network:  netcheck.New(cfg.Network.CheckHosts, cfg.Network.CheckTimeout, logger),
		Metrics:  m,
		Gatherer: reg,
	}

	if cfg.Retry.Enabled {
		path := retryPath(cfg, daemonDataDir)
		store, closer, err := openStore(cfg, path)
		if err != nil {
			return fmt.Errorf("failed to open retry store: %w", err)
		}
		defer closer.Close()

		logger.Info().Str("backend", cfg.Retry.Backend).Str("path", path).Msg("Using retry store")

		deps.Queue = scrobbler.NewQueue(store, logger, scrobbler.QueueConfig{
			ItemDelay: cfg.Retry.ItemDelay,
			Metrics:   m,
		})
	}

	d, err := daemon.New(daemon.Config{
		SessionKey:     cfg.LastFM.SessionKey,
		ActiveInterval: cfg.Poll.ActiveInterval,
		IdleInterval:   cfg.Poll.IdleInterval,
		PollTimeout:    cfg.Poll.Timeout,
		MaxThreshold:   cfg.Scrobble.MaxThreshold,
		RewindLimit:    cfg.Scrobble.RewindLimit,
		RetryInterval:  cfg.Retry.Interval,
		MetricsAddr:    cfg.Metrics.Addr,
	}, deps, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output := os.Stderr
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		} else {
			output = f
		}
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
