package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrobby",
	Short: "Last.fm scrobbler for local media players",
	Long: `scrobby reports what your media player is playing to Last.fm.

It runs as a background daemon that polls the player (Apple Music on macOS,
any MPRIS player on Linux), sends "now playing" updates and scrobbles tracks
according to Last.fm's rules. Scrobbles made while offline are queued and
retried later.

The 'now' command prints the current track, which is handy in tmux status
lines and other status bars.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
