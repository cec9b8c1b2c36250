package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/scrobby/internal/config"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query the media player and display the currently playing track.

The output format can be customized with output_format in config.yaml
using a Go template. Available fields: .Track, .Artist, .Album, .Duration, .Position

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or player not running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if f, _ := cmd.Flags().GetString("format"); f != "" {
		cfg.OutputFormat = f
	}

	snap, err := newReader(cfg).Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read player state: %w", err)
	}

	if !snap.IsRunning || !snap.IsPlaying {
		os.Exit(1)
	}

	output, err := formatStatus(snap, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee := cfg.MarqueeEnabled
	if cmd.Flags().Changed("marquee") {
		marquee, _ = cmd.Flags().GetBool("marquee")
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
