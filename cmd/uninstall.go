package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/scrobby/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the scrobby launchd agent",
	Long: `Stop the scrobby daemon and remove its launchd agent.

Queued scrobbles stay in the retry store and are sent the next time the
daemon runs.`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if err := requireLaunchd(); err != nil {
		return err
	}

	plistPath, err := daemon.GetPlistPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(plistPath); errors.Is(err, fs.ErrNotExist) {
		fmt.Println("Daemon is not installed (plist not found)")
		return nil
	}

	fmt.Println("Stopping daemon...")
	if err := bootout(); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Continuing with plist removal...")
	} else {
		fmt.Println("✓ Daemon stopped")
	}

	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}

	fmt.Printf("✓ Removed plist from %s\n", plistPath)
	fmt.Println("\nTo reinstall, run:")
	fmt.Println("  scrobby install")

	return nil
}
