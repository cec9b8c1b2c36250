package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/scrobby/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the scrobby daemon as a launchd agent",
	Long: `Install the scrobby daemon as a launchd agent that runs automatically on login.

This command will:
  - Generate a launchd plist for the scrobby daemon
  - Install it to ~/Library/LaunchAgents/
  - Bootstrap the agent with launchctl, which starts the daemon

Run 'scrobby auth' first so the daemon has a Last.fm session.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	if err := requireLaunchd(); err != nil {
		return err
	}

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath := daemon.GetDefaultLogPath()
	if err := os.MkdirAll(logPath, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	plist, err := daemon.GeneratePlist(daemon.PlistConfig{
		BinaryPath:       binaryPath,
		LogPath:          logPath,
		WorkingDirectory: home,
	})
	if err != nil {
		return err
	}

	plistPath, err := daemon.GetPlistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0o755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	if _, err := os.Stat(plistPath); err == nil {
		fmt.Println("Daemon is already installed, reloading...")
		if err := bootout(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	if err := os.WriteFile(plistPath, []byte(plist), 0o644); err != nil {
		return fmt.Errorf("failed to write plist file: %w", err)
	}
	fmt.Printf("✓ Installed plist to %s\n", plistPath)

	if err := bootstrap(plistPath); err != nil {
		return err
	}

	fmt.Println("✓ Daemon loaded and started")
	fmt.Printf("✓ Logs are written to %s\n", logPath)
	fmt.Println("\nCheck the daemon status with:")
	fmt.Printf("  launchctl print %s\n", launchdService())
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  scrobby uninstall")

	return nil
}

func requireLaunchd() error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("launchd agents are only supported on macOS; run 'scrobby daemon' under your service manager instead")
	}
	return nil
}

func launchdDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

func launchdService() string {
	return launchdDomain() + "/" + daemon.LaunchdLabel
}

func bootstrap(plistPath string) error {
	out, err := exec.Command("launchctl", "bootstrap", launchdDomain(), plistPath).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("launchctl bootstrap failed: %s", msg)
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}
	return nil
}

// bootout stops and unloads the agent. A service that is not loaded is
// not an error.
func bootout() error {
	out, err := exec.Command("launchctl", "bootout", launchdService()).CombinedOutput()
	if err == nil {
		return nil
	}

	msg := strings.TrimSpace(string(out))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && strings.Contains(strings.ToLower(msg), "could not find") {
		return nil
	}
	if msg != "" {
		return fmt.Errorf("launchctl bootout failed: %s", msg)
	}
	return fmt.Errorf("failed to run launchctl bootout: %w", err)
}
