package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/scrobby/internal/config"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Last.fm",
	Long: `Authenticate with Last.fm to enable scrobbling.

This command will guide you through the Last.fm authentication process:
1. You'll be prompted to enter your Last.fm API key and secret
2. A browser URL will be provided for you to authorize the application
3. After authorization, a session key will be saved to your config file

You can get API credentials from: https://www.last.fm/api/account/create`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

// sessionRetries and sessionRetryDelay cover the gap between the user
// approving the token in the browser and Last.fm honoring it.
var (
	sessionRetries    = 3
	sessionRetryDelay = 2 * time.Second
)

type authenticator interface {
	AuthenticateWithToken(ctx context.Context) (token string, authURL string, err error)
	GetSession(ctx context.Context, token string) (string, error)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if err := promptCredentials(in, out, cfg); err != nil {
		return err
	}

	client, err := scrobbler.NewClient(cfg.LastFM.APIKey, cfg.LastFM.APISecret, zerolog.Nop())
	if err != nil {
		return err
	}

	sessionKey, err := authorize(cmd.Context(), in, out, client)
	if err != nil {
		return err
	}

	cfg.LastFM.SessionKey = sessionKey
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "\n✓ Authentication successful!\n")
	fmt.Fprintf(out, "✓ Session key saved to %s\n", cfg.Path())
	fmt.Fprintln(out, "\nYou can now use 'scrobby daemon' to start scrobbling.")

	return nil
}

// promptCredentials fills in the API key and secret, offering to keep any
// already configured.
func promptCredentials(in *bufio.Reader, out io.Writer, cfg *config.Config) error {
	fmt.Fprintln(out, "Last.fm Authentication")
	fmt.Fprintln(out, "======================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "You can get API credentials from: https://www.last.fm/api/account/create")
	fmt.Fprintln(out)

	if cfg.LastFM.APIKey != "" && cfg.LastFM.APISecret != "" {
		fmt.Fprintf(out, "Found existing API credentials.\nAPI Key: %s\n", cfg.LastFM.APIKey)
		fmt.Fprint(out, "\nUse existing credentials? [Y/n]: ")
		response, err := in.ReadString('\n')
		if err != nil {
			response = "y"
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			cfg.LastFM.APIKey = ""
			cfg.LastFM.APISecret = ""
		}
	}

	if cfg.LastFM.APIKey == "" {
		key, err := prompt(in, out, "Enter your Last.fm API Key: ")
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		cfg.LastFM.APIKey = key
	}

	if cfg.LastFM.APISecret == "" {
		secret, err := prompt(in, out, "Enter your Last.fm API Secret: ")
		if err != nil {
			return fmt.Errorf("failed to read API secret: %w", err)
		}
		cfg.LastFM.APISecret = secret
	}

	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" {
		return fmt.Errorf("API key and secret are required")
	}

	return nil
}

// authorize runs the token flow and returns the new session key.
func authorize(ctx context.Context, in *bufio.Reader, out io.Writer, client authenticator) (string, error) {
	fmt.Fprintln(out, "\nGenerating authentication token...")
	token, authURL, err := client.AuthenticateWithToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to generate auth token: %w", err)
	}

	fmt.Fprintln(out, "\nPlease visit this URL to authorize scrobby:")
	fmt.Fprintf(out, "\n  %s\n\n", authURL)
	fmt.Fprintln(out, "After authorizing, press Enter to continue...")
	_, _ = in.ReadString('\n')

	fmt.Fprintln(out, "Retrieving session key...")
	var sessionKey string
	for i := 0; i < sessionRetries; i++ {
		sessionKey, err = client.GetSession(ctx, token)
		if err == nil {
			return sessionKey, nil
		}

		if i < sessionRetries-1 {
			fmt.Fprintf(out, "Failed to retrieve session (attempt %d/%d). Retrying in %v...\n",
				i+1, sessionRetries, sessionRetryDelay)
			time.Sleep(sessionRetryDelay)
		}
	}

	return "", fmt.Errorf("failed to get session key after %d attempts: %w", sessionRetries, err)
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
