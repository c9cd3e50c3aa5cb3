package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"repairdesk/internal/gdrive"
	"repairdesk/internal/logger"
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Connect a Google Drive account for backups",
	Long: `Connect or disconnect the Google Drive account snapshots are uploaded to.

Required environment variables for a personal account:
  GDRIVE_CLIENT_ID     - OAuth client ID of a desktop application
  GDRIVE_CLIENT_SECRET - OAuth client secret

Alternatively set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS to a
service account key; no login is needed then.`,
}

var driveLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Google Drive",
	Long: `Print the Google consent URL and store the session for the authorization
code. After approving, the browser is redirected to GDRIVE_REDIRECT_URL; paste
either that whole address or just its code parameter.`,
	Example: `  repairdesk drive login
  repairdesk drive login --code 4/0AbCd...`,
	Args: cobra.NoArgs,
	RunE: runDriveLogin,
}

var driveLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runDriveLogout,
}

var driveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connected account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), accountLabel(ctx, a))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.AddCommand(driveLoginCmd, driveLogoutCmd, driveStatusCmd)

	driveLoginCmd.Flags().String("code", "", "Authorization code or redirect URL (default: prompt)")
}

func runDriveLogin(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("code")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.userAuth == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Using service account", accountLabel(ctx, a))
			return nil
		}
		if a.cfg.DriveClientID == "" {
			return fmt.Errorf("%w: set GDRIVE_CLIENT_ID and GDRIVE_CLIENT_SECRET", gdrive.ErrNoCredentials)
		}

		state := uuid.NewString()
		if code == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Open this URL in a browser and approve access:")
			fmt.Fprintln(cmd.OutOrStdout(), a.userAuth.AuthCodeURL(state))
			fmt.Fprint(cmd.OutOrStdout(), "\nPaste the code or redirect URL: ")

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(line) == "" {
				return fmt.Errorf("no authorization code entered: %w", err)
			}
			code = line
		}

		parsed, err := authCode(code, state)
		if err != nil {
			return err
		}
		email, err := a.userAuth.Exchange(ctx, parsed)
		if err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}
		if email == "" {
			email = "Google Drive"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", email)
		return nil
	})
}

// authCode accepts a bare code or the redirect URL carrying it. A state in
// the URL must match the one sent.
func authCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("authorization code is empty")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := q.Get("state"); got != "" && state != "" && got != state {
		return "", fmt.Errorf("authorization state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL has no code")
	}
	return code, nil
}

func runDriveLogout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.auth.SignOut(ctx); err != nil {
			return fmt.Errorf("sign out failed: %w", err)
		}
		log := logger.WithComponent("drive")
		log.Info().Msg("Google Drive session removed")
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	})
}
