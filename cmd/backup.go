package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"repairdesk/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Google Drive snapshots",
	Long: `Manage dataset snapshots on Google Drive.

With auto-backup enabled, every change is followed by an upload once no
further change has happened for BACKUP_QUIET_PERIOD (default 3s). After each
upload, snapshots older than BACKUP_RETENTION (default 30 days) are deleted.
Connect an account first with "repairdesk drive login".`,
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Upload a snapshot immediately",
	Args:  cobra.NoArgs,
	RunE:  runBackupNow,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [snapshot-id]",
	Short: "Restore a snapshot (default: the newest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupRestore,
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete snapshots older than the retention window",
	Args:  cobra.NoArgs,
	RunE:  runBackupCleanup,
}

var backupEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn auto-backup on",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return setAutoBackup(cmd, true) },
}

var backupDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn auto-backup off",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return setAutoBackup(cmd, false) },
}

var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show auto-backup and account state",
	Args:  cobra.NoArgs,
	RunE:  runBackupStatus,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupNowCmd, backupListCmd, backupRestoreCmd, backupCleanupCmd,
		backupEnableCmd, backupDisableCmd, backupStatusCmd)

	backupRestoreCmd.Flags().Bool("yes", false, "Confirm replacing local records")
}

func runBackupNow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		r, err := a.scheduler.BackupNow(ctx)
		if err != nil {
			return signInHint(fmt.Errorf("backup failed: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes)\n", r.Snapshot.Name, r.Snapshot.Size)
		if len(r.Removed) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired snapshot(s)\n", len(r.Removed))
		}
		if r.Cleanup != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: cleanup incomplete: %v\n", r.Cleanup)
		}
		return nil
	})
}

func runBackupList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		snaps, err := a.scheduler.List(ctx)
		if err != nil {
			return signInHint(err)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODIFIED\tSIZE")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.Name, s.ModifiedTime.Local().Format(time.DateTime), s.Size)
		}
		return w.Flush()
	})
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to replace local records without --yes")
	}
	var id string
	if len(args) == 1 {
		id = args[0]
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.scheduler.Restore(ctx, id)
		if err != nil {
			return signInHint(err)
		}
		printImportResult(cmd, res)
		return res.Err()
	})
}

func runBackupCleanup(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if !a.remote.Authenticated(ctx) {
			return signInHint(backup.ErrNotSignedIn)
		}
		removed, err := a.scheduler.Cleanup(ctx)
		for _, s := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", s.Name)
		}
		if err != nil {
			return signInHint(err)
		}
		if len(removed) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No expired snapshots")
		}
		return nil
	})
}

func setAutoBackup(cmd *cobra.Command, enabled bool) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.settings.SetAutoBackupEnabled(ctx, enabled); err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
			if !a.auth.Authenticated(ctx) {
				fmt.Fprintln(cmd.ErrOrStderr(), `Warning: no Drive account connected, run "repairdesk drive login"`)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Auto-backup %s\n", state)
		return nil
	})
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		cfg := a.scheduler.Config()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

		fmt.Fprintf(w, "Auto-backup:\t%t\n", a.settings.AutoBackupEnabled(ctx))
		fmt.Fprintf(w, "Account:\t%s\n", accountLabel(ctx, a))

		last, ok, err := a.settings.LastBackup(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(w, "Last backup:\tunknown (%v)\n", err)
		case ok:
			fmt.Fprintf(w, "Last backup:\t%s\n", last.Local().Format(time.DateTime))
		default:
			fmt.Fprintf(w, "Last backup:\tnever\n")
		}

		fmt.Fprintf(w, "Quiet period:\t%s\n", cfg.QuietPeriod)
		fmt.Fprintf(w, "Retention:\t%s\n", cfg.Retention)
		fmt.Fprintf(w, "Prefix:\t%s\n", cfg.Prefix)
		return w.Flush()
	})
}

func accountLabel(ctx context.Context, a *app) string {
	if !a.auth.Authenticated(ctx) {
		return "not connected"
	}
	if email := a.auth.Email(ctx); email != "" {
		return email
	}
	return "connected"
}

func signInHint(err error) error {
	if errors.Is(err, backup.ErrNotSignedIn) || errors.Is(err, backup.ErrUnauthorized) {
		return fmt.Errorf(`%w (run "repairdesk drive login")`, err)
	}
	return err
}
