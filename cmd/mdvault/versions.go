package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mdvault/internal/app"
)

const timeLayout = "2006-01-02 15:04:05"

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Manage file versions",
}

var versionsListCmd = &cobra.Command{
	Use:   "list PATH",
	Short: "List versions of a file, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd.Context(), "versions list", func(ctx context.Context, a *app.App) error {
			versions, err := a.Store().GetVersions(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Println("No versions.")
				return nil
			}
			for _, v := range versions {
				fmt.Printf("%s  %s  %8d  %s\n", v.ID, v.Timestamp.Local().Format(timeLayout), v.Size, v.Note)
			}
			return nil
		})
	},
}

var versionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the content of a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "versions show", func(ctx context.Context, a *app.App) error {
			v, err := a.Store().GetVersion(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Print(v.Content)
			return nil
		})
	},
}

var versionsCreateCmd = &cobra.Command{
	Use:   "create PATH",
	Short: "Snapshot the current content of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")

		return withApp(cmd.Context(), "versions create", func(ctx context.Context, a *app.App) error {
			res, err := a.SnapshotFile(ctx, args[0], note)
			if err != nil {
				return err
			}
			if res.IsDuplicate {
				fmt.Printf("Unchanged since version %s\n", res.ID)
				return nil
			}
			fmt.Printf("Created version %s\n", res.ID)
			return nil
		})
	},
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a version over its file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "versions restore", func(ctx context.Context, a *app.App) error {
			res, err := a.Store().RestoreVersion(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Restored %s to version %s (%s)\n", res.FilePath, res.RestoredVersionID, res.RestoredTimestamp.Local().Format(timeLayout))
			if res.BackupVersionID != "" {
				fmt.Printf("Previous content saved as version %s\n", res.BackupVersionID)
			}
			return nil
		})
	},
}

var versionsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "versions delete", func(ctx context.Context, a *app.App) error {
			if err := a.Store().DeleteVersion(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted version %s\n", args[0])
			return nil
		})
	},
}

var versionsDiffCmd = &cobra.Command{
	Use:   "diff ID1 ID2",
	Short: "Compare two versions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		statsOnly, _ := cmd.Flags().GetBool("stat")

		return withApp(cmd.Context(), "versions diff", func(ctx context.Context, a *app.App) error {
			report, err := a.Store().CompareVersions(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !statsOnly {
				fmt.Print(report.UnifiedDiff)
			}
			s := report.Stats
			fmt.Printf("%d added, %d removed, %d modified, %d unchanged\n", s.LinesAdded, s.LinesRemoved, s.LinesModified, s.LinesUnchanged)
			return nil
		})
	},
}

var versionsCleanupCmd = &cobra.Command{
	Use:   "cleanup PATH",
	Short: "Delete all but the newest versions of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "versions cleanup", func(ctx context.Context, a *app.App) error {
			keep, _ := cmd.Flags().GetInt("keep")
			if !cmd.Flags().Changed("keep") {
				keep = a.Config().Versions.KeepCount
			}
			res, err := a.Store().CleanupOldVersions(ctx, args[0], keep)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d version(s), %d remaining\n", res.DeletedCount, res.RemainingCount)
			return nil
		})
	},
}

var versionsFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files that have versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "versions files", func(ctx context.Context, a *app.App) error {
			files, err := a.Store().ListVersionedFiles(ctx)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No versioned files.")
				return nil
			}
			for _, f := range files {
				fmt.Printf("%4d  %s  %s\n", f.VersionCount, f.LatestTimestamp.Local().Format(timeLayout), f.Path)
			}
			return nil
		})
	},
}

var versionsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the version index from stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "versions reindex", func(ctx context.Context, a *app.App) error {
			n, err := a.Store().Reindex(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d version(s)\n", n)
			return nil
		})
	},
}

func init() {
	versionsCmd.AddCommand(versionsListCmd)
	versionsListCmd.Flags().IntP("limit", "n", 50, "Maximum number of versions to show")
	versionsCmd.AddCommand(versionsShowCmd)
	versionsCmd.AddCommand(versionsCreateCmd)
	versionsCreateCmd.Flags().StringP("note", "m", "manual save", "Note stored with the version")
	versionsCmd.AddCommand(versionsRestoreCmd)
	versionsCmd.AddCommand(versionsDeleteCmd)
	versionsCmd.AddCommand(versionsDiffCmd)
	versionsDiffCmd.Flags().Bool("stat", false, "Print only line counts")
	versionsCmd.AddCommand(versionsCleanupCmd)
	versionsCleanupCmd.Flags().IntP("keep", "k", 0, "Number of versions to keep (default: versions.keep_count)")
	versionsCmd.AddCommand(versionsFilesCmd)
	versionsCmd.AddCommand(versionsReindexCmd)
}
