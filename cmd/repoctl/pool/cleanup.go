// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var (
	cleanupOrphaned bool
	cleanupMissing  bool
	cleanupDryRun   bool
	cleanupForce    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete orphaned pool files and/or catalog rows whose payload is missing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanup(cleanupOrphaned, cleanupMissing, cleanupDryRun, cleanupForce)
	},
}

func CleanupCmd() *cobra.Command {
	cleanupCmd.Flags().BoolVar(&cleanupOrphaned, "orphaned", false, "Remove orphaned pool files.")
	cleanupCmd.Flags().BoolVar(&cleanupMissing, "missing", false, "Remove catalog rows whose pool payload is gone.")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report what would be removed without removing it.")
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "Skip the confirmation prompt.")
	return cleanupCmd
}

func cleanup(orphaned, missing, dryRun, force bool) error {
	if !orphaned && !missing {
		return cli.Err("specify --orphaned and/or --missing")
	}

	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	checker := env.Integrity()

	var orphanCount, missingCount int
	if orphaned {
		entries, err := checker.Orphaned(ctx)
		if err != nil {
			return cli.Errf("while scanning for orphans: %s", err)
		}
		orphanCount = len(entries)
	}
	if missing {
		rows, err := checker.MissingRows(ctx)
		if err != nil {
			return cli.Errf("while scanning for missing payloads: %s", err)
		}
		missingCount = len(rows.ContentItems) + len(rows.RepositoryFiles)
	}

	if dryRun {
		fmt.Printf("would remove %d orphaned pool entries and %d catalog rows with missing payloads\n", orphanCount, missingCount)
		return nil
	}

	if orphanCount+missingCount == 0 {
		fmt.Println("nothing to clean up")
		return nil
	}

	if !force && !cli.Confirm(fmt.Sprintf("remove %d orphaned pool entries and %d catalog rows with missing payloads? [y/N] ", orphanCount, missingCount)) {
		return cli.Err("cleanup aborted")
	}

	if orphaned {
		n, err := checker.CleanupOrphaned(ctx)
		if err != nil {
			return cli.Errf("while removing orphaned pool entries: %s", err)
		}
		fmt.Printf("removed %d orphaned pool entries\n", n)
	}
	if missing {
		n, err := checker.CleanupMissing(ctx)
		if err != nil {
			return cli.Errf("while removing rows with missing payloads: %s", err)
		}
		fmt.Printf("removed %d catalog rows\n", n)
	}
	return nil
}
