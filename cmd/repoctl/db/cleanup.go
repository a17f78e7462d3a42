// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var (
	cleanupOrphaned bool
	cleanupForce    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove repositories (and their cascaded sync history and snapshots) absent from configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanup(cleanupOrphaned, cleanupForce)
	},
}

func CleanupCmd() *cobra.Command {
	cleanupCmd.Flags().BoolVar(&cleanupOrphaned, "orphaned", false, "Remove repositories absent from configuration.")
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "Skip the confirmation prompt.")
	return cleanupCmd
}

func cleanup(orphaned, force bool) error {
	if !orphaned {
		return cli.Err("specify --orphaned")
	}

	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	names := env.ConfiguredRepositoryNames()

	repos, err := env.Integrity().OrphanedRepositories(ctx, names)
	if err != nil {
		return cli.Errf("while scanning for orphaned repositories: %s", err)
	}
	if len(repos) == 0 {
		fmt.Println("nothing to clean up")
		return nil
	}

	if !force && !cli.Confirm(fmt.Sprintf("remove %d repositories no longer present in configuration? [y/N] ", len(repos))) {
		return cli.Err("cleanup aborted")
	}

	n, err := env.Integrity().CleanupOrphanedRepositories(ctx, names)
	if err != nil {
		return cli.Errf("while removing orphaned repositories: %s", err)
	}
	fmt.Printf("removed %d repositories\n", n)
	return nil
}
