// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var orphanedCmd = &cobra.Command{
	Use:   "orphaned",
	Short: "List repositories present in the catalog but absent from the live configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return orphaned()
	},
}

func OrphanedCmd() *cobra.Command {
	return orphanedCmd
}

func orphaned() error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	repos, err := env.Integrity().OrphanedRepositories(context.Background(), env.ConfiguredRepositoryNames())
	if err != nil {
		return cli.Errf("while scanning for orphaned repositories: %s", err)
	}
	for _, r := range repos {
		fmt.Printf("%s  %s  %s\n", r.ID, r.Name, r.Type)
	}
	fmt.Printf("%d orphaned repositories\n", len(repos))
	return nil
}
