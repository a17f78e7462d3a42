// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var orphanedCmd = &cobra.Command{
	Use:   "orphaned",
	Short: "List pool files whose checksum is referenced by neither catalog table.",
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

	entries, err := env.Integrity().Orphaned(context.Background())
	if err != nil {
		return cli.Errf("while scanning for orphans: %s", err)
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %d\n", e.SHA256, e.Path, e.Size)
	}
	fmt.Printf("%d orphaned pool entries\n", len(entries))
	return nil
}
