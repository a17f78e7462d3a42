// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var diffCmd = &cobra.Command{
	Use:   "diff [from-snapshot-id] [to-snapshot-id]",
	Short: "Show added, removed, and version-changed packages between two snapshots.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return diff(args[0], args[1])
	},
}

func DiffCmd() *cobra.Command {
	return diffCmd
}

func diff(fromID, toID string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	d, err := env.Snapshot().Diff(context.Background(), fromID, toID)
	if err != nil {
		return cli.Errf("while diffing snapshots: %s", err)
	}

	for _, ci := range d.Added {
		fmt.Printf("+ %s %s\n", ci.Name, ci.Version)
	}
	for _, ci := range d.Removed {
		fmt.Printf("- %s %s\n", ci.Name, ci.Version)
	}
	for _, v := range d.Updated {
		fmt.Printf("~ %s (%s) %s -> %s\n", v.Name, v.Arch, v.FromVersion, v.ToVersion)
	}
	return nil
}
