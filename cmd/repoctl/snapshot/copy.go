// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var copyCmd = &cobra.Command{
	Use:   "copy [source-snapshot-id] [new-name]",
	Short: "Duplicate a snapshot's membership under a new name.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return copySnapshot(args[0], args[1])
	},
}

func CopyCmd() *cobra.Command {
	return copyCmd
}

func copySnapshot(sourceID, newName string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	snap, err := env.Snapshot().Copy(context.Background(), sourceID, newName)
	if err != nil {
		return cli.Errf("while copying snapshot: %s", err)
	}
	fmt.Printf("created snapshot %s (%s)\n", snap.Name, snap.ID)
	return nil
}
