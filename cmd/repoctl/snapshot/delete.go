// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete [snapshot-id]",
	Short: "Delete a snapshot and its membership rows.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteSnapshot(args[0], deleteForce)
	},
}

func DeleteCmd() *cobra.Command {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Delete a published snapshot, unpublishing it first.")
	return deleteCmd
}

func deleteSnapshot(snapshotID string, force bool) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Snapshot().Delete(context.Background(), snapshotID, force); err != nil {
		return cli.Errf("while deleting snapshot: %s", err)
	}
	fmt.Printf("deleted snapshot %s\n", snapshotID)
	return nil
}
