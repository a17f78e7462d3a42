// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var unpublishCmd = &cobra.Command{
	Use:   "unpublish [target-dir] [snapshot-id]",
	Short: "Remove a materialized target directory and clear its snapshot's published flag.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return unpublish(args[0], args[1])
	},
}

func UnpublishCmd() *cobra.Command {
	return unpublishCmd
}

func unpublish(targetDir, snapshotID string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Publisher().Unpublish(context.Background(), targetDir, snapshotID); err != nil {
		return cli.Errf("while unpublishing: %s", err)
	}
	fmt.Printf("removed %s\n", targetDir)
	return nil
}
