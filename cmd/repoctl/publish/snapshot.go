// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	repoctlpublish "github.com/repoforge/mirror/internal/publish"
)

var snapshotMirrorTo string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [snapshot-id] [target-dir]",
	Short: "Publish a snapshot's frozen contents onto target-dir.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSnapshot(args[0], args[1])
	},
}

func SnapshotCmd() *cobra.Command {
	snapshotCmd.Flags().StringVar(&snapshotMirrorTo, "mirror-to", "", "Also upload the published tree to this bucket URL (s3://, gs://, azblob://, file://).")
	return snapshotCmd
}

func publishSnapshot(snapshotID, targetDir string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.Publisher().PublishSnapshot(ctx, snapshotID, targetDir); err != nil {
		return cli.Errf("while publishing: %s", err)
	}
	fmt.Printf("published snapshot %s to %s\n", snapshotID, targetDir)

	if snapshotMirrorTo != "" {
		if err := repoctlpublish.MirrorToBucket(ctx, targetDir, snapshotMirrorTo); err != nil {
			return cli.Errf("while mirroring to bucket: %s", err)
		}
		fmt.Printf("mirrored %s to %s\n", targetDir, snapshotMirrorTo)
	}
	return nil
}
