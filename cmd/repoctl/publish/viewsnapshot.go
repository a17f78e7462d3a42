// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	repoctlpublish "github.com/repoforge/mirror/internal/publish"
)

var viewSnapshotMirrorTo string

var viewSnapshotCmd = &cobra.Command{
	Use:   "view-snapshot [view-name] [view-snapshot-name] [target-dir]",
	Short: "Publish every per-repository snapshot recorded by a view snapshot onto target-dir.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishViewSnapshot(args[0], args[1], args[2])
	},
}

func ViewSnapshotCmd() *cobra.Command {
	viewSnapshotCmd.Flags().StringVar(&viewSnapshotMirrorTo, "mirror-to", "", "Also upload the published tree to this bucket URL (s3://, gs://, azblob://, file://).")
	return viewSnapshotCmd
}

func publishViewSnapshot(viewName, viewSnapshotName, targetDir string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.Publisher().PublishViewSnapshot(ctx, viewName, viewSnapshotName, targetDir); err != nil {
		return cli.Errf("while publishing view snapshot: %s", err)
	}
	fmt.Printf("published view snapshot %s/%s to %s\n", viewName, viewSnapshotName, targetDir)

	if viewSnapshotMirrorTo != "" {
		if err := repoctlpublish.MirrorToBucket(ctx, targetDir, viewSnapshotMirrorTo); err != nil {
			return cli.Errf("while mirroring to bucket: %s", err)
		}
		fmt.Printf("mirrored %s to %s\n", targetDir, viewSnapshotMirrorTo)
	}
	return nil
}
