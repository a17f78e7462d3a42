// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	repoctlpublish "github.com/repoforge/mirror/internal/publish"
)

var viewMirrorTo string

var viewCmd = &cobra.Command{
	Use:   "view [view-name] [target-dir]",
	Short: "Publish every repository in a view, one subdirectory per member, onto target-dir.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishView(args[0], args[1])
	},
}

func ViewCmd() *cobra.Command {
	viewCmd.Flags().StringVar(&viewMirrorTo, "mirror-to", "", "Also upload the published tree to this bucket URL (s3://, gs://, azblob://, file://).")
	return viewCmd
}

func publishView(viewName, targetDir string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.Publisher().PublishView(ctx, viewName, targetDir); err != nil {
		return cli.Errf("while publishing view: %s", err)
	}
	fmt.Printf("published view %s to %s\n", viewName, targetDir)

	if viewMirrorTo != "" {
		if err := repoctlpublish.MirrorToBucket(ctx, targetDir, viewMirrorTo); err != nil {
			return cli.Errf("while mirroring to bucket: %s", err)
		}
		fmt.Printf("mirrored %s to %s\n", targetDir, viewMirrorTo)
	}
	return nil
}
