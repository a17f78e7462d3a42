// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	repoctlpublish "github.com/repoforge/mirror/internal/publish"
)

var repositoryMirrorTo string

var repositoryCmd = &cobra.Command{
	Use:   "repository [repository-id] [target-dir]",
	Short: "Publish a repository's current contents onto target-dir.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishRepository(args[0], args[1])
	},
}

func RepositoryCmd() *cobra.Command {
	repositoryCmd.Flags().StringVar(&repositoryMirrorTo, "mirror-to", "", "Also upload the published tree to this bucket URL (s3://, gs://, azblob://, file://).")
	return repositoryCmd
}

func publishRepository(repositoryID, targetDir string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	repo, err := env.Catalog.RepositoryByName(ctx, repositoryID)
	if err != nil {
		return cli.Errf("repository %s has never been synced: %s", repositoryID, err)
	}

	if err := env.Publisher().PublishRepository(ctx, repo.ID, targetDir); err != nil {
		return cli.Errf("while publishing: %s", err)
	}
	fmt.Printf("published %s to %s\n", repositoryID, targetDir)

	if repositoryMirrorTo != "" {
		if err := repoctlpublish.MirrorToBucket(ctx, targetDir, repositoryMirrorTo); err != nil {
			return cli.Errf("while mirroring to bucket: %s", err)
		}
		fmt.Printf("mirrored %s to %s\n", targetDir, repositoryMirrorTo)
	}
	return nil
}
