// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	"github.com/repoforge/mirror/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list [repository-id]",
	Short: "List a repository's snapshots, newest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return list(args[0])
	},
}

func ListCmd() *cobra.Command {
	return listCmd
}

func list(repositoryID string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	repoCfg, err := env.RepositoryConfig(repositoryID)
	if err != nil {
		return cli.Errf("%s", err)
	}
	ctx := context.Background()
	repo, err := env.Catalog.RepositoryByName(ctx, repoCfg.ID)
	if err != nil {
		return cli.Errf("repository %s has never been synced: %s", repositoryID, err)
	}

	snaps, err := env.Catalog.ListSnapshots(ctx, repo.ID)
	if err != nil {
		return cli.Errf("while listing snapshots: %s", err)
	}

	for _, s := range snaps {
		published := ""
		if s.IsPublished {
			published = " published=" + s.PublishedPath
		}
		fmt.Printf("%s\t%s\tpackages=%d\tsize=%d\tcreated=%s%s\n",
			s.ID, s.Name, s.PackageCount, s.TotalSizeBytes, utils.TimeToString(s.CreatedAt), published)
	}
	return nil
}
