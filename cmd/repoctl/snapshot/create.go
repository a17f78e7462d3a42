// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var createDescription string

var createCmd = &cobra.Command{
	Use:   "create [repository-id] [name]",
	Short: "Create a snapshot of a repository's current contents.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return create(args[0], args[1], createDescription)
	},
}

func CreateCmd() *cobra.Command {
	createCmd.Flags().StringVar(&createDescription, "description", "", "Free-form description stored with the snapshot.")
	return createCmd
}

func create(repositoryID, name, description string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	repoCfg, err := env.RepositoryConfig(repositoryID)
	if err != nil {
		return cli.Errf("%s", err)
	}
	repo, err := env.Catalog.RepositoryByName(context.Background(), repoCfg.ID)
	if err != nil {
		return cli.Errf("repository %s has never been synced: %s", repositoryID, err)
	}

	snap, err := env.Snapshot().Create(context.Background(), repo.ID, name, description)
	if err != nil {
		return cli.Errf("while creating snapshot: %s", err)
	}
	fmt.Printf("created snapshot %s (%s)\n", snap.Name, snap.ID)
	return nil
}
