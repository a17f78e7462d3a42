// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	repoctlsync "github.com/repoforge/mirror/internal/sync"
)

var checkUpdatesAll bool

var checkUpdatesCmd = &cobra.Command{
	Use:   "check-updates [repository-id...]",
	Short: "Report upstream packages newer than what is currently synced, without changing anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkUpdates(args, checkUpdatesAll)
	},
}

func CheckUpdatesCmd() *cobra.Command {
	checkUpdatesCmd.Flags().BoolVar(&checkUpdatesAll, "all", false, "Check every enabled repository.")
	return checkUpdatesCmd
}

func checkUpdates(ids []string, all bool) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	repos, err := env.SelectRepositories(ids, all)
	if err != nil {
		return err
	}

	pipeline := &repoctlsync.Pipeline{
		Catalog: env.Catalog,
		Pool:    env.Pool,
		Cache:   env.Cache,
		Config:  env.Config,
	}

	ctx := context.Background()
	var anyUpdates bool
	for _, repo := range repos {
		report, err := pipeline.CheckUpdates(ctx, repo)
		if err != nil {
			return cli.Errf("while checking %s: %s", repo.ID, err)
		}
		for _, u := range report.Updates {
			anyUpdates = true
			fmt.Printf("%s: %s (%s) %s -> %s\n", repo.ID, u.Name, u.Arch, u.CurrentVersion, u.AvailableVersion)
		}
	}
	if !anyUpdates {
		fmt.Println("no updates available")
	}
	return nil
}
