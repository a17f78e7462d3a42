// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
	repoctlsync "github.com/repoforge/mirror/internal/sync"
	"github.com/repoforge/mirror/pkg/sighandler"
)

var (
	runAll    bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run [repository-id...]",
	Short: "Sync one or more configured repositories.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args, runAll, runDryRun)
	},
}

func RunCmd() *cobra.Command {
	runCmd.Flags().BoolVar(&runAll, "all", false, "Sync every enabled repository.")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report what would change without downloading or writing to the catalog.")
	return runCmd
}

func run(ids []string, all, dryRun bool) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	repos, err := env.SelectRepositories(ids, all)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	ctx, wait := sighandler.New(errCh, syscall.SIGTERM, syscall.SIGINT)

	pipeline := &repoctlsync.Pipeline{
		Catalog:                env.Catalog,
		Pool:                   env.Pool,
		Cache:                  env.Cache,
		Config:                 env.Config,
		Logger:                 env.Logger,
		TempDir:                env.Config.Storage.TempPath,
		MaxConcurrentDownloads: int64(env.Config.Download.Parallel),
		DryRun:                 dryRun,
	}

	go func() {
		var failed bool
		for _, repo := range repos {
			result, err := pipeline.Sync(ctx, repo)
			if err != nil {
				failed = true
				env.Logger.Error("sync failed", "repository", repo.ID, "error", err)
				continue
			}
			fmt.Printf("%s: added=%d removed=%d updated=%d skipped=%d bytes=%d\n",
				repo.ID, result.PackagesAdded, result.PackagesRemoved, result.PackagesUpdated, result.PackagesSkipped, result.BytesDownloaded)
		}
		if failed {
			errCh <- cli.Err("one or more repositories failed to sync")
			return
		}
		errCh <- nil
	}()

	return wait(false)
}
