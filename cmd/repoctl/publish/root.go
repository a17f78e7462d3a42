// SPDX-License-Identifier: Apache-2.0

// Package publish implements repoctl's "publish" command tree:
// materializing repositories, snapshots, and views onto a target
// directory, and tearing that materialization back down.
package publish

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "publish",
	Short: "Materialize repositories, snapshots, and views onto a target directory.",
}

func RootCmd() *cobra.Command {
	rootCmd.AddCommand(
		RepositoryCmd(),
		SnapshotCmd(),
		ViewCmd(),
		ViewSnapshotCmd(),
		UnpublishCmd(),
	)
	return rootCmd
}
