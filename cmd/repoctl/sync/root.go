// SPDX-License-Identifier: Apache-2.0

// Package sync implements repoctl's "sync" command tree: running the
// sync pipeline against configured repositories and previewing upstream
// changes without writing anything.
package sync

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Mirror configured repositories into the pool and catalog.",
}

func RootCmd() *cobra.Command {
	rootCmd.AddCommand(
		RunCmd(),
		CheckUpdatesCmd(),
	)
	return rootCmd
}
