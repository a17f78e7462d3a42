// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements repoctl's "snapshot" command tree: create,
// copy, delete, list, and diff operations over the catalog's Snapshot
// Manager.
package snapshot

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Operations related to repository snapshots.",
}

func RootCmd() *cobra.Command {
	rootCmd.AddCommand(
		CreateCmd(),
		CopyCmd(),
		DeleteCmd(),
		DiffCmd(),
		ListCmd(),
	)
	return rootCmd
}
