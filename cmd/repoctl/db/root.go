// SPDX-License-Identifier: Apache-2.0

// Package db implements repoctl's "db" command tree: finding and
// removing repositories the catalog still tracks but the live
// configuration no longer names, per spec.md §4.9.
package db

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "db",
	Short: "Integrity checks and cleanup for repositories dropped from configuration.",
}

func RootCmd() *cobra.Command {
	rootCmd.AddCommand(
		OrphanedCmd(),
		CleanupCmd(),
	)
	return rootCmd
}
