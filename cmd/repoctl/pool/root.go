// SPDX-License-Identifier: Apache-2.0

// Package pool implements repoctl's "pool" command tree: verifying,
// listing, and cleaning up the content-addressed pool against what the
// catalog expects, per spec.md §4.9.
package pool

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "pool",
	Short: "Integrity checks and cleanup for the content-addressed pool.",
}

func RootCmd() *cobra.Command {
	rootCmd.AddCommand(
		VerifyCmd(),
		OrphanedCmd(),
		MissingCmd(),
		CleanupCmd(),
	)
	return rootCmd
}
