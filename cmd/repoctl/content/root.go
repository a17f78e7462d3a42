// SPDX-License-Identifier: Apache-2.0

// Package content implements repoctl's "content" command tree: adding
// locally-authored packages to a hosted-mode repository, per spec.md's
// "Hosted mode — locally authored repository (no upstream)".
package content

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "content",
	Short: "Add locally-authored packages to a hosted repository.",
}

func RootCmd() *cobra.Command {
	rootCmd.AddCommand(
		AddRPMCmd(),
	)
	return rootCmd
}
