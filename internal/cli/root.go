// SPDX-License-Identifier: Apache-2.0

// Package cli is repoctl's command-line surface: a cobra root command
// plus the shared Env every subcommand opens its catalog/pool/cache
// through.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const FlagNameConfig = "config"

var rootCmd = &cobra.Command{
	Use:   "repoctl",
	Short: "Operations related to mirrored package repositories.",
}

// RegisterFlags registers the flags common to every subcommand.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagNameConfig, "", "Path to the repoctl configuration file.")
}

// ConfigPath returns the --config flag's value.
func ConfigPath() string {
	path, _ := rootCmd.Flags().GetString(FlagNameConfig)
	return path
}

// Execute registers cmds on the root command and runs it. Exit code is 0
// on success, 1 on any failure, per spec's external-interface contract.
func Execute(cmds ...*cobra.Command) {
	RegisterFlags(rootCmd)
	rootCmd.AddCommand(cmds...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
