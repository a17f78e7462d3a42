// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List catalog rows whose pool payload no longer exists on disk.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return missing()
	},
}

func MissingCmd() *cobra.Command {
	return missingCmd
}

func missing() error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	m, err := env.Integrity().MissingRows(context.Background())
	if err != nil {
		return cli.Errf("while scanning for missing payloads: %s", err)
	}
	for _, ci := range m.ContentItems {
		fmt.Printf("content item  %s  %s  %s\n", ci.ID, ci.Name, ci.SHA256)
	}
	for _, rf := range m.RepositoryFiles {
		fmt.Printf("repository file  %s  %s  %s\n", rf.ID, rf.OriginalPath, rf.SHA256)
	}
	fmt.Printf("%d missing rows\n", len(m.ContentItems)+len(m.RepositoryFiles))
	return nil
}
