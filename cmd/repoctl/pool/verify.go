// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/cli"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute checksums for every catalog-referenced pool entry and report drift.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return verify()
	},
}

func VerifyCmd() *cobra.Command {
	return verifyCmd
}

func verify() error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	failures, err := env.Integrity().Verify(context.Background())
	if err != nil {
		return cli.Errf("while verifying pool: %s", err)
	}
	for _, f := range failures {
		fmt.Printf("%s: %s\n", f.SHA256, f.Detail)
	}
	if len(failures) > 0 {
		return cli.Errf("%d pool entries failed verification", len(failures))
	}
	fmt.Println("pool verified clean")
	return nil
}
