// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/repoforge/mirror/cmd/repoctl/content"
	"github.com/repoforge/mirror/cmd/repoctl/db"
	"github.com/repoforge/mirror/cmd/repoctl/pool"
	"github.com/repoforge/mirror/cmd/repoctl/publish"
	"github.com/repoforge/mirror/cmd/repoctl/snapshot"
	"github.com/repoforge/mirror/cmd/repoctl/sync"
	"github.com/repoforge/mirror/internal/cli"
)

func main() {
	cli.Execute(
		sync.RootCmd(),
		snapshot.RootCmd(),
		publish.RootCmd(),
		pool.RootCmd(),
		db.RootCmd(),
		content.RootCmd(),
	)
}
