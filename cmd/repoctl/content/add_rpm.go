// SPDX-License-Identifier: Apache-2.0

package content

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/cli"
	rpmparser "github.com/repoforge/mirror/internal/parsers/rpm"
	"github.com/repoforge/mirror/internal/pool"
)

type rpmContentMetadata struct {
	Epoch     string `json:"epoch,omitempty"`
	Arch      string `json:"arch"`
	SourceRPM string `json:"source_rpm,omitempty"`
	Group     string `json:"group,omitempty"`
	License   string `json:"license,omitempty"`
	Vendor    string `json:"vendor,omitempty"`
	BuildTime int64  `json:"build_time,omitempty"`
}

var addRPMCmd = &cobra.Command{
	Use:   "add-rpm [repository-id] [rpm-file]",
	Short: "Read an RPM's header and add it to a hosted-mode repository.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addRPM(args[0], args[1])
	},
}

func AddRPMCmd() *cobra.Command {
	return addRPMCmd
}

// addRPM implements hosted-mode content ingestion: rather than a sync
// pipeline discovering packages from an upstream primary.xml, an operator
// points repoctl at a local .rpm file. Its header is read directly
// (ReadPackageHeader), copied into the pool content namespace, and
// recorded as a ContentItem linked to the named repository, so the next
// publish regenerates primary.xml/repomd.xml including it.
func addRPM(repositoryID, rpmPath string) error {
	env, err := cli.Open(cli.ConfigPath())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	repo, err := env.Catalog.RepositoryByName(ctx, repositoryID)
	if err != nil {
		return cli.Errf("repository %s not found: %s", repositoryID, err)
	}
	if repo.Mode != catalog.ModeHosted {
		return cli.Errf("repository %s is mode %q, not hosted", repositoryID, repo.Mode)
	}
	if repo.Type != catalog.RPM {
		return cli.Errf("repository %s is type %q, not rpm", repositoryID, repo.Type)
	}

	pkg, err := rpmparser.ReadPackageHeader(rpmPath)
	if err != nil {
		return cli.Errf("while reading %s: %s", rpmPath, err)
	}

	sha256Hex, poolPath, size, err := env.Pool.Add(rpmPath, filepath.Base(rpmPath), pool.Content)
	if err != nil {
		return cli.Errf("while adding %s to pool: %s", rpmPath, err)
	}

	meta, err := json.Marshal(rpmContentMetadata{
		Epoch: pkg.Epoch, Arch: pkg.Arch, SourceRPM: pkg.SourceRPM,
		Group: pkg.Group, License: pkg.License, Vendor: pkg.Vendor, BuildTime: pkg.BuildTime,
	})
	if err != nil {
		return err
	}

	ci := &catalog.ContentItem{
		ContentType:     catalog.RPM,
		Name:            pkg.Name,
		Version:         pkg.VersionString(),
		SHA256:          sha256Hex,
		SizeBytes:       size,
		Filename:        filepath.Base(rpmPath),
		PoolPath:        poolPath,
		ContentMetadata: string(meta),
	}
	if err := env.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		if err := s.UpsertContentItem(ctx, ci); err != nil {
			return err
		}
		return s.LinkRepositoryContentItem(ctx, repo.ID, ci.ID)
	}); err != nil {
		return cli.Errf("while recording content item: %s", err)
	}

	fmt.Printf("added %s (%s) to %s\n", pkg.NEVRA(), sha256Hex, repositoryID)
	return nil
}
