// SPDX-License-Identifier: Apache-2.0

// Package integrity implements the pool/catalog consistency checks and
// cleanup operations described by spec.md §4.9: verifying pool bytes
// against what the catalog expects, finding orphaned pool files and
// catalog rows with no surviving payload, and removing configuration
// drift (repositories no longer present in config).
package integrity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/pool"
)

// Checker wraps a Catalog and Pool with the read/cleanup operations pool
// verify/orphaned/missing/cleanup and db orphaned/cleanup need.
type Checker struct {
	Catalog *catalog.Catalog
	Pool    *pool.Pool
}

// VerifyFailure is one content item or repository file whose pool bytes
// no longer match what the catalog recorded.
type VerifyFailure struct {
	SHA256 string
	Detail string
}

// Verify recomputes the checksum and size of every ContentItem and
// RepositoryFile's pool entry, reporting any that fail.
func (c *Checker) Verify(ctx context.Context) ([]VerifyFailure, error) {
	var failures []VerifyFailure

	items, err := c.Catalog.ListAllContentItems(ctx)
	if err != nil {
		return nil, err
	}
	for _, ci := range items {
		if err := c.Pool.Verify(pool.Content, ci.SHA256, ci.Filename, ci.SizeBytes); err != nil {
			failures = append(failures, VerifyFailure{SHA256: ci.SHA256, Detail: fmt.Sprintf("content item %s: %s", ci.Name, err)})
		}
	}

	files, err := c.Catalog.ListAllRepositoryFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, rf := range files {
		filename := filepath.Base(rf.OriginalPath)
		if err := c.Pool.Verify(pool.Files, rf.SHA256, filename, rf.SizeBytes); err != nil {
			failures = append(failures, VerifyFailure{SHA256: rf.SHA256, Detail: fmt.Sprintf("repository file %s: %s", rf.OriginalPath, err)})
		}
	}

	return failures, nil
}

// Orphaned returns pool entries whose sha256 is referenced by neither
// catalog table. The entry's namespace is not consulted: KnownSHA256
// checks content items and repository files alike.
func (c *Checker) Orphaned(ctx context.Context) ([]pool.Entry, error) {
	return c.Pool.Orphans(func(ns pool.Namespace, sha256Hex string) bool {
		known, err := c.Catalog.KnownSHA256(ctx, sha256Hex)
		if err != nil {
			// Treat a lookup failure as "known" rather than risk an
			// orphan scan deleting a live file because of a transient
			// catalog read error.
			return true
		}
		return known
	})
}

// Missing returns catalog rows (content items and repository files)
// whose pool payload can no longer be found on disk.
type Missing struct {
	ContentItems    []catalog.ContentItem
	RepositoryFiles []catalog.RepositoryFile
}

func (c *Checker) MissingRows(ctx context.Context) (*Missing, error) {
	var missing Missing

	items, err := c.Catalog.ListAllContentItems(ctx)
	if err != nil {
		return nil, err
	}
	for _, ci := range items {
		if err := c.Pool.Verify(pool.Content, ci.SHA256, ci.Filename, ci.SizeBytes); errors.Is(err, pool.ErrPoolMiss) {
			missing.ContentItems = append(missing.ContentItems, ci)
		}
	}

	files, err := c.Catalog.ListAllRepositoryFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, rf := range files {
		filename := filepath.Base(rf.OriginalPath)
		if err := c.Pool.Verify(pool.Files, rf.SHA256, filename, rf.SizeBytes); errors.Is(err, pool.ErrPoolMiss) {
			missing.RepositoryFiles = append(missing.RepositoryFiles, rf)
		}
	}

	return &missing, nil
}

// CleanupOrphaned deletes orphaned pool files found by Orphaned. Returns
// the count removed.
func (c *Checker) CleanupOrphaned(ctx context.Context) (int, error) {
	orphans, err := c.Orphaned(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, o := range orphans {
		if err := os.Remove(o.Path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CleanupMissing deletes catalog rows whose pool payload is gone, found
// by MissingRows. Referenced join rows are removed first so no dangling
// repository/snapshot link survives the row itself.
func (c *Checker) CleanupMissing(ctx context.Context) (int, error) {
	missing, err := c.MissingRows(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	err = c.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		for _, ci := range missing.ContentItems {
			if err := s.DeleteContentItem(ctx, ci.ID); err != nil {
				return err
			}
			removed++
		}
		for _, rf := range missing.RepositoryFiles {
			if err := s.DeleteRepositoryFile(ctx, rf.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// OrphanedRepositories returns repositories present in the catalog but
// absent from the live configuration, identified by name (the config
// repository id, per internal/sync's ensureRepository).
func (c *Checker) OrphanedRepositories(ctx context.Context, configuredNames map[string]bool) ([]catalog.Repository, error) {
	all, err := c.Catalog.ListRepositories(ctx, "")
	if err != nil {
		return nil, err
	}
	var orphaned []catalog.Repository
	for _, r := range all {
		if !configuredNames[r.Name] {
			orphaned = append(orphaned, r)
		}
	}
	return orphaned, nil
}

// CleanupOrphanedRepositories removes repository rows absent from the
// live configuration, along with their sync history and snapshots.
// ContentItem/RepositoryFile rows are left untouched: they become
// orphaned in turn and are picked up by the next pool/db orphan scan,
// the same two-phase GC spec.md §4.9 describes for pool cleanup.
func (c *Checker) CleanupOrphanedRepositories(ctx context.Context, configuredNames map[string]bool) (int, error) {
	orphaned, err := c.OrphanedRepositories(ctx, configuredNames)
	if err != nil {
		return 0, err
	}
	removed := 0
	err = c.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		for _, r := range orphaned {
			if err := s.DeleteRepositoryCascade(ctx, r.ID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
