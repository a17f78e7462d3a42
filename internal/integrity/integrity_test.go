// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/pool"
)

func newTestChecker(t *testing.T) (*Checker, *catalog.Catalog, *pool.Pool) {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	p, err := pool.New(t.TempDir())
	require.NoError(t, err)

	return &Checker{Catalog: cat, Pool: p}, cat, p
}

func addPooledContentItem(t *testing.T, cat *catalog.Catalog, p *pool.Pool, name, data string) *catalog.ContentItem {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(src, []byte(data), 0o644))

	sha, poolPath, size, err := p.Add(src, name, pool.Content)
	require.NoError(t, err)

	ci := &catalog.ContentItem{
		ContentType: catalog.RPM, Name: name, Version: "1.0", SHA256: sha,
		SizeBytes: size, Filename: name, PoolPath: poolPath, ContentMetadata: "{}",
	}
	require.NoError(t, cat.WithTx(context.Background(), func(s *catalog.Session) error {
		return s.UpsertContentItem(context.Background(), ci)
	}))
	return ci
}

func TestVerifyDetectsCorruptedContentItem(t *testing.T) {
	checker, cat, p := newTestChecker(t)
	ctx := context.Background()

	ci := addPooledContentItem(t, cat, p, "bash.rpm", "rpm bytes")

	failures, err := checker.Verify(ctx)
	require.NoError(t, err)
	require.Empty(t, failures)

	require.NoError(t, os.WriteFile(filepath.Join(p.Root(), ci.PoolPath), []byte("corrupted"), 0o644))

	failures, err = checker.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, ci.SHA256, failures[0].SHA256)
}

func TestOrphanedReturnsUnreferencedPoolFiles(t *testing.T) {
	checker, cat, p := newTestChecker(t)
	ctx := context.Background()

	addPooledContentItem(t, cat, p, "bash.rpm", "rpm bytes")

	orphanSrc := filepath.Join(t.TempDir(), "orphan.rpm")
	require.NoError(t, os.WriteFile(orphanSrc, []byte("untracked"), 0o644))
	_, _, _, err := p.Add(orphanSrc, "orphan.rpm", pool.Content)
	require.NoError(t, err)

	orphans, err := checker.Orphaned(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, "orphan.rpm", orphans[0].Filename)
}

func TestCleanupMissingRemovesRowsWithNoPoolPayload(t *testing.T) {
	checker, cat, p := newTestChecker(t)
	ctx := context.Background()

	ci := addPooledContentItem(t, cat, p, "bash.rpm", "rpm bytes")
	require.NoError(t, os.Remove(filepath.Join(p.Root(), ci.PoolPath)))

	missing, err := checker.MissingRows(ctx)
	require.NoError(t, err)
	require.Len(t, missing.ContentItems, 1)

	n, err := checker.CleanupMissing(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = cat.ContentItemBySHA256(ctx, ci.SHA256)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCleanupOrphanedRepositoriesRemovesUnconfiguredRepository(t *testing.T) {
	checker, cat, _ := newTestChecker(t)
	ctx := context.Background()

	var repo *catalog.Repository
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: "dropped-feed", Type: catalog.RPM, Feed: "https://example.test", Enabled: true, Mode: catalog.ModeMirror}
		return s.CreateRepository(ctx, repo)
	}))

	orphaned, err := checker.OrphanedRepositories(ctx, map[string]bool{"kept-feed": true})
	require.NoError(t, err)
	require.Len(t, orphaned, 1)
	require.Equal(t, "dropped-feed", orphaned[0].Name)

	n, err := checker.CleanupOrphanedRepositories(ctx, map[string]bool{"kept-feed": true})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = cat.RepositoryByID(ctx, repo.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
