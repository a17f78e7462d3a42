// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoforge/mirror/internal/catalog"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func mustCreateRepository(t *testing.T, cat *catalog.Catalog, name string) *catalog.Repository {
	t.Helper()
	var repo *catalog.Repository
	err := cat.WithTx(context.Background(), func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: name, Type: catalog.RPM, Feed: "https://example.test/repo", Enabled: true, Mode: catalog.ModeMirror}
		return s.CreateRepository(context.Background(), repo)
	})
	require.NoError(t, err)
	return repo
}

func mustAddContentItem(t *testing.T, cat *catalog.Catalog, repositoryID, name, version, sha256 string) {
	t.Helper()
	err := cat.WithTx(context.Background(), func(s *catalog.Session) error {
		ci := &catalog.ContentItem{
			ContentType: catalog.RPM, Name: name, Version: version, SHA256: sha256,
			SizeBytes: 1, Filename: name + "-" + version + ".rpm", PoolPath: "/pool/" + sha256,
			ContentMetadata: `{"arch":"x86_64"}`,
		}
		if err := s.UpsertContentItem(context.Background(), ci); err != nil {
			return err
		}
		return s.LinkRepositoryContentItem(context.Background(), repositoryID, ci.ID)
	})
	require.NoError(t, err)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	cat := newTestCatalog(t)
	m := &Manager{Catalog: cat}
	repo := mustCreateRepository(t, cat, "rocky9-baseos")
	mustAddContentItem(t, cat, repo.ID, "bash", "5.1.8-6.el9", "aaaa")

	ctx := context.Background()
	snap, err := m.Create(ctx, repo.ID, "nightly", "first pass")
	require.NoError(t, err)
	require.Equal(t, 1, snap.PackageCount)

	_, err = m.Create(ctx, repo.ID, "nightly", "duplicate")
	require.Error(t, err)
}

func TestCopyDuplicatesMembershipOnly(t *testing.T) {
	cat := newTestCatalog(t)
	m := &Manager{Catalog: cat}
	repo := mustCreateRepository(t, cat, "rocky9-baseos")
	mustAddContentItem(t, cat, repo.ID, "bash", "5.1.8-6.el9", "aaaa")

	ctx := context.Background()
	src, err := m.Create(ctx, repo.ID, "nightly", "")
	require.NoError(t, err)

	dst, err := m.Copy(ctx, src.ID, "nightly-copy")
	require.NoError(t, err)
	require.Equal(t, src.PackageCount, dst.PackageCount)
	require.NotEqual(t, src.ID, dst.ID)

	items, err := cat.SnapshotContentItems(ctx, dst.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestDeleteRefusesPublishedWithoutForce(t *testing.T) {
	cat := newTestCatalog(t)
	m := &Manager{Catalog: cat}
	repo := mustCreateRepository(t, cat, "rocky9-baseos")
	mustAddContentItem(t, cat, repo.ID, "bash", "5.1.8-6.el9", "aaaa")

	ctx := context.Background()
	snap, err := m.Create(ctx, repo.ID, "nightly", "")
	require.NoError(t, err)

	publishDir := t.TempDir()
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		return s.SetSnapshotPublished(ctx, snap.ID, true, publishDir)
	}))

	require.Error(t, m.Delete(ctx, snap.ID, false))
	require.NoError(t, m.Delete(ctx, snap.ID, true))

	_, err = cat.SnapshotByID(ctx, snap.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestDiffClassifiesAddedRemovedUpdated(t *testing.T) {
	cat := newTestCatalog(t)
	m := &Manager{Catalog: cat}
	repo := mustCreateRepository(t, cat, "rocky9-baseos")

	ctx := context.Background()
	mustAddContentItem(t, cat, repo.ID, "bash", "5.1.8-6.el9", "aaaa")
	mustAddContentItem(t, cat, repo.ID, "curl", "7.76.1-26.el9", "bbbb")
	from, err := m.Create(ctx, repo.ID, "before", "")
	require.NoError(t, err)

	curl, err := cat.ContentItemBySHA256(ctx, "bbbb")
	require.NoError(t, err)
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		return s.UnlinkRepositoryContentItem(ctx, repo.ID, curl.ID)
	}))
	mustAddContentItem(t, cat, repo.ID, "bash", "5.1.8-9.el9", "cccc")
	mustAddContentItem(t, cat, repo.ID, "vim", "8.2-1.el9", "dddd")
	to, err := m.Create(ctx, repo.ID, "after", "")
	require.NoError(t, err)

	diff, err := m.Diff(ctx, from.ID, to.ID)
	require.NoError(t, err)
	require.Len(t, diff.Added, 1)
	require.Equal(t, "vim", diff.Added[0].Name)
	require.Len(t, diff.Removed, 1)
	require.Equal(t, "curl", diff.Removed[0].Name)
	require.Len(t, diff.Updated, 1)
	require.Equal(t, "bash", diff.Updated[0].Name)
	require.Equal(t, "5.1.8-6.el9", diff.Updated[0].FromVersion)
	require.Equal(t, "5.1.8-9.el9", diff.Updated[0].ToVersion)
}
