// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoforge/mirror/internal/catalog"
)

func readGzipFile(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func writePoolFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestPublishRPMRepositoryHardlinksAndRegeneratesMetadata(t *testing.T) {
	cat := newTestCatalog(t)
	poolDir := t.TempDir()
	ctx := context.Background()

	var repo *catalog.Repository
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: "rocky9-baseos", Type: catalog.RPM, Feed: "https://example.test", Enabled: true, Mode: catalog.ModeMirror}
		if err := s.CreateRepository(ctx, repo); err != nil {
			return err
		}

		rpmPath := writePoolFile(t, poolDir, "bash.rpm", "rpm bytes")
		ci := &catalog.ContentItem{
			ContentType: catalog.RPM, Name: "bash", Version: "5.1.8-6.el9", SHA256: "feed",
			SizeBytes: 9, Filename: "bash-5.1.8-6.el9.x86_64.rpm", PoolPath: rpmPath,
			ContentMetadata: `{"arch":"x86_64","group":"Unspecified","license":"GPLv3+"}`,
		}
		if err := s.UpsertContentItem(ctx, ci); err != nil {
			return err
		}
		if err := s.LinkRepositoryContentItem(ctx, repo.ID, ci.ID); err != nil {
			return err
		}

		repomdPath := writePoolFile(t, poolDir, "repomd.xml", "<repomd/>")
		rf := &catalog.RepositoryFile{
			FileCategory: catalog.CategoryMetadata, FileType: "primary", SHA256: "deadbeef",
			SizeBytes: 9, PoolPath: repomdPath, OriginalPath: "repodata/primary.xml.gz",
		}
		if err := s.UpsertRepositoryFile(ctx, rf); err != nil {
			return err
		}
		return s.LinkRepositoryFile(ctx, repo.ID, rf.ID, rf.OriginalPath)
	}))

	target := t.TempDir()
	p := &Publisher{Catalog: cat}
	require.NoError(t, p.PublishRepository(ctx, repo.ID, target))

	rpmOut := filepath.Join(target, "Packages", "bash-5.1.8-6.el9.x86_64.rpm")
	info, err := os.Stat(rpmOut)
	require.NoError(t, err)
	require.False(t, info.IsDir())

	primaryOut := filepath.Join(target, "repodata", "primary.xml.gz")
	_, err = os.Stat(primaryOut)
	require.NoError(t, err)

	repomdOut := filepath.Join(target, "repodata", "repomd.xml")
	raw, err := os.ReadFile(repomdOut)
	require.NoError(t, err)
	require.Contains(t, string(raw), "primary")
}

func TestPublishRPMFiltersFilelistsOtherAndUpdateinfo(t *testing.T) {
	cat := newTestCatalog(t)
	poolDir := t.TempDir()
	ctx := context.Background()

	const filelistsXML = `<?xml version="1.0" encoding="UTF-8"?>
<filelists xmlns="http://linux.duke.edu/metadata/filelists" packages="2">
  <package pkgid="feed" name="bash" arch="x86_64">
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <file>/usr/bin/bash</file>
  </package>
  <package pkgid="removed" name="vanished" arch="x86_64">
    <version epoch="0" ver="1.0" rel="1.el9"/>
    <file>/usr/bin/vanished</file>
  </package>
</filelists>`

	const updateinfoXML = `<?xml version="1.0" encoding="UTF-8"?>
<updates>
  <update type="security">
    <id>RLSA-2024:0001</id>
    <title>Important bash fix</title>
    <pkglist>
      <collection>
        <package name="bash" epoch="0" version="5.1.8" release="6.el9" arch="x86_64">
          <filename>bash-5.1.8-6.el9.x86_64.rpm</filename>
        </package>
      </collection>
    </pkglist>
  </update>
  <update type="bugfix">
    <id>RLSA-2024:0002</id>
    <title>Removed package fix</title>
    <pkglist>
      <collection>
        <package name="vanished" epoch="0" version="1.0" release="1.el9" arch="x86_64">
          <filename>vanished-1.0-1.el9.x86_64.rpm</filename>
        </package>
      </collection>
    </pkglist>
  </update>
</updates>`

	var repo *catalog.Repository
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: "rocky9-baseos", Type: catalog.RPM, Feed: "https://example.test", Enabled: true, Mode: catalog.ModeFiltered}
		if err := s.CreateRepository(ctx, repo); err != nil {
			return err
		}

		rpmPath := writePoolFile(t, poolDir, "bash.rpm", "rpm bytes")
		ci := &catalog.ContentItem{
			ContentType: catalog.RPM, Name: "bash", Version: "5.1.8-6.el9", SHA256: "feed",
			SizeBytes: 9, Filename: "bash-5.1.8-6.el9.x86_64.rpm", PoolPath: rpmPath,
			ContentMetadata: `{"arch":"x86_64"}`,
		}
		if err := s.UpsertContentItem(ctx, ci); err != nil {
			return err
		}
		if err := s.LinkRepositoryContentItem(ctx, repo.ID, ci.ID); err != nil {
			return err
		}

		filelistsPath := writePoolFile(t, poolDir, "filelists.xml", filelistsXML)
		filelistsRF := &catalog.RepositoryFile{
			FileCategory: catalog.CategoryMetadata, FileType: "filelists", SHA256: "filelistssha",
			SizeBytes: int64(len(filelistsXML)), PoolPath: filelistsPath, OriginalPath: "repodata/filelists.xml.gz",
		}
		if err := s.UpsertRepositoryFile(ctx, filelistsRF); err != nil {
			return err
		}
		if err := s.LinkRepositoryFile(ctx, repo.ID, filelistsRF.ID, filelistsRF.OriginalPath); err != nil {
			return err
		}

		updateinfoPath := writePoolFile(t, poolDir, "updateinfo.xml", updateinfoXML)
		updateinfoRF := &catalog.RepositoryFile{
			FileCategory: catalog.CategoryMetadata, FileType: "updateinfo", SHA256: "updateinfosha",
			SizeBytes: int64(len(updateinfoXML)), PoolPath: updateinfoPath, OriginalPath: "repodata/updateinfo.xml.gz",
		}
		if err := s.UpsertRepositoryFile(ctx, updateinfoRF); err != nil {
			return err
		}
		return s.LinkRepositoryFile(ctx, repo.ID, updateinfoRF.ID, updateinfoRF.OriginalPath)
	}))

	target := t.TempDir()
	p := &Publisher{Catalog: cat}
	require.NoError(t, p.PublishRepository(ctx, repo.ID, target))

	filelistsOut := readGzipFile(t, filepath.Join(target, "repodata", "filelists.xml.gz"))
	require.Contains(t, filelistsOut, "bash")
	require.NotContains(t, filelistsOut, "vanished")

	updateinfoOut := readGzipFile(t, filepath.Join(target, "repodata", "updateinfo.xml.gz"))
	require.Contains(t, updateinfoOut, "RLSA-2024:0001")
	require.NotContains(t, updateinfoOut, "RLSA-2024:0002")

	repomdOut, err := os.ReadFile(filepath.Join(target, "repodata", "repomd.xml"))
	require.NoError(t, err)
	require.Contains(t, string(repomdOut), "filelists")
	require.Contains(t, string(repomdOut), "updateinfo")
}

func TestPublishRPMMirrorModeHardlinksFilelistsOtherAndUpdateinfoVerbatim(t *testing.T) {
	cat := newTestCatalog(t)
	poolDir := t.TempDir()
	ctx := context.Background()

	const filelistsXML = `<?xml version="1.0" encoding="UTF-8"?>
<filelists xmlns="http://linux.duke.edu/metadata/filelists" packages="2">
  <package pkgid="feed" name="bash" arch="x86_64">
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <file>/usr/bin/bash</file>
  </package>
  <package pkgid="removed" name="vanished" arch="x86_64">
    <version epoch="0" ver="1.0" rel="1.el9"/>
    <file>/usr/bin/vanished</file>
  </package>
</filelists>`

	var repo *catalog.Repository
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: "rocky9-baseos", Type: catalog.RPM, Feed: "https://example.test", Enabled: true, Mode: catalog.ModeMirror}
		if err := s.CreateRepository(ctx, repo); err != nil {
			return err
		}

		rpmPath := writePoolFile(t, poolDir, "bash.rpm", "rpm bytes")
		ci := &catalog.ContentItem{
			ContentType: catalog.RPM, Name: "bash", Version: "5.1.8-6.el9", SHA256: "feed",
			SizeBytes: 9, Filename: "bash-5.1.8-6.el9.x86_64.rpm", PoolPath: rpmPath,
			ContentMetadata: `{"arch":"x86_64"}`,
		}
		if err := s.UpsertContentItem(ctx, ci); err != nil {
			return err
		}
		if err := s.LinkRepositoryContentItem(ctx, repo.ID, ci.ID); err != nil {
			return err
		}

		filelistsPath := writePoolFile(t, poolDir, "filelists.xml", filelistsXML)
		filelistsRF := &catalog.RepositoryFile{
			FileCategory: catalog.CategoryMetadata, FileType: "filelists", SHA256: "filelistssha",
			SizeBytes: int64(len(filelistsXML)), PoolPath: filelistsPath, OriginalPath: "repodata/filelists.xml.gz",
		}
		if err := s.UpsertRepositoryFile(ctx, filelistsRF); err != nil {
			return err
		}
		return s.LinkRepositoryFile(ctx, repo.ID, filelistsRF.ID, filelistsRF.OriginalPath)
	}))

	target := t.TempDir()
	p := &Publisher{Catalog: cat}
	require.NoError(t, p.PublishRepository(ctx, repo.ID, target))

	// Mirror mode never filters: the published file must be byte-for-byte
	// identical to the pool copy, including the "removed" package that
	// filtered mode would have pruned.
	out, err := os.ReadFile(filepath.Join(target, "repodata", "filelists.xml.gz"))
	require.NoError(t, err)
	require.Equal(t, filelistsXML, string(out))
	require.Contains(t, string(out), "vanished")
}

func TestUnpublishRemovesTargetAndClearsSnapshotFlag(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	var repo *catalog.Repository
	var snap *catalog.Snapshot
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: "rocky9-baseos", Type: catalog.RPM, Feed: "https://example.test", Enabled: true, Mode: catalog.ModeMirror}
		if err := s.CreateRepository(ctx, repo); err != nil {
			return err
		}
		var err error
		snap, err = s.CreateSnapshot(ctx, repo.ID, "nightly", "", 0)
		return err
	}))

	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "marker"), []byte("x"), 0o644))
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		return s.SetSnapshotPublished(ctx, snap.ID, true, target)
	}))

	p := &Publisher{Catalog: cat}
	require.NoError(t, p.Unpublish(ctx, target, snap.ID))

	_, err := os.Stat(target)
	require.True(t, os.IsNotExist(err))

	got, err := cat.SnapshotByID(ctx, snap.ID)
	require.NoError(t, err)
	require.False(t, got.IsPublished)
}

func TestPublishHelmRegeneratesIndexWhenNoneCaptured(t *testing.T) {
	cat := newTestCatalog(t)
	poolDir := t.TempDir()
	ctx := context.Background()

	var repo *catalog.Repository
	require.NoError(t, cat.WithTx(ctx, func(s *catalog.Session) error {
		repo = &catalog.Repository{Name: "stable", Type: catalog.Helm, Feed: "https://example.test", Enabled: true, Mode: catalog.ModeMirror}
		if err := s.CreateRepository(ctx, repo); err != nil {
			return err
		}
		chartPath := writePoolFile(t, poolDir, "nginx-1.2.3.tgz", "chart bytes")
		ci := &catalog.ContentItem{
			ContentType: catalog.Helm, Name: "nginx", Version: "1.2.3", SHA256: "cafe",
			SizeBytes: 11, Filename: "nginx-1.2.3.tgz", PoolPath: chartPath,
			ContentMetadata: `{"app_version":"1.20.0"}`,
		}
		if err := s.UpsertContentItem(ctx, ci); err != nil {
			return err
		}
		return s.LinkRepositoryContentItem(ctx, repo.ID, ci.ID)
	}))

	target := t.TempDir()
	p := &Publisher{Catalog: cat}
	require.NoError(t, p.PublishRepository(ctx, repo.ID, target))

	_, err := os.Stat(filepath.Join(target, "nginx-1.2.3.tgz"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(target, "index.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "nginx")
	require.Contains(t, string(raw), "sha256:cafe")
}
