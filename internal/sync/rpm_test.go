// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/metacache"
	"github.com/repoforge/mirror/internal/pool"
)

const rpmPayload = "not a real rpm, just test bytes for bash-5.1.8-6.el9.x86_64.rpm"

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	pl, err := pool.New(filepath.Join(dir, "pool"))
	require.NoError(t, err)

	cache, err := metacache.New(filepath.Join(dir, "metacache"))
	require.NoError(t, err)

	return &Pipeline{
		Catalog: cat,
		Pool:    pl,
		Cache:   cache,
		Config:  &config.Config{},
		TempDir: filepath.Join(dir, "tmp"),
	}
}

func newRPMTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	primaryXML := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="1">
  <package type="rpm">
    <name>bash</name>
    <arch>x86_64</arch>
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <checksum type="sha256" pkgid="YES">` + sha256Hex([]byte(rpmPayload)) + `</checksum>
    <location href="Packages/b/bash-5.1.8-6.el9.x86_64.rpm"/>
    <size package="` + fmt.Sprint(len(rpmPayload)) + `"/>
    <time build="1600000000"/>
    <format>
      <rpm:license>GPLv3+</rpm:license>
      <rpm:vendor>Rocky</rpm:vendor>
      <rpm:group>Unspecified</rpm:group>
      <rpm:sourcerpm>bash-5.1.8-6.el9.src.rpm</rpm:sourcerpm>
    </format>
  </package>
</metadata>`)
	primaryGz := gzipBytes(t, primaryXML)
	primaryChecksum := sha256Hex(primaryGz)

	repomdXML := `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <data type="primary">
    <checksum type="sha256">` + primaryChecksum + `</checksum>
    <location href="repodata/primary.xml.gz"/>
  </data>
</repomd>`

	mux := http.NewServeMux()
	mux.HandleFunc("/repodata/repomd.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(repomdXML))
	})
	mux.HandleFunc("/repodata/primary.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(primaryGz)
	})
	mux.HandleFunc("/Packages/b/bash-5.1.8-6.el9.x86_64.rpm", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rpmPayload))
	})
	mux.HandleFunc("/.treeinfo", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, srv.URL
}

func TestSyncRPMAddsAndRelinksPackages(t *testing.T) {
	_, feed := newRPMTestServer(t)
	p := newTestPipeline(t)

	repoCfg := config.Repository{ID: "rocky9-baseos", Type: "rpm", Feed: feed, Enabled: true, Mode: "mirror"}

	ctx := context.Background()
	res, err := p.Sync(ctx, repoCfg)
	require.NoError(t, err)
	require.Equal(t, 1, res.PackagesAdded)
	require.Equal(t, 0, res.PackagesSkipped)

	repo, err := p.Catalog.RepositoryByName(ctx, "rocky9-baseos")
	require.NoError(t, err)
	items, err := p.Catalog.RepositoryContentItems(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "bash", items[0].Name)
	require.Equal(t, "5.1.8-6.el9", items[0].Version)

	// A second sync observes the same bytes already pooled and links them
	// again rather than downloading or inserting a duplicate content item.
	res2, err := p.Sync(ctx, repoCfg)
	require.NoError(t, err)
	require.Equal(t, 0, res2.PackagesAdded)
	require.Equal(t, 1, res2.PackagesSkipped)

	items2, err := p.Catalog.RepositoryContentItems(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, items2, 1)
}

func TestCheckUpdatesReportsNewerUpstreamVersion(t *testing.T) {
	_, feed := newRPMTestServer(t)
	p := newTestPipeline(t)

	repoCfg := config.Repository{ID: "rocky9-baseos", Type: "rpm", Feed: feed, Enabled: true, Mode: "mirror"}

	ctx := context.Background()
	report, err := p.CheckUpdates(ctx, repoCfg)
	require.NoError(t, err)
	require.Len(t, report.Updates, 1)
	require.Equal(t, "bash", report.Updates[0].Name)
	require.Equal(t, "", report.Updates[0].CurrentVersion)
	require.Equal(t, "5.1.8-6.el9", report.Updates[0].AvailableVersion)

	_, err = p.Sync(ctx, repoCfg)
	require.NoError(t, err)

	// Once synced, the same upstream version is no longer reported as an
	// available update.
	report2, err := p.CheckUpdates(ctx, repoCfg)
	require.NoError(t, err)
	require.Empty(t, report2.Updates)
}

func TestSyncDryRunDoesNotWriteToCatalog(t *testing.T) {
	_, feed := newRPMTestServer(t)
	p := newTestPipeline(t)
	p.DryRun = true

	repoCfg := config.Repository{ID: "rocky9-baseos", Type: "rpm", Feed: feed, Enabled: true, Mode: "mirror"}

	ctx := context.Background()
	res, err := p.Sync(ctx, repoCfg)
	require.NoError(t, err)
	require.Equal(t, 1, res.PackagesAdded)

	_, err = p.Catalog.RepositoryByName(ctx, "rocky9-baseos")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
