// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/downloader"
	"github.com/repoforge/mirror/internal/metacache"
	"github.com/repoforge/mirror/internal/pool"
)

const defaultMaxConcurrentDownloads = 10

// Pipeline is the shared orchestrator all four format-specific sync
// implementations run on top of: one catalog, one pool, one metadata
// cache, and a scratch directory for in-flight downloads.
type Pipeline struct {
	Catalog *catalog.Catalog
	Pool    *pool.Pool
	Cache   *metacache.Cache
	Config  *config.Config
	Logger  *slog.Logger

	TempDir                string
	MaxConcurrentDownloads int64

	// DryRun, when set, makes Sync behave like CheckUpdates: it fetches and
	// filters upstream metadata and reports what would change, but never
	// downloads a payload or writes to the catalog.
	DryRun bool
}

// Result is a sync run's outcome, mirrored into the SyncHistory row.
type Result struct {
	PackagesAdded   int
	PackagesRemoved int
	PackagesUpdated int
	PackagesSkipped int
	BytesDownloaded int64
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) maxConcurrent() int64 {
	if p.MaxConcurrentDownloads > 0 {
		return p.MaxConcurrentDownloads
	}
	return defaultMaxConcurrentDownloads
}

// Sync runs the per-format sync algorithm for one repository. In dry-run
// mode it instead runs CheckUpdates and reports the same counts a real
// sync would add/update, without downloading anything or writing to the
// catalog.
func (p *Pipeline) Sync(ctx context.Context, repo config.Repository) (*Result, error) {
	if p.DryRun {
		report, err := p.CheckUpdates(ctx, repo)
		if err != nil {
			return nil, err
		}
		return &Result{PackagesAdded: len(report.Updates)}, nil
	}

	switch repo.ContentType() {
	case catalog.RPM:
		return p.syncRPM(ctx, repo)
	case catalog.DEB:
		return p.syncDEB(ctx, repo)
	case catalog.Helm:
		return p.syncHelm(ctx, repo)
	case catalog.APK:
		return p.syncAPK(ctx, repo)
	default:
		return nil, fmt.Errorf("sync: unsupported repository type %q", repo.Type)
	}
}

// ensureRepository looks up (or, on first sync, creates) the catalog row
// backing a configured repository. Repository.Name is the config's
// repository id: the stable key a re-sync uses to find the same row.
func (p *Pipeline) ensureRepository(ctx context.Context, repo config.Repository) (*catalog.Repository, error) {
	existing, err := p.Catalog.RepositoryByName(ctx, repo.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	var created *catalog.Repository
	err = p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		cr := &catalog.Repository{
			Name:    repo.ID,
			Type:    repo.ContentType(),
			Feed:    repo.Feed,
			Enabled: repo.Enabled,
			Mode:    catalog.Mode(repo.Mode),
		}
		if err := s.CreateRepository(ctx, cr); err != nil {
			return err
		}
		created = cr
		return nil
	})
	return created, err
}

// openHistory starts a SyncHistory row for the run; on any later failure
// the caller closes it with status failed via failHistory.
func (p *Pipeline) openHistory(ctx context.Context, repositoryID string) (*catalog.SyncHistory, error) {
	var h *catalog.SyncHistory
	err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		var err error
		h, err = s.OpenSyncHistory(ctx, repositoryID, time.Now().Unix())
		return err
	})
	return h, err
}

func (p *Pipeline) closeHistorySuccess(ctx context.Context, historyID string, res *Result) error {
	return p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return s.CloseSyncHistory(ctx, historyID, time.Now().Unix(), catalog.SyncSuccess,
			res.PackagesAdded, res.PackagesRemoved, res.PackagesUpdated, res.BytesDownloaded, "")
	})
}

func (p *Pipeline) failHistory(ctx context.Context, historyID string, cause error) {
	if cause == nil {
		return
	}
	err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return s.CloseSyncHistory(ctx, historyID, time.Now().Unix(), catalog.SyncFailed, 0, 0, 0, 0, cause.Error())
	})
	if err != nil {
		p.logger().Error("sync history close after failure", "error", err.Error())
	}
}

// scratchDir creates a fresh subdirectory under the pipeline's temp root
// for one download, so concurrent fetches never collide on filename and
// cleanup is a single RemoveAll.
func (p *Pipeline) scratchDir() (string, error) {
	return os.MkdirTemp(p.TempDir, "dl-*")
}

// fetchIntoPool downloads rawURL, verifying it against expectedSHA256
// (ignored if empty), then moves it into the pool under ns. The pool's own
// re-hash on Add is what actually establishes the content's identity;
// expectedSHA256 here is the upstream-advertised value used to fail fast
// on a corrupt or malicious mirror before the bytes are ever pooled.
func (p *Pipeline) fetchIntoPool(ctx context.Context, client *downloader.Client, rawURL, filename string, ns pool.Namespace, expectedSHA256 string) (sha256Hex, poolPath string, size int64, errFn error) {
	dir, err := p.scratchDir()
	if err != nil {
		return "", "", 0, err
	}
	defer os.RemoveAll(dir)

	destPath := filepath.Join(dir, filename)
	if _, err := client.DownloadToTemp(ctx, rawURL, dir, destPath, expectedSHA256); err != nil {
		return "", "", 0, err
	}

	return p.Pool.Add(destPath, filename, ns)
}

// poolAddBytes writes data to a scratch file and pools it, for metadata
// already held in memory (a cache hit, or bytes read via fetchMetadataBytes)
// rather than a file on disk a downloader wrote directly.
func (p *Pipeline) poolAddBytes(data []byte, filename string, ns pool.Namespace) (sha256Hex, poolPath string, size int64, errFn error) {
	dir, err := p.scratchDir()
	if err != nil {
		return "", "", 0, err
	}
	defer os.RemoveAll(dir)

	destPath := filepath.Join(dir, filename)
	if err := os.WriteFile(destPath, data, 0o600); err != nil {
		return "", "", 0, err
	}

	return p.Pool.Add(destPath, filename, ns)
}

// fetchMetadataBytes returns the decompressed bytes of a metadata file
// identified by its upstream checksum, going through the metadata cache
// first. On a cache miss it downloads the (still compressed) bytes, caches
// them, and decompresses in memory.
func (p *Pipeline) fetchMetadataBytes(ctx context.Context, client *downloader.Client, rawURL, checksum string, maxAge time.Duration) (raw []byte, errFn error) {
	if p.Cache != nil && checksum != "" {
		if cached, err := p.Cache.Get(checksum, maxAge); err == nil {
			return cached, nil
		} else if !errors.Is(err, metacache.ErrCacheMiss) {
			p.logger().Warn("metadata cache read failed, falling back to download", "checksum", checksum, "error", err.Error())
		}
	}

	body, err := client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	if p.Cache != nil && checksum != "" {
		if err := p.Cache.Put(checksum, data); err != nil {
			p.logger().Warn("metadata cache write failed", "checksum", checksum, "error", err.Error())
		}
	}

	return data, nil
}
