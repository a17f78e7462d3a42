// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/downloader"
	"github.com/repoforge/mirror/internal/filter"
	"github.com/repoforge/mirror/internal/parsers/apk"
	"github.com/repoforge/mirror/internal/pool"
)

type apkContentMetadata struct {
	Architecture string `json:"architecture"`
	Origin       string `json:"origin,omitempty"`
	Maintainer   string `json:"maintainer,omitempty"`
	Depends      string `json:"depends,omitempty"`
	Provides     string `json:"provides,omitempty"`
}

// syncAPK implements the Alpine sync algorithm: like Helm's index.yaml,
// APKINDEX.tar.gz is both root metadata and full package listing in one
// fetch, conventionally under <branch>/<repo>/<arch>/.
func (p *Pipeline) syncAPK(ctx context.Context, repoCfg config.Repository) (result *Result, errFn error) {
	repo, err := p.ensureRepository(ctx, repoCfg)
	if err != nil {
		return nil, err
	}
	client, err := buildClient(p.Config, repoCfg)
	if err != nil {
		return nil, err
	}

	history, err := p.openHistory(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errFn != nil {
			p.failHistory(ctx, history.ID, errFn)
		}
	}()

	res := &Result{}
	var allKept []filter.Record
	byLabel := make(map[string]apk.Package)

	for _, arch := range apkArchitectures(repoCfg) {
		indexPath := arch + "/APKINDEX.tar.gz"
		indexURL, err := resolveURL(repoCfg.Feed, indexPath)
		if err != nil {
			return nil, err
		}
		raw, err := p.fetchMetadataBytes(ctx, client, indexURL, "", 0)
		if err != nil {
			p.logger().Warn("APKINDEX fetch failed", "arch", arch, "error", err.Error())
			continue
		}
		if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
			return p.persistRepositoryFile(ctx, s, repo.ID, raw, arch+"-APKINDEX.tar.gz", indexPath, catalog.CategoryMetadata, "apkindex")
		}); err != nil {
			return nil, err
		}

		var records []filter.Record
		if err := apk.WalkAPKIndexTarGz(bytes.NewReader(raw), func(pkg apk.Package) error {
			label := pkg.Name + "-" + pkg.Version + "." + arch
			byLabel[label] = pkg
			records = append(records, filter.Record{
				Name:      pkg.Name,
				Arch:      arch,
				Version:   pkg.Version,
				Label:     label,
				SizeBytes: pkg.Size,
				BuildTime: pkg.BuildTime,
			})
			return nil
		}); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", indexPath, err)
		}

		kept, err := filter.Apply(catalog.APK, records, repoCfg.Filters.ToFilter())
		if err != nil {
			return nil, fmt.Errorf("applying filters: %w", err)
		}
		allKept = append(allKept, kept...)
	}

	keptIDs, added, skipped, bytesDownloaded, err := p.materializeAPKPackages(ctx, client, repoCfg, repo.ID, allKept, byLabel)
	if err != nil {
		return nil, err
	}
	res.PackagesAdded = added
	res.PackagesSkipped = skipped
	res.BytesDownloaded = bytesDownloaded

	if err := p.reconcileRepositoryContentItems(ctx, repo.ID, keptIDs, &res.PackagesRemoved); err != nil {
		return nil, err
	}

	if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return s.SetLastSyncAt(ctx, repo.ID, time.Now().Unix())
	}); err != nil {
		return nil, err
	}

	if err := p.closeHistorySuccess(ctx, history.ID, res); err != nil {
		return nil, err
	}
	return res, nil
}

func apkArchitectures(repoCfg config.Repository) []string {
	if repoCfg.APK != nil && len(repoCfg.APK.Architectures) > 0 {
		return repoCfg.APK.Architectures
	}
	return []string{"x86_64"}
}

// materializeAPKPackages mirrors the RPM/DEB download step. APKINDEX
// checksums are SHA-1 (the "Q1" base64 form), not SHA-256, so they cannot
// be handed to the downloader's SHA-256 verification or used as a
// pool-dedup key directly; the pool's own re-hash on Add is what
// establishes each .apk's real identity.
func (p *Pipeline) materializeAPKPackages(ctx context.Context, client *downloader.Client, repoCfg config.Repository, repositoryID string, kept []filter.Record, byLabel map[string]apk.Package) (linkedIDs map[string]bool, added, skipped int, bytesDownloaded int64, errFn error) {
	sem := semaphore.NewWeighted(p.maxConcurrent())
	var mu stdsync.Mutex
	contentItemIDs := make(map[string]string, len(kept))
	var downloadedBytes int64
	errs := new(multierror.Group)

	for _, rec := range kept {
		rec := rec
		pkg, ok := byLabel[rec.Label]
		if !ok {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, 0, 0, 0, err
		}
		errs.Go(func() error {
			defer sem.Release(1)

			pkgURL, err := resolveURL(repoCfg.Feed, rec.Arch+"/"+pkg.Filename())
			if err != nil {
				return err
			}
			sha256Hex, poolPath, size, err := p.fetchIntoPool(ctx, client, pkgURL, pkg.Filename(), pool.Content, "")
			if err != nil {
				return fmt.Errorf("downloading %s: %w", pkg.Filename(), err)
			}

			if existing, lookupErr := p.Catalog.ContentItemBySHA256(ctx, sha256Hex); lookupErr == nil {
				mu.Lock()
				contentItemIDs[rec.Label] = existing.ID
				skipped++
				mu.Unlock()
				return nil
			}

			meta, err := json.Marshal(apkContentMetadata{
				Architecture: rec.Arch, Origin: pkg.Origin, Maintainer: pkg.Maintainer,
				Depends: pkg.Depends, Provides: pkg.Provides,
			})
			if err != nil {
				return err
			}

			ci := &catalog.ContentItem{
				ContentType:     catalog.APK,
				Name:            pkg.Name,
				Version:         pkg.Version,
				SHA256:          sha256Hex,
				SizeBytes:       size,
				Filename:        pkg.Filename(),
				PoolPath:        poolPath,
				ContentMetadata: string(meta),
			}
			if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
				return s.UpsertContentItem(ctx, ci)
			}); err != nil {
				return err
			}

			mu.Lock()
			contentItemIDs[rec.Label] = ci.ID
			downloadedBytes += size
			added++
			mu.Unlock()
			return nil
		})
	}

	if err := errs.Wait(); err.ErrorOrNil() != nil {
		return nil, 0, 0, 0, err.ErrorOrNil()
	}

	linkedIDs = make(map[string]bool, len(contentItemIDs))
	err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		for _, id := range contentItemIDs {
			if err := s.LinkRepositoryContentItem(ctx, repositoryID, id); err != nil {
				return err
			}
			linkedIDs[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, 0, 0, 0, err
	}

	return linkedIDs, added, skipped, downloadedBytes, nil
}
