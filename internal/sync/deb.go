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
	"github.com/repoforge/mirror/internal/parsers/deb"
	"github.com/repoforge/mirror/internal/pool"
	"github.com/repoforge/mirror/pkg/decompress"
)

type debContentMetadata struct {
	Architecture string `json:"architecture"`
	Component    string `json:"component"`
	Priority     string `json:"priority"`
	Section      string `json:"section,omitempty"`
	Depends      string `json:"depends,omitempty"`
}

// syncDEB implements the APT sync algorithm: fetch dists/<suite>/InRelease
// (falling back to Release), persist it, then walk every
// component/binary-<arch>/Packages listing it declares.
func (p *Pipeline) syncDEB(ctx context.Context, repoCfg config.Repository) (result *Result, errFn error) {
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

	release, releaseRaw, originalPath, err := p.fetchDEBRelease(ctx, client, repoCfg)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return p.persistRepositoryFile(ctx, s, repo.ID, releaseRaw, filenameFromHref(originalPath), originalPath, catalog.CategoryMetadata, "release")
	}); err != nil {
		return nil, err
	}

	architectures := release.Architectures
	if len(architectures) == 0 {
		architectures = []string{"amd64"}
	}

	res := &Result{}
	var allKept []filter.Record
	byLabel := make(map[string]deb.Package)

	for _, component := range release.Components {
		for _, arch := range architectures {
			pkgsPath := fmt.Sprintf("dists/%s/%s/binary-%s/Packages.gz", release.Suite, component, arch)
			entry, ok := release.SHA256For(pkgsPath)
			checksum := ""
			if ok {
				checksum = entry.Checksum
			}

			pkgsURL, err := resolveURL(repoCfg.Feed, pkgsPath)
			if err != nil {
				return nil, err
			}
			compressed, err := p.fetchMetadataBytes(ctx, client, pkgsURL, checksum, metadataCacheMaxAge)
			if err != nil {
				p.logger().Warn("Packages fetch failed", "path", pkgsPath, "error", err.Error())
				continue
			}
			if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
				return p.persistRepositoryFile(ctx, s, repo.ID, compressed, filenameFromHref(pkgsPath), pkgsPath, catalog.CategoryMetadata, "packages")
			}); err != nil {
				return nil, err
			}

			listingReader, err := decompress.Reader(bytes.NewReader(compressed))
			if err != nil {
				return nil, fmt.Errorf("decompressing %s: %w", pkgsPath, err)
			}

			var records []filter.Record
			if err := deb.WalkPackages(listingReader, component, func(pkg deb.Package) error {
				label := pkg.Name + "_" + pkg.Version + "_" + pkg.Architecture
				byLabel[label] = pkg
				records = append(records, filter.Record{
					Name:      pkg.Name,
					Arch:      pkg.Architecture,
					Version:   pkg.Version,
					Label:     label,
					SizeBytes: pkg.Size,
					Component: pkg.Component,
					Priority:  pkg.Priority,
				})
				return nil
			}); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", pkgsPath, err)
			}

			kept, err := filter.Apply(catalog.DEB, records, repoCfg.Filters.ToFilter())
			if err != nil {
				return nil, fmt.Errorf("applying filters: %w", err)
			}
			allKept = append(allKept, kept...)
		}
	}

	keptIDs, added, skipped, bytesDownloaded, err := p.materializeDEBPackages(ctx, client, repoCfg, repo.ID, allKept, byLabel)
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

// fetchDEBRelease tries InRelease first (clearsigned, preferred since it's
// the one the upstream expects clients to actually fetch), falling back
// to a plain unsigned Release.
func (p *Pipeline) fetchDEBRelease(ctx context.Context, client *downloader.Client, repoCfg config.Repository) (*deb.Release, []byte, string, error) {
	inReleasePath := "dists/" + suiteOf(repoCfg) + "/InRelease"
	inReleaseURL, err := resolveURL(repoCfg.Feed, inReleasePath)
	if err != nil {
		return nil, nil, "", err
	}
	raw, err := p.fetchMetadataBytes(ctx, client, inReleaseURL, "", 0)
	if err == nil {
		release, parseErr := deb.ParseInRelease(bytes.NewReader(raw))
		if parseErr == nil {
			return release, raw, inReleasePath, nil
		}
		err = parseErr
	}

	releasePath := "dists/" + suiteOf(repoCfg) + "/Release"
	releaseURL, urlErr := resolveURL(repoCfg.Feed, releasePath)
	if urlErr != nil {
		return nil, nil, "", urlErr
	}
	raw, fetchErr := p.fetchMetadataBytes(ctx, client, releaseURL, "", 0)
	if fetchErr != nil {
		return nil, nil, "", fmt.Errorf("InRelease failed (%v), Release failed (%w)", err, fetchErr)
	}
	release, err := deb.ParseRelease(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, "", err
	}
	return release, raw, releasePath, nil
}

func suiteOf(repoCfg config.Repository) string {
	if repoCfg.APT != nil && repoCfg.APT.Suite != "" {
		return repoCfg.APT.Suite
	}
	return "stable"
}

func (p *Pipeline) materializeDEBPackages(ctx context.Context, client *downloader.Client, repoCfg config.Repository, repositoryID string, kept []filter.Record, byLabel map[string]deb.Package) (linkedIDs map[string]bool, added, skipped int, bytesDownloaded int64, errFn error) {
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
		existing, err := p.Catalog.ContentItemBySHA256(ctx, pkg.SHA256)
		if err == nil {
			mu.Lock()
			contentItemIDs[rec.Label] = existing.ID
			skipped++
			mu.Unlock()
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, 0, 0, 0, err
		}
		errs.Go(func() error {
			defer sem.Release(1)

			pkgURL, err := resolveURL(repoCfg.Feed, pkg.Filename)
			if err != nil {
				return err
			}
			sha256Hex, poolPath, size, err := p.fetchIntoPool(ctx, client, pkgURL, filenameFromHref(pkg.Filename), pool.Content, pkg.SHA256)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", pkg.Filename, err)
			}

			meta, err := json.Marshal(debContentMetadata{
				Architecture: pkg.Architecture, Component: pkg.Component,
				Priority: pkg.Priority, Section: pkg.Section, Depends: pkg.Depends,
			})
			if err != nil {
				return err
			}

			ci := &catalog.ContentItem{
				ContentType:     catalog.DEB,
				Name:            pkg.Name,
				Version:         pkg.Version,
				SHA256:          sha256Hex,
				SizeBytes:       size,
				Filename:        filenameFromHref(pkg.Filename),
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
