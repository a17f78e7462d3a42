// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	stdsync "sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/downloader"
	"github.com/repoforge/mirror/internal/filter"
	"github.com/repoforge/mirror/internal/parsers/rpm"
	"github.com/repoforge/mirror/internal/pool"
	"github.com/repoforge/mirror/pkg/decompress"
)

const metadataCacheMaxAge = 24 * time.Hour

type rpmContentMetadata struct {
	Epoch     string `json:"epoch,omitempty"`
	Arch      string `json:"arch"`
	SourceRPM string `json:"source_rpm,omitempty"`
	Group     string `json:"group,omitempty"`
	License   string `json:"license,omitempty"`
	Vendor    string `json:"vendor,omitempty"`
	BuildTime int64  `json:"build_time,omitempty"`
}

// syncRPM implements the yum/DNF sync algorithm described in the sync
// pipeline spec: fetch repomd.xml, persist every metadata file it
// references, parse primary.xml into package records, filter, diff
// against the catalog, and pull down whatever's missing.
func (p *Pipeline) syncRPM(ctx context.Context, repoCfg config.Repository) (result *Result, errFn error) {
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

	repomdURL, err := resolveURL(repoCfg.Feed, "repodata/repomd.xml")
	if err != nil {
		return nil, err
	}
	repomdBytes, err := p.fetchMetadataBytes(ctx, client, repomdURL, "", 0)
	if err != nil {
		return nil, fmt.Errorf("fetching repomd.xml: %w", err)
	}
	repomdRoot, err := rpm.ParseRepomd(bytes.NewReader(repomdBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing repomd.xml: %w", err)
	}

	res := &Result{}

	if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return p.persistRepositoryFile(ctx, s, repo.ID, repomdBytes, "repomd.xml", "repodata/repomd.xml", catalog.CategoryMetadata, "repomd")
	}); err != nil {
		return nil, err
	}

	var primaryData *rpm.RepoMdData
	for _, entry := range repomdRoot.Data {
		entry := entry
		href := entry.Location.Href
		checksum := ""
		if entry.Checksum != nil && entry.Checksum.Type == "sha256" {
			checksum = entry.Checksum.Value
		}
		dataURL, err := resolveURL(repoCfg.Feed, href)
		if err != nil {
			return nil, err
		}
		data, err := p.fetchMetadataBytes(ctx, client, dataURL, checksum, metadataCacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", href, err)
		}
		if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
			return p.persistRepositoryFile(ctx, s, repo.ID, data, filenameFromHref(href), href, catalog.CategoryMetadata, entry.Type)
		}); err != nil {
			return nil, err
		}
		if rpm.DataType(entry.Type) == rpm.PrimaryDataType {
			primaryData = entry
		}
	}
	if primaryData == nil {
		return nil, fmt.Errorf("repomd.xml for %s declares no primary data", repoCfg.ID)
	}

	primaryURL, err := resolveURL(repoCfg.Feed, primaryData.Location.Href)
	if err != nil {
		return nil, err
	}
	primaryChecksum := ""
	if primaryData.Checksum != nil && primaryData.Checksum.Type == "sha256" {
		primaryChecksum = primaryData.Checksum.Value
	}
	primaryCompressed, err := p.fetchMetadataBytes(ctx, client, primaryURL, primaryChecksum, metadataCacheMaxAge)
	if err != nil {
		return nil, fmt.Errorf("fetching primary.xml: %w", err)
	}
	primaryReader, err := decompress.Reader(bytes.NewReader(primaryCompressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing primary.xml: %w", err)
	}

	var packages []rpm.Package
	if err := rpm.WalkPrimary(primaryReader, func(pkg rpm.Package, _ int) error {
		packages = append(packages, pkg)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("parsing primary.xml: %w", err)
	}

	records := make([]filter.Record, len(packages))
	byLabel := make(map[string]rpm.Package, len(packages))
	for i, pkg := range packages {
		records[i] = filter.Record{
			Name:      pkg.Name,
			Arch:      pkg.Arch,
			Version:   pkg.VersionString(),
			Label:     pkg.NEVRA(),
			SizeBytes: pkg.Size,
			BuildTime: pkg.BuildTime,
			SourceRPM: pkg.SourceRPM,
			Group:     pkg.Group,
			License:   pkg.License,
			Vendor:    pkg.Vendor,
		}
		byLabel[pkg.NEVRA()] = pkg
	}

	kept, err := filter.Apply(catalog.RPM, records, repoCfg.Filters.ToFilter())
	if err != nil {
		return nil, fmt.Errorf("applying filters: %w", err)
	}

	keptIDs, added, skipped, bytesDownloaded, err := p.materializeRPMPackages(ctx, client, repoCfg, repo.ID, kept, byLabel)
	if err != nil {
		return nil, err
	}
	res.PackagesAdded = added
	res.PackagesSkipped = skipped
	res.BytesDownloaded = bytesDownloaded

	if err := p.reconcileRepositoryContentItems(ctx, repo.ID, keptIDs, &res.PackagesRemoved); err != nil {
		return nil, err
	}

	if err := p.syncTreeInfo(ctx, client, repoCfg, repo.ID); err != nil {
		p.logger().Warn("treeinfo sync failed", "repository", repoCfg.ID, "error", err.Error())
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

// materializeRPMPackages downloads every kept package not already present
// in the catalog (bounded by the pipeline's concurrency limit), then links
// every kept package (old or new) to the repository in a single
// transaction.
func (p *Pipeline) materializeRPMPackages(ctx context.Context, client *downloader.Client, repoCfg config.Repository, repositoryID string, kept []filter.Record, byLabel map[string]rpm.Package) (linkedIDs map[string]bool, added, skipped int, bytesDownloaded int64, errFn error) {
	sem := semaphore.NewWeighted(p.maxConcurrent())
	var mu stdsync.Mutex
	contentItemIDs := make(map[string]string, len(kept)) // label -> content item id
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

			pkgURL, err := resolveURL(repoCfg.Feed, pkg.Href)
			if err != nil {
				return err
			}
			sha256Hex, poolPath, size, err := p.fetchIntoPool(ctx, client, pkgURL, filenameFromHref(pkg.Href), pool.Content, pkg.SHA256)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", pkg.NEVRA(), err)
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
				Filename:        filenameFromHref(pkg.Href),
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

// reconcileRepositoryContentItems unlinks any content item the repository
// referenced before this sync but that no longer appears in the current
// filtered listing (removed upstream, or newly excluded by a filter rule).
func (p *Pipeline) reconcileRepositoryContentItems(ctx context.Context, repositoryID string, keptIDs map[string]bool, removed *int) error {
	previous, err := p.Catalog.RepositoryContentItems(ctx, repositoryID)
	if err != nil {
		return err
	}
	return p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		for _, ci := range previous {
			if keptIDs[ci.ID] {
				continue
			}
			if err := s.UnlinkRepositoryContentItem(ctx, repositoryID, ci.ID); err != nil {
				return err
			}
			*removed++
		}
		return nil
	})
}

// syncTreeInfo fetches and persists the optional .treeinfo installer
// description and the boot images it references. A missing .treeinfo is
// not an error: plenty of RPM repositories (module/addon subrepos) never
// carry one.
func (p *Pipeline) syncTreeInfo(ctx context.Context, client *downloader.Client, repoCfg config.Repository, repositoryID string) error {
	treeInfoURL, err := resolveURL(repoCfg.Feed, ".treeinfo")
	if err != nil {
		return err
	}

	body, err := client.Get(ctx, treeInfoURL)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	ti, err := rpm.ParseTreeInfo(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parsing .treeinfo: %w", err)
	}

	if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return p.persistRepositoryFile(ctx, s, repositoryID, raw, ".treeinfo", ".treeinfo", catalog.CategoryMetadata, "treeinfo")
	}); err != nil {
		return err
	}

	for path, img := range ti.Images {
		imgURL, err := resolveURL(repoCfg.Feed, path)
		if err != nil {
			return err
		}
		sha256Hex, poolPath, size, err := p.fetchIntoPool(ctx, client, imgURL, filenameFromHref(path), pool.Files, img.SHA256)
		if err != nil {
			p.logger().Warn("treeinfo image download failed", "path", path, "error", err.Error())
			continue
		}
		err = p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
			rf := &catalog.RepositoryFile{
				FileCategory: catalog.CategoryKickstart,
				FileType:     "image",
				SHA256:       sha256Hex,
				SizeBytes:    size,
				PoolPath:     poolPath,
				OriginalPath: path,
			}
			if err := s.UpsertRepositoryFile(ctx, rf); err != nil {
				return err
			}
			return s.LinkRepositoryFile(ctx, repositoryID, rf.ID, path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// persistRepositoryFile pools raw metadata bytes and upserts/links the
// resulting RepositoryFile row, all within the caller's transaction.
func (p *Pipeline) persistRepositoryFile(ctx context.Context, s *catalog.Session, repositoryID string, raw []byte, filename, originalPath string, category catalog.FileCategory, fileType string) error {
	sha256Hex, poolPath, size, err := p.poolAddBytes(raw, filename, pool.Files)
	if err != nil {
		return err
	}
	rf := &catalog.RepositoryFile{
		FileCategory: category,
		FileType:     fileType,
		SHA256:       sha256Hex,
		SizeBytes:    size,
		PoolPath:     poolPath,
		OriginalPath: originalPath,
	}
	if err := s.UpsertRepositoryFile(ctx, rf); err != nil {
		return err
	}
	return s.LinkRepositoryFile(ctx, repositoryID, rf.ID, originalPath)
}

func filenameFromHref(href string) string {
	if i := strings.LastIndexByte(href, '/'); i >= 0 {
		return href[i+1:]
	}
	return href
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "404")
}
