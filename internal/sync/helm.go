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
	"github.com/repoforge/mirror/internal/parsers/helm"
	"github.com/repoforge/mirror/internal/pool"
)

type helmContentMetadata struct {
	AppVersion  string `json:"app_version,omitempty"`
	Description string `json:"description,omitempty"`
	Digest      string `json:"digest,omitempty"`
}

// syncHelm implements the Helm chart repository sync algorithm: index.yaml
// is both the root metadata and the full package listing in one document,
// so there is no separate root/listing round trip the way RPM and APT
// need.
func (p *Pipeline) syncHelm(ctx context.Context, repoCfg config.Repository) (result *Result, errFn error) {
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

	indexURL, err := resolveURL(repoCfg.Feed, "index.yaml")
	if err != nil {
		return nil, err
	}
	raw, err := p.fetchMetadataBytes(ctx, client, indexURL, "", 0)
	if err != nil {
		return nil, fmt.Errorf("fetching index.yaml: %w", err)
	}
	index, err := helm.ParseIndex(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing index.yaml: %w", err)
	}

	if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return p.persistRepositoryFile(ctx, s, repo.ID, raw, "index.yaml", "index.yaml", catalog.CategoryMetadata, "index")
	}); err != nil {
		return nil, err
	}

	charts := index.Flatten()
	byLabel := make(map[string]helm.ChartVersion, len(charts))
	records := make([]filter.Record, len(charts))
	for i, cv := range charts {
		label := cv.Name + "-" + cv.Version
		byLabel[label] = cv
		records[i] = filter.Record{
			Name:    cv.Name,
			Version: cv.Version,
			Label:   label,
		}
	}

	kept, err := filter.Apply(catalog.Helm, records, repoCfg.Filters.ToFilter())
	if err != nil {
		return nil, fmt.Errorf("applying filters: %w", err)
	}

	res := &Result{}
	keptIDs, added, skipped, bytesDownloaded, err := p.materializeHelmCharts(ctx, client, repoCfg.Feed, repo.ID, kept, byLabel)
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

// materializeHelmCharts downloads every kept chart version not already in
// the catalog. Chart URLs in index.yaml are frequently absolute (pointing
// at an object-storage bucket rather than the index's own host), so each
// is used as-is rather than resolved against the repository feed when it
// already carries a scheme.
func (p *Pipeline) materializeHelmCharts(ctx context.Context, client *downloader.Client, feed, repositoryID string, kept []filter.Record, byLabel map[string]helm.ChartVersion) (linkedIDs map[string]bool, added, skipped int, bytesDownloaded int64, errFn error) {
	sem := semaphore.NewWeighted(p.maxConcurrent())
	var mu stdsync.Mutex
	contentItemIDs := make(map[string]string, len(kept))
	var downloadedBytes int64
	errs := new(multierror.Group)

	for _, rec := range kept {
		rec := rec
		cv, ok := byLabel[rec.Label]
		if !ok || len(cv.URLs) == 0 {
			continue
		}

		sha256Hex := chartSHA256(cv.Digest)
		if sha256Hex != "" {
			if existing, err := p.Catalog.ContentItemBySHA256(ctx, sha256Hex); err == nil {
				mu.Lock()
				contentItemIDs[rec.Label] = existing.ID
				skipped++
				mu.Unlock()
				continue
			}
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, 0, 0, 0, err
		}
		errs.Go(func() error {
			defer sem.Release(1)

			chartURL, err := chartDownloadURL(feed, cv)
			if err != nil {
				return err
			}
			filename := filenameFromHref(chartURL)
			sha256Hex, poolPath, size, err := p.fetchIntoPool(ctx, client, chartURL, filename, pool.Content, sha256Hex)
			if err != nil {
				return fmt.Errorf("downloading %s-%s: %w", cv.Name, cv.Version, err)
			}

			meta, err := json.Marshal(helmContentMetadata{AppVersion: cv.AppVersion, Description: cv.Description, Digest: cv.Digest})
			if err != nil {
				return err
			}

			ci := &catalog.ContentItem{
				ContentType:     catalog.Helm,
				Name:            cv.Name,
				Version:         cv.Version,
				SHA256:          sha256Hex,
				SizeBytes:       size,
				Filename:        filename,
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

// chartSHA256 extracts the hex digest from a Helm "sha256:..." digest
// string, returning "" if it isn't in that form (some charts omit the
// digest, or use a different algorithm prefix).
func chartSHA256(digest string) string {
	const prefix = "sha256:"
	if len(digest) > len(prefix) && digest[:len(prefix)] == prefix {
		return digest[len(prefix):]
	}
	return ""
}

// chartDownloadURL resolves a chart's .urls[0] entry, which per the Helm
// chart repository convention may be either absolute (common when charts
// are hosted in object storage separate from index.yaml) or relative to
// the index's own feed URL.
func chartDownloadURL(feed string, cv helm.ChartVersion) (string, error) {
	u := cv.URLs[0]
	if hasScheme(u) {
		return u, nil
	}
	return resolveURL(feed, u)
}

func hasScheme(u string) bool {
	for i := 0; i < len(u); i++ {
		switch u[i] {
		case ':':
			return i > 0
		case '/':
			return false
		}
	}
	return false
}
