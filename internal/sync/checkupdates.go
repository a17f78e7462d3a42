// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/config"
	"github.com/repoforge/mirror/internal/filter"
	"github.com/repoforge/mirror/internal/parsers/apk"
	"github.com/repoforge/mirror/internal/parsers/deb"
	"github.com/repoforge/mirror/internal/parsers/helm"
	"github.com/repoforge/mirror/internal/parsers/rpm"
	"github.com/repoforge/mirror/pkg/decompress"
)

// contentItemArch extracts the architecture recorded in a content item's
// format-specific content_metadata JSON, so check-updates can group
// current catalog items by (name, arch) the same way it groups upstream
// listings. Architecture isn't its own column: it's part of the tagged
// union stored per ContentType.
func contentItemArch(contentType catalog.ContentType, ci catalog.ContentItem) string {
	var meta struct {
		Arch         string `json:"arch"`
		Architecture string `json:"architecture"`
	}
	if err := json.Unmarshal([]byte(ci.ContentMetadata), &meta); err != nil {
		return ""
	}
	if meta.Arch != "" {
		return meta.Arch
	}
	return meta.Architecture
}

// PackageUpdate is one (name, arch) group where the upstream feed carries
// a strictly newer version than what the catalog currently has linked to
// the repository.
type PackageUpdate struct {
	Name             string
	Arch             string
	CurrentVersion   string
	AvailableVersion string
}

// UpdateReport is the result of a check-updates run: steps 1-6 of the
// sync algorithm (fetch, parse, filter, and compare) without downloading
// anything or touching the catalog.
type UpdateReport struct {
	RepositoryID string
	Updates      []PackageUpdate
}

// CheckUpdates runs the read-only prefix of the sync pipeline: fetch root
// metadata, parse the listing, apply the repository's filters, and report
// which (name, arch) groups have a newer version available upstream than
// what is currently linked. No payload is downloaded and the catalog is
// never written to.
func (p *Pipeline) CheckUpdates(ctx context.Context, repoCfg config.Repository) (*UpdateReport, error) {
	contentType := repoCfg.ContentType()

	upstream, err := p.listUpstreamRecords(ctx, repoCfg)
	if err != nil {
		return nil, err
	}

	var current []filter.Record
	if repo, err := p.Catalog.RepositoryByName(ctx, repoCfg.ID); err == nil {
		items, err := p.Catalog.RepositoryContentItems(ctx, repo.ID)
		if err != nil {
			return nil, err
		}
		for _, ci := range items {
			current = append(current, filter.Record{Name: ci.Name, Version: ci.Version, Arch: contentItemArch(contentType, ci)})
		}
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	upstreamBest, err := filter.Apply(contentType, upstream, filter.Config{OnlyLatestVersion: true})
	if err != nil {
		return nil, err
	}
	currentBest, err := filter.Apply(contentType, current, filter.Config{OnlyLatestVersion: true})
	if err != nil {
		return nil, err
	}

	currentByKey := make(map[string]filter.Record, len(currentBest))
	for _, r := range currentBest {
		currentByKey[r.Name+"\x00"+r.Arch] = r
	}

	report := &UpdateReport{RepositoryID: repoCfg.ID}
	for _, r := range upstreamBest {
		existing, ok := currentByKey[r.Name+"\x00"+r.Arch]
		if !ok || filter.IsNewer(contentType, r.Version, existing.Version) {
			current := ""
			if ok {
				current = existing.Version
			}
			report.Updates = append(report.Updates, PackageUpdate{
				Name: r.Name, Arch: r.Arch, CurrentVersion: current, AvailableVersion: r.Version,
			})
		}
	}
	return report, nil
}

// listUpstreamRecords fetches and parses the upstream listing, applying
// the repository's configured filters, without writing anything to the
// catalog or pool.
func (p *Pipeline) listUpstreamRecords(ctx context.Context, repoCfg config.Repository) ([]filter.Record, error) {
	client, err := buildClient(p.Config, repoCfg)
	if err != nil {
		return nil, err
	}
	contentType := repoCfg.ContentType()

	var records []filter.Record
	switch contentType {
	case catalog.RPM:
		records, err = p.listRPMRecords(ctx, client, repoCfg)
	case catalog.DEB:
		records, err = p.listDEBRecords(ctx, client, repoCfg)
	case catalog.Helm:
		records, err = p.listHelmRecords(ctx, client, repoCfg)
	case catalog.APK:
		records, err = p.listAPKRecords(ctx, client, repoCfg)
	default:
		return nil, fmt.Errorf("sync: unsupported repository type %q", repoCfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return filter.Apply(contentType, records, repoCfg.Filters.ToFilter())
}

func (p *Pipeline) listRPMRecords(ctx context.Context, client interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}, repoCfg config.Repository) ([]filter.Record, error) {
	repomdURL, err := resolveURL(repoCfg.Feed, "repodata/repomd.xml")
	if err != nil {
		return nil, err
	}
	body, err := client.Get(ctx, repomdURL)
	if err != nil {
		return nil, err
	}
	repomdRoot, err := rpm.ParseRepomd(body)
	_ = body.Close()
	if err != nil {
		return nil, err
	}

	primaryData := repomdRoot.DataByType(rpm.PrimaryDataType)
	if primaryData == nil {
		return nil, fmt.Errorf("repomd.xml for %s declares no primary data", repoCfg.ID)
	}
	primaryURL, err := resolveURL(repoCfg.Feed, primaryData.Location.Href)
	if err != nil {
		return nil, err
	}
	primaryBody, err := client.Get(ctx, primaryURL)
	if err != nil {
		return nil, err
	}
	defer primaryBody.Close()
	primaryReader, err := decompress.Reader(primaryBody)
	if err != nil {
		return nil, err
	}

	var records []filter.Record
	err = rpm.WalkPrimary(primaryReader, func(pkg rpm.Package, _ int) error {
		records = append(records, filter.Record{
			Name: pkg.Name, Arch: pkg.Arch, Version: pkg.VersionString(), Label: pkg.NEVRA(),
			SizeBytes: pkg.Size, BuildTime: pkg.BuildTime, SourceRPM: pkg.SourceRPM,
			Group: pkg.Group, License: pkg.License, Vendor: pkg.Vendor,
		})
		return nil
	})
	return records, err
}

func (p *Pipeline) listDEBRecords(ctx context.Context, client interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}, repoCfg config.Repository) ([]filter.Record, error) {
	inReleaseURL, err := resolveURL(repoCfg.Feed, "dists/"+suiteOf(repoCfg)+"/InRelease")
	if err != nil {
		return nil, err
	}
	body, err := client.Get(ctx, inReleaseURL)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return nil, err
	}
	release, err := deb.ParseInRelease(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	architectures := release.Architectures
	if len(architectures) == 0 {
		architectures = []string{"amd64"}
	}

	var records []filter.Record
	for _, component := range release.Components {
		for _, arch := range architectures {
			pkgsPath := fmt.Sprintf("dists/%s/%s/binary-%s/Packages.gz", release.Suite, component, arch)
			pkgsURL, err := resolveURL(repoCfg.Feed, pkgsPath)
			if err != nil {
				return nil, err
			}
			pkgsBody, err := client.Get(ctx, pkgsURL)
			if err != nil {
				continue
			}
			listingReader, err := decompress.Reader(pkgsBody)
			if err != nil {
				_ = pkgsBody.Close()
				return nil, err
			}
			walkErr := deb.WalkPackages(listingReader, component, func(pkg deb.Package) error {
				records = append(records, filter.Record{
					Name: pkg.Name, Arch: pkg.Architecture, Version: pkg.Version,
					Label: pkg.Name + "_" + pkg.Version + "_" + pkg.Architecture,
					SizeBytes: pkg.Size, Component: pkg.Component, Priority: pkg.Priority,
				})
				return nil
			})
			_ = pkgsBody.Close()
			if walkErr != nil {
				return nil, walkErr
			}
		}
	}
	return records, nil
}

func (p *Pipeline) listHelmRecords(ctx context.Context, client interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}, repoCfg config.Repository) ([]filter.Record, error) {
	indexURL, err := resolveURL(repoCfg.Feed, "index.yaml")
	if err != nil {
		return nil, err
	}
	body, err := client.Get(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	index, err := helm.ParseIndex(body)
	if err != nil {
		return nil, err
	}

	var records []filter.Record
	for _, cv := range index.Flatten() {
		records = append(records, filter.Record{Name: cv.Name, Version: cv.Version, Label: cv.Name + "-" + cv.Version})
	}
	return records, nil
}

func (p *Pipeline) listAPKRecords(ctx context.Context, client interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}, repoCfg config.Repository) ([]filter.Record, error) {
	var records []filter.Record
	for _, arch := range apkArchitectures(repoCfg) {
		indexURL, err := resolveURL(repoCfg.Feed, arch+"/APKINDEX.tar.gz")
		if err != nil {
			return nil, err
		}
		body, err := client.Get(ctx, indexURL)
		if err != nil {
			continue
		}
		walkErr := apk.WalkAPKIndexTarGz(body, func(pkg apk.Package) error {
			records = append(records, filter.Record{
				Name: pkg.Name, Arch: arch, Version: pkg.Version,
				Label: pkg.Name + "-" + pkg.Version + "." + arch,
				SizeBytes: pkg.Size, BuildTime: pkg.BuildTime,
			})
			return nil
		})
		_ = body.Close()
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return records, nil
}
