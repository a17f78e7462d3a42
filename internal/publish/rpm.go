// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/parsers/rpm"
	"github.com/repoforge/mirror/pkg/decompress"
)

type rpmContentMetadata struct {
	Epoch     string `json:"epoch,omitempty"`
	Arch      string `json:"arch"`
	SourceRPM string `json:"source_rpm,omitempty"`
	Group     string `json:"group,omitempty"`
	License   string `json:"license,omitempty"`
	Vendor    string `json:"vendor,omitempty"`
	BuildTime int64  `json:"build_time,omitempty"`
}

// publishRPM implements spec.md §4.8.1: hardlink every package at its
// original relative path, then regenerate primary.xml and repomd.xml from
// catalog state so the published tree is internally consistent with what
// was actually placed on disk. Every other metadata/installer
// RepositoryFile is republished by hardlink, verbatim — except
// filelists/other/updateinfo under a filtered repository, which are
// decompressed, pruned against the repository's kept NEVRAs/package IDs,
// and re-encoded, since a filtered repository's content items are a
// strict subset of upstream's. Mirror (and any other non-filtered) mode
// never takes that branch, so byte-for-byte fidelity with upstream holds.
func publishRPM(src *source, targetDir string) error {
	pkgs := make([]rpm.Package, 0, len(src.items))
	keepNEVRA := make(map[string]bool, len(src.items))
	keepPkgID := make(map[string]bool, len(src.items))
	for _, ci := range src.items {
		var meta rpmContentMetadata
		_ = json.Unmarshal([]byte(ci.ContentMetadata), &meta)

		destRel := filepath.Join("Packages", ci.Filename)
		if err := hardlinkFromPool(ci.PoolPath, filepath.Join(targetDir, destRel)); err != nil {
			return err
		}

		pkg := rpm.Package{
			Name: ci.Name, Epoch: meta.Epoch, Arch: meta.Arch, SHA256: ci.SHA256,
			Href: destRel, Size: ci.SizeBytes, BuildTime: meta.BuildTime,
			Group: meta.Group, License: meta.License, Vendor: meta.Vendor, SourceRPM: meta.SourceRPM,
		}
		pkg.Version, pkg.Release = splitVersionRelease(ci.Version)
		pkgs = append(pkgs, pkg)
		keepNEVRA[pkg.NEVRA()] = true
		keepPkgID[ci.SHA256] = true
	}

	var dataEntries []*rpm.RepoMdData
	for _, rf := range src.files {
		if rf.FileCategory == catalog.CategoryKickstart {
			if err := hardlinkFromPool(rf.PoolPath, filepath.Join(targetDir, rf.OriginalPath)); err != nil {
				return err
			}
			continue
		}
		if rf.FileType == "primary" {
			// regenerated below from catalog state, not republished verbatim
			continue
		}

		if src.repository.Mode == catalog.ModeFiltered && (rf.FileType == "filelists" || rf.FileType == "other" || rf.FileType == "updateinfo") {
			entry, err := filterRepoMdData(rf, keepNEVRA, keepPkgID, targetDir)
			if err != nil {
				return fmt.Errorf("filtering %s: %w", rf.FileType, err)
			}
			dataEntries = append(dataEntries, entry)
			continue
		}

		destRel := filepath.Join("repodata", filepath.Base(rf.OriginalPath))
		if err := hardlinkFromPool(rf.PoolPath, filepath.Join(targetDir, destRel)); err != nil {
			return err
		}
		dataEntries = append(dataEntries, &rpm.RepoMdData{
			Type:     rf.FileType,
			Checksum: &rpm.RepoMdDataChecksum{Type: "sha256", Value: rf.SHA256},
			Location: &rpm.RepoMdDataLocation{Href: destRel},
			Size:     rf.SizeBytes,
		})
	}

	primaryRaw, err := rpm.EncodePrimary(pkgs)
	if err != nil {
		return fmt.Errorf("regenerating primary.xml: %w", err)
	}
	primaryGz, err := gzipBytes(primaryRaw)
	if err != nil {
		return err
	}
	primaryRel := filepath.Join("repodata", "primary.xml.gz")
	if err := writeGenerated(filepath.Join(targetDir, primaryRel), primaryGz); err != nil {
		return err
	}
	dataEntries = append(dataEntries, &rpm.RepoMdData{
		Type:         "primary",
		Checksum:     &rpm.RepoMdDataChecksum{Type: "sha256", Value: sha256Hex(primaryGz)},
		OpenChecksum: &rpm.RepoMdDataChecksum{Type: "sha256", Value: sha256Hex(primaryRaw)},
		Location:     &rpm.RepoMdDataLocation{Href: primaryRel},
		Timestamp:    nowUnix(),
		Size:         int64(len(primaryGz)),
		OpenSize:     int64(len(primaryRaw)),
	})

	repomdRaw, err := rpm.EncodeRepomd(dataEntries, nowUnix())
	if err != nil {
		return fmt.Errorf("regenerating repomd.xml: %w", err)
	}
	return writeGenerated(filepath.Join(targetDir, "repodata", "repomd.xml"), repomdRaw)
}

// filterRepoMdData drops filelists/other/updateinfo entries that no
// longer reference a package the filtered repository still carries, then
// writes the pruned document as a freshly regenerated (not hardlinked)
// repodata file and returns its repomd.xml entry.
func filterRepoMdData(rf catalog.RepositoryFile, keepNEVRA, keepPkgID map[string]bool, targetDir string) (*rpm.RepoMdData, error) {
	compressed, err := os.ReadFile(rf.PoolPath)
	if err != nil {
		return nil, err
	}
	r, err := decompress.Reader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var filtered []byte
	switch rf.FileType {
	case "filelists":
		root, err := rpm.ParseFilelists(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing filelists.xml: %w", err)
		}
		filtered, err = rpm.EncodeFilelists(rpm.FilterFilelistsPackages(root.Packages, keepPkgID))
		if err != nil {
			return nil, fmt.Errorf("encoding filtered filelists.xml: %w", err)
		}
	case "other":
		root, err := rpm.ParseOther(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing other.xml: %w", err)
		}
		filtered, err = rpm.EncodeOther(rpm.FilterOtherPackages(root.Packages, keepPkgID))
		if err != nil {
			return nil, fmt.Errorf("encoding filtered other.xml: %w", err)
		}
	case "updateinfo":
		root, err := rpm.ParseUpdateInfo(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing updateinfo.xml: %w", err)
		}
		filtered, err = rpm.EncodeUpdateInfo(rpm.FilterUpdates(root.Updates, keepNEVRA))
		if err != nil {
			return nil, fmt.Errorf("encoding filtered updateinfo.xml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported filtered repodata type %q", rf.FileType)
	}

	base := strings.TrimSuffix(filepath.Base(rf.OriginalPath), ".gz")
	filteredGz, err := gzipBytes(filtered)
	if err != nil {
		return nil, err
	}
	destRel := filepath.Join("repodata", base+".gz")
	if err := writeGenerated(filepath.Join(targetDir, destRel), filteredGz); err != nil {
		return nil, err
	}

	return &rpm.RepoMdData{
		Type:         rf.FileType,
		Checksum:     &rpm.RepoMdDataChecksum{Type: "sha256", Value: sha256Hex(filteredGz)},
		OpenChecksum: &rpm.RepoMdDataChecksum{Type: "sha256", Value: sha256Hex(filtered)},
		Location:     &rpm.RepoMdDataLocation{Href: destRel},
		Timestamp:    nowUnix(),
		Size:         int64(len(filteredGz)),
		OpenSize:     int64(len(filtered)),
	}, nil
}

// splitVersionRelease recovers an RPM's "version-release" pair from the
// catalog's VersionString encoding ("[epoch:]version-release").
func splitVersionRelease(versionString string) (version, release string) {
	s := versionString
	if idx := strings.LastIndexByte(s, ':'); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}
