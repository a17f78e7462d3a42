// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/parsers/deb"
)

type debContentMetadata struct {
	Architecture string `json:"architecture"`
	Component    string `json:"component"`
	Priority     string `json:"priority"`
	Section      string `json:"section,omitempty"`
	Depends      string `json:"depends,omitempty"`
}

// publishDEB implements spec.md §4.8.2: hardlink every .deb under
// dists/<suite>/<component>/binary-<arch>/, regenerate Packages/
// Packages.gz per (component, arch), and always regenerate Release with
// fresh checksums. The repository's name stands in for "suite": the
// catalog has no separate suite column, and a repository-per-suite
// layout is the natural one-to-one mapping for a mirrored config entry.
func publishDEB(src *source, targetDir string) error {
	suite := src.repository.Name

	type group struct {
		component, arch string
		pkgs            []deb.Package
	}
	groups := make(map[string]*group)
	var order []string

	for _, ci := range src.items {
		var meta debContentMetadata
		_ = json.Unmarshal([]byte(ci.ContentMetadata), &meta)

		destRel := filepath.Join("dists", suite, meta.Component, "binary-"+meta.Architecture, ci.Filename)
		if err := hardlinkFromPool(ci.PoolPath, filepath.Join(targetDir, destRel)); err != nil {
			return err
		}

		key := meta.Component + "/" + meta.Architecture
		g, ok := groups[key]
		if !ok {
			g = &group{component: meta.Component, arch: meta.Architecture}
			groups[key] = g
			order = append(order, key)
		}
		g.pkgs = append(g.pkgs, deb.Package{
			Name: ci.Name, Version: ci.Version, Architecture: meta.Architecture,
			SHA256: ci.SHA256, Size: ci.SizeBytes, Filename: destRel,
			Component: meta.Component, Priority: meta.Priority, Section: meta.Section, Depends: meta.Depends,
		})
	}

	var releaseFiles []deb.ReleaseFile
	var architectures, components []string
	seenArch, seenComponent := map[string]bool{}, map[string]bool{}

	for _, key := range order {
		g := groups[key]
		if !seenArch[g.arch] {
			seenArch[g.arch] = true
			architectures = append(architectures, g.arch)
		}
		if !seenComponent[g.component] {
			seenComponent[g.component] = true
			components = append(components, g.component)
		}

		packagesRaw := deb.EncodePackages(g.pkgs)
		packagesGz, err := deb.EncodePackagesGz(packagesRaw)
		if err != nil {
			return fmt.Errorf("gzipping Packages for %s/%s: %w", g.component, g.arch, err)
		}

		base := filepath.Join("dists", suite, g.component, "binary-"+g.arch)
		if err := writeGenerated(filepath.Join(targetDir, base, "Packages"), packagesRaw); err != nil {
			return err
		}
		if err := writeGenerated(filepath.Join(targetDir, base, "Packages.gz"), packagesGz); err != nil {
			return err
		}

		releaseFiles = append(releaseFiles,
			deb.ReleaseFile{Path: filepath.Join(g.component, "binary-"+g.arch, "Packages"), Data: packagesRaw},
			deb.ReleaseFile{Path: filepath.Join(g.component, "binary-"+g.arch, "Packages.gz"), Data: packagesGz},
		)
	}

	if src.repository.Mode == catalog.ModeMirror {
		for _, rf := range src.files {
			if rf.FileCategory != catalog.CategorySignature && rf.FileType != "InRelease" && rf.FileType != "Release" {
				continue
			}
			destRel := filepath.Join("dists", suite, filepath.Base(rf.OriginalPath))
			if err := hardlinkFromPool(rf.PoolPath, filepath.Join(targetDir, destRel)); err != nil {
				return err
			}
		}
	}

	release := deb.EncodeRelease(suite, suite, architectures, components, releaseFiles)
	return writeGenerated(filepath.Join(targetDir, "dists", suite, "Release"), release)
}
