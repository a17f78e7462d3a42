// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/repoforge/mirror/internal/parsers/apk"
)

type apkContentMetadata struct {
	Architecture string `json:"architecture"`
	Origin       string `json:"origin,omitempty"`
	Maintainer   string `json:"maintainer,omitempty"`
	Depends      string `json:"depends,omitempty"`
	Provides     string `json:"provides,omitempty"`
}

// publishAPK implements spec.md §4.8.4: hardlink every .apk under
// <branch>/<repository>/<architecture>/ and regenerate APKINDEX.tar.gz
// from catalog state. "branch" has no catalog column of its own, so the
// repository's name is reused for it the same way publishDEB reuses it
// for "suite": one configured repository maps onto one upstream branch.
func publishAPK(src *source, targetDir string) error {
	branch := src.repository.Name

	byArch := make(map[string][]apk.Package)
	var arches []string
	for _, ci := range src.items {
		var meta apkContentMetadata
		_ = json.Unmarshal([]byte(ci.ContentMetadata), &meta)

		destRel := filepath.Join(branch, src.repository.Name, meta.Architecture, ci.Filename)
		if err := hardlinkFromPool(ci.PoolPath, filepath.Join(targetDir, destRel)); err != nil {
			return err
		}

		if _, ok := byArch[meta.Architecture]; !ok {
			arches = append(arches, meta.Architecture)
		}
		byArch[meta.Architecture] = append(byArch[meta.Architecture], apk.Package{
			Name: ci.Name, Version: ci.Version, Architecture: meta.Architecture,
			Size: ci.SizeBytes, Origin: meta.Origin, Maintainer: meta.Maintainer,
			Depends: meta.Depends, Provides: meta.Provides,
		})
	}

	for _, arch := range arches {
		indexRaw := apk.EncodeAPKIndex(byArch[arch])
		indexTarGz, err := apk.EncodeAPKIndexTarGz(byArch[arch])
		if err != nil {
			return fmt.Errorf("regenerating APKINDEX.tar.gz for %s: %w", arch, err)
		}
		base := filepath.Join(branch, src.repository.Name, arch)
		if err := writeGenerated(filepath.Join(targetDir, base, "APKINDEX"), indexRaw); err != nil {
			return err
		}
		if err := writeGenerated(filepath.Join(targetDir, base, "APKINDEX.tar.gz"), indexTarGz); err != nil {
			return err
		}
	}
	return nil
}
