// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/repoforge/mirror/internal/parsers/helm"
)

type helmContentMetadata struct {
	AppVersion  string `json:"app_version,omitempty"`
	Description string `json:"description,omitempty"`
	Digest      string `json:"digest,omitempty"`
}

// publishHelm implements spec.md §4.8.3: hardlink every chart archive,
// then either republish the upstream index.yaml verbatim (mirror mode,
// when one was captured as a RepositoryFile) or regenerate it from
// catalog state with a urls entry pointing at the hardlinked filename.
func publishHelm(src *source, targetDir string) error {
	idx := &helm.Index{APIVersion: "v1", Entries: map[string][]helm.ChartVersion{}}

	for _, ci := range src.items {
		var meta helmContentMetadata
		_ = json.Unmarshal([]byte(ci.ContentMetadata), &meta)

		if err := hardlinkFromPool(ci.PoolPath, filepath.Join(targetDir, ci.Filename)); err != nil {
			return err
		}

		idx.Entries[ci.Name] = append(idx.Entries[ci.Name], helm.ChartVersion{
			Name: ci.Name, Version: ci.Version, AppVersion: meta.AppVersion, Description: meta.Description,
			Digest: "sha256:" + ci.SHA256, URLs: []string{ci.Filename},
		})
	}

	for _, rf := range src.files {
		if rf.FileType == "index" {
			return hardlinkFromPool(rf.PoolPath, filepath.Join(targetDir, "index.yaml"))
		}
	}

	raw, err := helm.EncodeIndex(idx)
	if err != nil {
		return fmt.Errorf("regenerating index.yaml: %w", err)
	}
	return writeGenerated(filepath.Join(targetDir, "index.yaml"), raw)
}
