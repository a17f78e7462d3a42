// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"encoding/json"

	"github.com/repoforge/mirror/internal/catalog"
)

// itemArch recovers the architecture recorded in a content item's
// format-specific content_metadata JSON blob. Architecture isn't its own
// catalog column: every format tags it differently inside the metadata
// union, hence checking both field names used across RPM/DEB/APK.
func itemArch(ci catalog.ContentItem) string {
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
