// SPDX-License-Identifier: Apache-2.0

package catalog

import "context"

// KnownSHA256 reports whether a pool digest is still referenced by any
// content item or repository file, for use as a pool.KnownFunc during
// orphan scans.
func (c *Catalog) KnownSHA256(ctx context.Context, sha256Hex string) (bool, error) {
	var n int
	err := c.db.GetContext(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM content_items WHERE sha256 = ?) +
			(SELECT COUNT(*) FROM repository_files WHERE sha256 = ?)`,
		sha256Hex, sha256Hex)
	return n > 0, err
}

// OrphanedContentItems returns content items referenced by neither a
// repository nor a snapshot: candidates for catalog (and, transitively,
// pool) cleanup.
func (c *Catalog) OrphanedContentItems(ctx context.Context) ([]ContentItem, error) {
	var items []ContentItem
	err := c.db.SelectContext(ctx, &items, `
		SELECT * FROM content_items ci
		WHERE NOT EXISTS (SELECT 1 FROM repository_content_items WHERE content_item_id = ci.id)
		  AND NOT EXISTS (SELECT 1 FROM snapshot_content_items WHERE content_item_id = ci.id)`)
	return items, err
}

// OrphanedRepositoryFiles returns files referenced by neither a repository
// nor a snapshot.
func (c *Catalog) OrphanedRepositoryFiles(ctx context.Context) ([]RepositoryFile, error) {
	var files []RepositoryFile
	err := c.db.SelectContext(ctx, &files, `
		SELECT * FROM repository_files rf
		WHERE NOT EXISTS (SELECT 1 FROM repository_repository_files WHERE repository_file_id = rf.id)
		  AND NOT EXISTS (SELECT 1 FROM snapshot_repository_files WHERE repository_file_id = rf.id)`)
	return files, err
}
