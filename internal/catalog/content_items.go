// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ContentItemBySHA256 looks up a content item by its pool digest, the key
// the sync pipeline uses to decide whether a remote package is already
// pooled before downloading it again.
func (c *Catalog) ContentItemBySHA256(ctx context.Context, sha256Hex string) (*ContentItem, error) {
	var ci ContentItem
	err := c.db.GetContext(ctx, &ci, `SELECT * FROM content_items WHERE sha256 = ?`, sha256Hex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content item %s: %w", sha256Hex, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ci, nil
}

// UpsertContentItem inserts ci if its sha256 is new, otherwise returns the
// existing row's id unchanged: content is immutable once pooled, so a
// re-sync that observes the same bytes under a different name never
// duplicates storage.
func (s *Session) UpsertContentItem(ctx context.Context, ci *ContentItem) error {
	var existingID string
	err := s.tx.GetContext(ctx, &existingID, `SELECT id FROM content_items WHERE sha256 = ?`, ci.SHA256)
	switch {
	case err == nil:
		ci.ID = existingID
		return nil
	case errors.Is(err, sql.ErrNoRows):
		if ci.ID == "" {
			ci.ID = uuid.NewString()
		}
		_, err = s.tx.ExecContext(ctx, `
			INSERT INTO content_items (id, content_type, name, version, sha256, size_bytes, filename, pool_path, content_metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ci.ID, ci.ContentType, ci.Name, ci.Version, ci.SHA256, ci.SizeBytes, ci.Filename, ci.PoolPath, ci.ContentMetadata)
		if err != nil {
			return fmt.Errorf("while inserting content item %s: %w", ci.Name, err)
		}
		return nil
	default:
		return err
	}
}

// LinkRepositoryContentItem records that a repository currently references
// a content item. Idempotent: re-linking an already-linked pair is a
// no-op, which lets a re-sync link every package it observes without first
// checking what was already linked.
func (s *Session) LinkRepositoryContentItem(ctx context.Context, repositoryID, contentItemID string) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO repository_content_items (repository_id, content_item_id)
		VALUES (?, ?)`, repositoryID, contentItemID)
	return err
}

// UnlinkRepositoryContentItem removes a repository's reference to a
// content item, e.g. when a sync observes the package has been dropped
// upstream or filtered out.
func (s *Session) UnlinkRepositoryContentItem(ctx context.Context, repositoryID, contentItemID string) error {
	_, err := s.tx.ExecContext(ctx, `
		DELETE FROM repository_content_items WHERE repository_id = ? AND content_item_id = ?`,
		repositoryID, contentItemID)
	return err
}

// RepositoryContentItems lists every content item currently linked to a
// repository.
func (c *Catalog) RepositoryContentItems(ctx context.Context, repositoryID string) ([]ContentItem, error) {
	var items []ContentItem
	err := c.db.SelectContext(ctx, &items, `
		SELECT ci.* FROM content_items ci
		JOIN repository_content_items rci ON rci.content_item_id = ci.id
		WHERE rci.repository_id = ?
		ORDER BY ci.name, ci.version`, repositoryID)
	return items, err
}

// ContentItemReferenceCount reports how many repositories and snapshots
// together still reference a content item. Used by integrity GC to decide
// whether a pool entry may be deleted.
func (c *Catalog) ContentItemReferenceCount(ctx context.Context, contentItemID string) (int, error) {
	var n int
	err := c.db.GetContext(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM repository_content_items WHERE content_item_id = ?) +
			(SELECT COUNT(*) FROM snapshot_content_items WHERE content_item_id = ?)`,
		contentItemID, contentItemID)
	return n, err
}

// DeleteContentItem removes a content item row. Callers must have already
// verified its reference count is zero.
func (s *Session) DeleteContentItem(ctx context.Context, id string) error {
	_, err := s.tx.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id)
	return err
}

// ListAllContentItems returns every content item in the catalog,
// regardless of repository or snapshot membership. Used by integrity
// checks that need to verify every pooled byte the catalog knows about.
func (c *Catalog) ListAllContentItems(ctx context.Context) ([]ContentItem, error) {
	var items []ContentItem
	err := c.db.SelectContext(ctx, &items, `SELECT * FROM content_items ORDER BY name, version`)
	return items, err
}
