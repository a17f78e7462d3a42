// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateSnapshot freezes a repository's current set of linked content
// items and files into a new, immutable Snapshot row plus its join-table
// membership. name must be unique within the repository.
func (s *Session) CreateSnapshot(ctx context.Context, repositoryID, name, description string, createdAt int64) (*Snapshot, error) {
	snap := &Snapshot{
		ID:           uuid.NewString(),
		RepositoryID: repositoryID,
		Name:         name,
		Description:  description,
		CreatedAt:    createdAt,
	}

	var contentItemIDs []string
	if err := s.tx.SelectContext(ctx, &contentItemIDs, `
		SELECT content_item_id FROM repository_content_items WHERE repository_id = ?`, repositoryID); err != nil {
		return nil, err
	}

	var fileIDs []string
	if err := s.tx.SelectContext(ctx, &fileIDs, `
		SELECT repository_file_id FROM repository_repository_files WHERE repository_id = ?`, repositoryID); err != nil {
		return nil, err
	}

	var totalSize int64
	if len(contentItemIDs) > 0 {
		query, args, err := sqlxIn(`SELECT COALESCE(SUM(size_bytes), 0) FROM content_items WHERE id IN (?)`, contentItemIDs)
		if err != nil {
			return nil, err
		}
		if err := s.tx.GetContext(ctx, &totalSize, s.tx.Rebind(query), args...); err != nil {
			return nil, err
		}
	}
	snap.PackageCount = len(contentItemIDs)
	snap.TotalSizeBytes = totalSize

	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, repository_id, name, description, package_count, total_size_bytes, is_published, published_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, '', ?)`,
		snap.ID, snap.RepositoryID, snap.Name, snap.Description, snap.PackageCount, snap.TotalSizeBytes, snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("while inserting snapshot %s: %w", name, err)
	}

	for _, id := range contentItemIDs {
		if _, err := s.tx.ExecContext(ctx, `
			INSERT INTO snapshot_content_items (snapshot_id, content_item_id) VALUES (?, ?)`, snap.ID, id); err != nil {
			return nil, err
		}
	}
	for _, id := range fileIDs {
		if _, err := s.tx.ExecContext(ctx, `
			INSERT INTO snapshot_repository_files (snapshot_id, repository_file_id) VALUES (?, ?)`, snap.ID, id); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// CopySnapshot duplicates an existing snapshot's membership under a new
// name, without touching the source repository's live links.
func (s *Session) CopySnapshot(ctx context.Context, sourceSnapshotID, newName string, createdAt int64) (*Snapshot, error) {
	var src Snapshot
	if err := s.tx.GetContext(ctx, &src, `SELECT * FROM snapshots WHERE id = ?`, sourceSnapshotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", sourceSnapshotID, ErrNotFound)
		}
		return nil, err
	}

	dst := &Snapshot{
		ID:             uuid.NewString(),
		RepositoryID:   src.RepositoryID,
		Name:           newName,
		Description:    src.Description,
		PackageCount:   src.PackageCount,
		TotalSizeBytes: src.TotalSizeBytes,
		CreatedAt:      createdAt,
	}
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, repository_id, name, description, package_count, total_size_bytes, is_published, published_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, '', ?)`,
		dst.ID, dst.RepositoryID, dst.Name, dst.Description, dst.PackageCount, dst.TotalSizeBytes, dst.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("while inserting snapshot copy %s: %w", newName, err)
	}

	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO snapshot_content_items (snapshot_id, content_item_id)
		SELECT ?, content_item_id FROM snapshot_content_items WHERE snapshot_id = ?`, dst.ID, sourceSnapshotID)
	if err != nil {
		return nil, err
	}
	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO snapshot_repository_files (snapshot_id, repository_file_id)
		SELECT ?, repository_file_id FROM snapshot_repository_files WHERE snapshot_id = ?`, dst.ID, sourceSnapshotID)
	if err != nil {
		return nil, err
	}

	return dst, nil
}

// DeleteSnapshot removes a snapshot and its membership rows. Refuses to
// delete a currently-published snapshot; callers must unpublish first.
func (s *Session) DeleteSnapshot(ctx context.Context, id string) error {
	var published bool
	if err := s.tx.GetContext(ctx, &published, `SELECT is_published FROM snapshots WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
		}
		return err
	}
	if published {
		return fmt.Errorf("snapshot %s is published; unpublish before deleting", id)
	}

	if _, err := s.tx.ExecContext(ctx, `DELETE FROM snapshot_content_items WHERE snapshot_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM snapshot_repository_files WHERE snapshot_id = ?`, id); err != nil {
		return err
	}
	_, err := s.tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	return err
}

// SetSnapshotPublished marks a snapshot as published (or not) at a given
// materialized path.
func (s *Session) SetSnapshotPublished(ctx context.Context, id string, published bool, publishedPath string) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE snapshots SET is_published = ?, published_path = ? WHERE id = ?`, published, publishedPath, id)
	return err
}

// SnapshotByID looks up a snapshot by id.
func (c *Catalog) SnapshotByID(ctx context.Context, id string) (*Snapshot, error) {
	var snap Snapshot
	err := c.db.GetContext(ctx, &snap, `SELECT * FROM snapshots WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SnapshotByName looks up a snapshot by repository id and name.
func (c *Catalog) SnapshotByName(ctx context.Context, repositoryID, name string) (*Snapshot, error) {
	var snap Snapshot
	err := c.db.GetContext(ctx, &snap, `
		SELECT * FROM snapshots WHERE repository_id = ? AND name = ?`, repositoryID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s/%s: %w", repositoryID, name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots returns every snapshot belonging to a repository, newest
// first.
func (c *Catalog) ListSnapshots(ctx context.Context, repositoryID string) ([]Snapshot, error) {
	var snaps []Snapshot
	err := c.db.SelectContext(ctx, &snaps, `
		SELECT * FROM snapshots WHERE repository_id = ? ORDER BY created_at DESC`, repositoryID)
	return snaps, err
}

// SnapshotContentItems lists the content items frozen into a snapshot.
func (c *Catalog) SnapshotContentItems(ctx context.Context, snapshotID string) ([]ContentItem, error) {
	var items []ContentItem
	err := c.db.SelectContext(ctx, &items, `
		SELECT ci.* FROM content_items ci
		JOIN snapshot_content_items sci ON sci.content_item_id = ci.id
		WHERE sci.snapshot_id = ?
		ORDER BY ci.name, ci.version`, snapshotID)
	return items, err
}

// SnapshotRepositoryFiles lists the files frozen into a snapshot.
func (c *Catalog) SnapshotRepositoryFiles(ctx context.Context, snapshotID string) ([]RepositoryFile, error) {
	var files []RepositoryFile
	err := c.db.SelectContext(ctx, &files, `
		SELECT rf.* FROM repository_files rf
		JOIN snapshot_repository_files srf ON srf.repository_file_id = rf.id
		WHERE srf.snapshot_id = ?
		ORDER BY rf.original_path`, snapshotID)
	return files, err
}
