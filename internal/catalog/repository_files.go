// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RepositoryFileBySHA256 looks up a repository file by its pool digest.
func (c *Catalog) RepositoryFileBySHA256(ctx context.Context, sha256Hex string) (*RepositoryFile, error) {
	var rf RepositoryFile
	err := c.db.GetContext(ctx, &rf, `SELECT * FROM repository_files WHERE sha256 = ?`, sha256Hex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repository file %s: %w", sha256Hex, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rf, nil
}

// UpsertRepositoryFile inserts rf if its sha256 is new, otherwise returns
// the existing row's id: two repositories (or two syncs of the same
// repository) that fetch byte-identical metadata share one pool entry.
func (s *Session) UpsertRepositoryFile(ctx context.Context, rf *RepositoryFile) error {
	var existingID string
	err := s.tx.GetContext(ctx, &existingID, `SELECT id FROM repository_files WHERE sha256 = ?`, rf.SHA256)
	switch {
	case err == nil:
		rf.ID = existingID
		return nil
	case errors.Is(err, sql.ErrNoRows):
		if rf.ID == "" {
			rf.ID = uuid.NewString()
		}
		_, err = s.tx.ExecContext(ctx, `
			INSERT INTO repository_files (id, file_category, file_type, sha256, size_bytes, pool_path, original_path, file_metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rf.ID, rf.FileCategory, rf.FileType, rf.SHA256, rf.SizeBytes, rf.PoolPath, rf.OriginalPath, rf.FileMetadata)
		if err != nil {
			return fmt.Errorf("while inserting repository file %s: %w", rf.OriginalPath, err)
		}
		return nil
	default:
		return err
	}
}

// LinkRepositoryFile records that a repository currently references a
// file at originalPath, replacing any prior link for that same path (a
// repository has exactly one current repomd.xml, one current
// Packages.gz, etc., even though the pool keeps every historical byte
// sequence reachable from older snapshots).
func (s *Session) LinkRepositoryFile(ctx context.Context, repositoryID, repositoryFileID, originalPath string) error {
	_, err := s.tx.ExecContext(ctx, `
		DELETE FROM repository_repository_files
		WHERE repository_id = ? AND original_path = ?`, repositoryID, originalPath)
	if err != nil {
		return err
	}
	_, err = s.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO repository_repository_files (repository_id, repository_file_id, original_path)
		VALUES (?, ?, ?)`, repositoryID, repositoryFileID, originalPath)
	return err
}

// RepositoryFiles lists every file currently linked to a repository.
func (c *Catalog) RepositoryFiles(ctx context.Context, repositoryID string) ([]RepositoryFile, error) {
	var files []RepositoryFile
	err := c.db.SelectContext(ctx, &files, `
		SELECT rf.* FROM repository_files rf
		JOIN repository_repository_files rrf ON rrf.repository_file_id = rf.id
		WHERE rrf.repository_id = ?
		ORDER BY rrf.original_path`, repositoryID)
	return files, err
}

// RepositoryFileReferenceCount reports how many repositories and
// snapshots still reference a file.
func (c *Catalog) RepositoryFileReferenceCount(ctx context.Context, repositoryFileID string) (int, error) {
	var n int
	err := c.db.GetContext(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM repository_repository_files WHERE repository_file_id = ?) +
			(SELECT COUNT(*) FROM snapshot_repository_files WHERE repository_file_id = ?)`,
		repositoryFileID, repositoryFileID)
	return n, err
}

// DeleteRepositoryFile removes a repository file row.
func (s *Session) DeleteRepositoryFile(ctx context.Context, id string) error {
	_, err := s.tx.ExecContext(ctx, `DELETE FROM repository_files WHERE id = ?`, id)
	return err
}

// ListAllRepositoryFiles returns every repository file in the catalog,
// regardless of repository or snapshot membership.
func (c *Catalog) ListAllRepositoryFiles(ctx context.Context) ([]RepositoryFile, error) {
	var files []RepositoryFile
	err := c.db.SelectContext(ctx, &files, `SELECT * FROM repository_files ORDER BY original_path`)
	return files, err
}
