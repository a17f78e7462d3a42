// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("catalog: not found")

// CreateRepository inserts a new repository row, generating its id.
func (s *Session) CreateRepository(ctx context.Context, r *Repository) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO repositories (id, name, type, feed, enabled, mode, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Type, r.Feed, r.Enabled, r.Mode, r.LastSyncAt)
	if err != nil {
		return fmt.Errorf("while inserting repository %s: %w", r.Name, err)
	}
	return nil
}

// RepositoryByID looks up a repository by its primary key.
func (c *Catalog) RepositoryByID(ctx context.Context, id string) (*Repository, error) {
	var r Repository
	err := c.db.GetContext(ctx, &r, `SELECT * FROM repositories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RepositoryByName looks up a repository by its unique name.
func (c *Catalog) RepositoryByName(ctx context.Context, name string) (*Repository, error) {
	var r Repository
	err := c.db.GetContext(ctx, &r, `SELECT * FROM repositories WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repository %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRepositories returns every configured repository, optionally
// restricted to a content type.
func (c *Catalog) ListRepositories(ctx context.Context, contentType ContentType) ([]Repository, error) {
	var repos []Repository
	var err error
	if contentType == "" {
		err = c.db.SelectContext(ctx, &repos, `SELECT * FROM repositories ORDER BY name`)
	} else {
		err = c.db.SelectContext(ctx, &repos, `SELECT * FROM repositories WHERE type = ? ORDER BY name`, contentType)
	}
	return repos, err
}

// SetLastSyncAt updates a repository's last_sync_at timestamp (unix
// seconds).
func (s *Session) SetLastSyncAt(ctx context.Context, repositoryID string, unixSeconds int64) error {
	_, err := s.tx.ExecContext(ctx, `UPDATE repositories SET last_sync_at = ? WHERE id = ?`, unixSeconds, repositoryID)
	return err
}

// DeleteRepository removes a repository row. Callers are responsible for
// having already detached its content items, files, snapshots and sync
// history, or for accepting the foreign-key references left dangling
// (sqlite does not enforce FKs unless PRAGMA foreign_keys is on, which the
// catalog deliberately leaves off so that GC can freely unlink without
// having to cascade every join table in lockstep).
func (s *Session) DeleteRepository(ctx context.Context, id string) error {
	_, err := s.tx.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	return err
}

// DeleteRepositoryCascade removes a repository along with the rows that
// exist only in relation to it: its sync history, its snapshots (and
// their membership rows), and its content-item/file links. Content items
// and repository files themselves are left alone; dropping their last
// link only makes them orphans, which pool/db cleanup then reclaims on
// its own pass rather than this one reaching into the pool directly.
func (s *Session) DeleteRepositoryCascade(ctx context.Context, id string) error {
	var snapshotIDs []string
	if err := s.tx.SelectContext(ctx, &snapshotIDs, `SELECT id FROM snapshots WHERE repository_id = ?`, id); err != nil {
		return err
	}
	for _, snapID := range snapshotIDs {
		if _, err := s.tx.ExecContext(ctx, `UPDATE snapshots SET is_published = 0, published_path = '' WHERE id = ?`, snapID); err != nil {
			return err
		}
		if err := s.DeleteSnapshot(ctx, snapID); err != nil {
			return err
		}
	}

	if _, err := s.tx.ExecContext(ctx, `DELETE FROM sync_history WHERE repository_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM repository_content_items WHERE repository_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM repository_repository_files WHERE repository_id = ?`, id); err != nil {
		return err
	}
	return s.DeleteRepository(ctx, id)
}
