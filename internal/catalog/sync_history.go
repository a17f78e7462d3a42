// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// OpenSyncHistory records the start of a sync run.
func (s *Session) OpenSyncHistory(ctx context.Context, repositoryID string, startedAt int64) (*SyncHistory, error) {
	h := &SyncHistory{
		ID:           uuid.NewString(),
		RepositoryID: repositoryID,
		StartedAt:    startedAt,
		Status:       SyncRunning,
	}
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO sync_history (id, repository_id, started_at, status)
		VALUES (?, ?, ?, ?)`, h.ID, h.RepositoryID, h.StartedAt, h.Status)
	if err != nil {
		return nil, fmt.Errorf("while opening sync history for %s: %w", repositoryID, err)
	}
	return h, nil
}

// CloseSyncHistory records the outcome of a sync run.
func (s *Session) CloseSyncHistory(ctx context.Context, id string, completedAt int64, status SyncStatus, added, removed, updated int, bytesDownloaded int64, errMsg string) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE sync_history
		SET completed_at = ?, status = ?, packages_added = ?, packages_removed = ?, packages_updated = ?, bytes_downloaded = ?, error_message = ?
		WHERE id = ?`,
		completedAt, status, added, removed, updated, bytesDownloaded, errMsg, id)
	return err
}

// SyncHistoryByID looks up a single sync run.
func (c *Catalog) SyncHistoryByID(ctx context.Context, id string) (*SyncHistory, error) {
	var h SyncHistory
	err := c.db.GetContext(ctx, &h, `SELECT * FROM sync_history WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync history %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListSyncHistory returns a repository's sync runs, newest first, capped
// at limit (0 means unbounded).
func (c *Catalog) ListSyncHistory(ctx context.Context, repositoryID string, limit int) ([]SyncHistory, error) {
	var rows []SyncHistory
	var err error
	if limit > 0 {
		err = c.db.SelectContext(ctx, &rows, `
			SELECT * FROM sync_history WHERE repository_id = ? ORDER BY started_at DESC LIMIT ?`, repositoryID, limit)
	} else {
		err = c.db.SelectContext(ctx, &rows, `
			SELECT * FROM sync_history WHERE repository_id = ? ORDER BY started_at DESC`, repositoryID)
	}
	return rows, err
}
