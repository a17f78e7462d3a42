// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateView inserts a new named, typed view.
func (s *Session) CreateView(ctx context.Context, name string, contentType ContentType) (*View, error) {
	v := &View{ID: uuid.NewString(), Name: name, Type: contentType}
	_, err := s.tx.ExecContext(ctx, `INSERT INTO views (id, name, type) VALUES (?, ?, ?)`, v.ID, v.Name, v.Type)
	if err != nil {
		return nil, fmt.Errorf("while inserting view %s: %w", name, err)
	}
	return v, nil
}

// SetViewRepositories replaces a view's ordered repository membership.
func (s *Session) SetViewRepositories(ctx context.Context, viewID string, repositoryIDs []string) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM view_repositories WHERE view_id = ?`, viewID); err != nil {
		return err
	}
	for i, repoID := range repositoryIDs {
		if _, err := s.tx.ExecContext(ctx, `
			INSERT INTO view_repositories (view_id, repository_id, position) VALUES (?, ?, ?)`,
			viewID, repoID, i); err != nil {
			return err
		}
	}
	return nil
}

// ViewByName looks up a view by name.
func (c *Catalog) ViewByName(ctx context.Context, name string) (*View, error) {
	var v View
	err := c.db.GetContext(ctx, &v, `SELECT * FROM views WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("view %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ViewRepositories lists a view's member repositories in position order.
func (c *Catalog) ViewRepositories(ctx context.Context, viewID string) ([]Repository, error) {
	var repos []Repository
	err := c.db.SelectContext(ctx, &repos, `
		SELECT r.* FROM repositories r
		JOIN view_repositories vr ON vr.repository_id = r.id
		WHERE vr.view_id = ?
		ORDER BY vr.position`, viewID)
	return repos, err
}

// CreateViewSnapshot records a named capture of a view as the set of
// snapshot ids its member repositories currently resolve to.
func (s *Session) CreateViewSnapshot(ctx context.Context, viewID, name string, snapshotIDs []string, createdAt int64) (*ViewSnapshot, error) {
	encoded, err := json.Marshal(snapshotIDs)
	if err != nil {
		return nil, err
	}
	vs := &ViewSnapshot{
		ID:          uuid.NewString(),
		ViewID:      viewID,
		Name:        name,
		SnapshotIDs: string(encoded),
		CreatedAt:   createdAt,
	}
	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO view_snapshots (id, view_id, name, snapshot_ids, created_at)
		VALUES (?, ?, ?, ?, ?)`, vs.ID, vs.ViewID, vs.Name, vs.SnapshotIDs, vs.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("while inserting view snapshot %s: %w", name, err)
	}
	return vs, nil
}

// ViewSnapshotByName looks up a view snapshot and decodes its member
// snapshot ids.
func (c *Catalog) ViewSnapshotByName(ctx context.Context, viewID, name string) (*ViewSnapshot, []string, error) {
	var vs ViewSnapshot
	err := c.db.GetContext(ctx, &vs, `
		SELECT * FROM view_snapshots WHERE view_id = ? AND name = ?`, viewID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("view snapshot %s/%s: %w", viewID, name, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(vs.SnapshotIDs), &ids); err != nil {
		return nil, nil, fmt.Errorf("while decoding snapshot_ids for view snapshot %s: %w", vs.ID, err)
	}
	return &vs, ids, nil
}
