// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements the business logic that sits on top of
// catalog.Session's snapshot primitives: uniqueness checks, the
// repository-set fan-out behind create_view_snapshot, and the published-
// path teardown a force delete requires before the catalog row can go.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/repoforge/mirror/internal/catalog"
)

// Manager wraps a Catalog with the create/copy/delete/diff operations
// described for the Snapshot Manager, including the directory cleanup a
// forced delete of a published snapshot requires.
type Manager struct {
	Catalog *catalog.Catalog
}

// Create freezes a repository's current content-item and file set into a
// new, immutable snapshot. Fails if a snapshot with the same name already
// exists for the repository.
func (m *Manager) Create(ctx context.Context, repositoryID, name, description string) (*catalog.Snapshot, error) {
	if _, err := m.Catalog.SnapshotByName(ctx, repositoryID, name); err == nil {
		return nil, fmt.Errorf("snapshot %s already exists for repository %s", name, repositoryID)
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	var snap *catalog.Snapshot
	err := m.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		var err error
		snap, err = s.CreateSnapshot(ctx, repositoryID, name, description, time.Now().Unix())
		return err
	})
	return snap, err
}

// CreateViewSnapshot creates a per-repository snapshot (named
// "<name>-<repository-name>") for every repository currently in the view,
// then records a ViewSnapshot row listing the resulting snapshot ids. If
// any per-repository snapshot fails, the whole operation rolls back: a
// view snapshot with a missing member repository capture isn't useful.
func (m *Manager) CreateViewSnapshot(ctx context.Context, viewName, name string) (*catalog.ViewSnapshot, error) {
	view, err := m.Catalog.ViewByName(ctx, viewName)
	if err != nil {
		return nil, err
	}
	repos, err := m.Catalog.ViewRepositories(ctx, view.ID)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("view %s has no member repositories", viewName)
	}

	now := time.Now().Unix()
	var viewSnap *catalog.ViewSnapshot
	err = m.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		snapshotIDs := make([]string, 0, len(repos))
		for _, repo := range repos {
			perRepoName := fmt.Sprintf("%s-%s", name, repo.Name)
			snap, err := s.CreateSnapshot(ctx, repo.ID, perRepoName, "", now)
			if err != nil {
				return fmt.Errorf("creating member snapshot for repository %s: %w", repo.Name, err)
			}
			snapshotIDs = append(snapshotIDs, snap.ID)
		}
		var err error
		viewSnap, err = s.CreateViewSnapshot(ctx, view.ID, name, snapshotIDs, now)
		return err
	})
	return viewSnap, err
}

// Copy duplicates an existing snapshot's membership under a new name. No
// file I/O is involved: the copy shares the source's pooled bytes through
// the join tables alone.
func (m *Manager) Copy(ctx context.Context, sourceSnapshotID, newName string) (*catalog.Snapshot, error) {
	var dst *catalog.Snapshot
	err := m.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		var err error
		dst, err = s.CopySnapshot(ctx, sourceSnapshotID, newName, time.Now().Unix())
		return err
	})
	return dst, err
}

// Delete removes a snapshot's relationship rows. A published snapshot is
// refused unless force is set, in which case its published directory is
// torn down first. ContentItem/RepositoryFile rows are never touched here:
// pool GC is the only authority for byte removal.
func (m *Manager) Delete(ctx context.Context, snapshotID string, force bool) error {
	snap, err := m.Catalog.SnapshotByID(ctx, snapshotID)
	if err != nil {
		return err
	}

	if snap.IsPublished {
		if !force {
			return fmt.Errorf("snapshot %s is published; delete with force to unpublish and remove it", snapshotID)
		}
		if snap.PublishedPath != "" {
			if err := os.RemoveAll(snap.PublishedPath); err != nil {
				return fmt.Errorf("removing published path %s for snapshot %s: %w", snap.PublishedPath, snapshotID, err)
			}
		}
	}

	return m.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		if snap.IsPublished {
			if err := s.SetSnapshotPublished(ctx, snapshotID, false, ""); err != nil {
				return err
			}
		}
		return s.DeleteSnapshot(ctx, snapshotID)
	})
}

// Diff is the added/removed/updated package sets between two snapshots of
// the same repository, keyed by (name, arch): a content item present in
// both with a different version counts as updated, not an add+remove.
type Diff struct {
	Added   []catalog.ContentItem
	Removed []catalog.ContentItem
	Updated []VersionChange
}

// VersionChange is one (name, arch) pair whose version differs between
// the "from" and "to" snapshots.
type VersionChange struct {
	Name        string
	Arch        string
	FromVersion string
	ToVersion   string
}

// Diff compares two snapshots' frozen content-item sets.
func (m *Manager) Diff(ctx context.Context, fromSnapshotID, toSnapshotID string) (*Diff, error) {
	fromItems, err := m.Catalog.SnapshotContentItems(ctx, fromSnapshotID)
	if err != nil {
		return nil, err
	}
	toItems, err := m.Catalog.SnapshotContentItems(ctx, toSnapshotID)
	if err != nil {
		return nil, err
	}

	key := func(ci catalog.ContentItem) string { return itemArch(ci) + "\x00" + ci.Name }

	fromByKey := make(map[string]catalog.ContentItem, len(fromItems))
	for _, ci := range fromItems {
		fromByKey[key(ci)] = ci
	}
	toByKey := make(map[string]catalog.ContentItem, len(toItems))
	for _, ci := range toItems {
		toByKey[key(ci)] = ci
	}

	diff := &Diff{}
	for k, toItem := range toByKey {
		fromItem, ok := fromByKey[k]
		if !ok {
			diff.Added = append(diff.Added, toItem)
			continue
		}
		if fromItem.Version != toItem.Version {
			diff.Updated = append(diff.Updated, VersionChange{
				Name: toItem.Name, Arch: itemArch(toItem),
				FromVersion: fromItem.Version, ToVersion: toItem.Version,
			})
		}
	}
	for k, fromItem := range fromByKey {
		if _, ok := toByKey[k]; !ok {
			diff.Removed = append(diff.Removed, fromItem)
		}
	}
	return diff, nil
}
