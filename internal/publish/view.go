// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/repoforge/mirror/internal/catalog"
)

// PublishView publishes every member repository of a live view under its
// own subdirectory of targetDir, named after the repository. Per
// spec.md §4.8.5 there is no cross-repository deduplication: the same
// (name, version) appearing in two member repositories is hardlinked
// twice, once under each repository's subdirectory.
func (p *Publisher) PublishView(ctx context.Context, viewName, targetDir string) error {
	view, err := p.Catalog.ViewByName(ctx, viewName)
	if err != nil {
		return err
	}
	repos, err := p.Catalog.ViewRepositories(ctx, view.ID)
	if err != nil {
		return err
	}
	for _, repo := range repos {
		src, err := p.repositorySource(ctx, repo.ID)
		if err != nil {
			return fmt.Errorf("publishing view member %s: %w", repo.Name, err)
		}
		if err := p.publishSource(ctx, src, filepath.Join(targetDir, repo.Name)); err != nil {
			return fmt.Errorf("publishing view member %s: %w", repo.Name, err)
		}
	}
	return nil
}

// PublishViewSnapshot publishes every per-repository snapshot recorded
// by a ViewSnapshot, each under its source repository's name.
func (p *Publisher) PublishViewSnapshot(ctx context.Context, viewName, viewSnapshotName, targetDir string) error {
	view, err := p.Catalog.ViewByName(ctx, viewName)
	if err != nil {
		return err
	}
	_, snapshotIDs, err := p.Catalog.ViewSnapshotByName(ctx, view.ID, viewSnapshotName)
	if err != nil {
		return err
	}
	for _, snapshotID := range snapshotIDs {
		src, snap, err := p.snapshotSource(ctx, snapshotID)
		if err != nil {
			return err
		}
		repo, err := p.Catalog.RepositoryByID(ctx, snap.RepositoryID)
		if err != nil {
			return err
		}
		dest := filepath.Join(targetDir, repo.Name)
		if err := p.publishSource(ctx, src, dest); err != nil {
			return fmt.Errorf("publishing view snapshot member %s: %w", repo.Name, err)
		}
		if err := p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
			return s.SetSnapshotPublished(ctx, snapshotID, true, dest)
		}); err != nil {
			return err
		}
	}
	return nil
}
