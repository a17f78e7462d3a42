// SPDX-License-Identifier: Apache-2.0

// Package publish materializes a Repository, Snapshot, or View onto a
// target directory as hardlinks into the pool, regenerating each
// format's root metadata document from catalog state along the way.
package publish

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/repoforge/mirror/internal/catalog"
)

// Publisher materializes catalog state onto the filesystem.
type Publisher struct {
	Catalog *catalog.Catalog
}

// source is the content-item/file set a publish operation renders,
// abstracting over "the repository's live links" and "a snapshot's
// frozen membership" so the per-format publishers don't need to care
// which one they were handed.
type source struct {
	repository *catalog.Repository
	items      []catalog.ContentItem
	files      []catalog.RepositoryFile
}

func (p *Publisher) repositorySource(ctx context.Context, repositoryID string) (*source, error) {
	repo, err := p.Catalog.RepositoryByID(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	items, err := p.Catalog.RepositoryContentItems(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	files, err := p.Catalog.RepositoryFiles(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	return &source{repository: repo, items: items, files: files}, nil
}

func (p *Publisher) snapshotSource(ctx context.Context, snapshotID string) (*source, *catalog.Snapshot, error) {
	snap, err := p.Catalog.SnapshotByID(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	repo, err := p.Catalog.RepositoryByID(ctx, snap.RepositoryID)
	if err != nil {
		return nil, nil, err
	}
	items, err := p.Catalog.SnapshotContentItems(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	files, err := p.Catalog.SnapshotRepositoryFiles(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	return &source{repository: repo, items: items, files: files}, snap, nil
}

// PublishRepository hardlinks a repository's currently-linked content
// into targetDir and regenerates its root metadata document, per the
// per-format rules in rpm.go/deb.go/helm.go/apk.go.
func (p *Publisher) PublishRepository(ctx context.Context, repositoryID, targetDir string) error {
	src, err := p.repositorySource(ctx, repositoryID)
	if err != nil {
		return err
	}
	return p.publishSource(ctx, src, targetDir)
}

// PublishSnapshot hardlinks a snapshot's frozen content into targetDir,
// then marks the snapshot published at that path.
func (p *Publisher) PublishSnapshot(ctx context.Context, snapshotID, targetDir string) error {
	src, snap, err := p.snapshotSource(ctx, snapshotID)
	if err != nil {
		return err
	}
	if err := p.publishSource(ctx, src, targetDir); err != nil {
		return err
	}
	return p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return s.SetSnapshotPublished(ctx, snapshotID, true, targetDir)
	})
}

func (p *Publisher) publishSource(ctx context.Context, src *source, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}
	switch src.repository.Type {
	case catalog.RPM:
		return publishRPM(src, targetDir)
	case catalog.DEB:
		return publishDEB(src, targetDir)
	case catalog.Helm:
		return publishHelm(src, targetDir)
	case catalog.APK:
		return publishAPK(src, targetDir)
	default:
		return fmt.Errorf("publish: unsupported content type %q", src.repository.Type)
	}
}

// Unpublish recursively removes a published target directory and marks
// the snapshot (if any) as no longer published. Pool contents are
// untouched: only the pool GC removes bytes.
func (p *Publisher) Unpublish(ctx context.Context, targetDir, snapshotID string) error {
	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("removing published path %s: %w", targetDir, err)
	}
	if snapshotID == "" {
		return nil
	}
	return p.Catalog.WithTx(ctx, func(s *catalog.Session) error {
		return s.SetSnapshotPublished(ctx, snapshotID, false, "")
	})
}

// hardlinkFromPool links a pool-addressed payload at destPath, creating
// parent directories as needed. Hardlinking (rather than copying) is what
// keeps a publish cheap regardless of how large the underlying package
// is: the target directory and the pool always share the same inode
// until a GC unlinks one side.
func hardlinkFromPool(poolPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Link(poolPath, destPath); err != nil {
		return fmt.Errorf("hardlinking %s to %s: %w", poolPath, destPath, err)
	}
	return nil
}

// writeGenerated writes a regenerated metadata file (primary.xml,
// Packages, index.yaml, APKINDEX, ...) directly into the target, bypassing
// the pool: these bytes are a view over current catalog state, not a
// durable content-addressed artifact worth deduplicating.
func writeGenerated(destPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

func nowUnix() int64 { return time.Now().Unix() }

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
