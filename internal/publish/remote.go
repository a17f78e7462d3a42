// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// MirrorToBucket uploads every regular file already materialized under
// localDir (the result of a prior PublishRepository/PublishSnapshot/
// PublishView call) to the object-store bucket named by bucketURL — an
// "s3://", "gs://", "azblob://", or "file://" URL, any scheme gocloud.dev
// has a registered driver for. Each file is keyed by its path relative
// to localDir, so a published tree and its bucket mirror always share
// the same layout.
func MirrorToBucket(ctx context.Context, localDir, bucketURL string) error {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("opening bucket %s: %w", bucketURL, err)
	}
	defer bucket.Close()

	return filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		return uploadFile(ctx, bucket, path, filepath.ToSlash(rel))
	})
}

func uploadFile(ctx context.Context, bucket *blob.Bucket, localPath, key string) (errFn error) {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("opening bucket writer for %s: %w", key, err)
	}
	defer func() {
		if errFn != nil {
			_ = w.Close()
		}
	}()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return w.Close()
}
